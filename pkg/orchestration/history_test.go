package orchestration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

func TestHistoryPath(t *testing.T) {
	assert.Equal(t, "/home/u/.local/share/pc-switcher/sync-history.json", HistoryPath("/home/u"))
}

func TestReadLocalHistoryMissingFileDefaultsToSource(t *testing.T) {
	entry, corrupted, err := ReadLocalHistory(t.TempDir())
	require.NoError(t, err)
	assert.False(t, corrupted)
	assert.Equal(t, HistoryRoleSource, entry.LastRole)
}

func TestReadLocalHistoryCorruptedDefaultsToSourceWithFlag(t *testing.T) {
	home := t.TempDir()
	path := HistoryPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	entry, corrupted, err := ReadLocalHistory(home)
	require.NoError(t, err)
	assert.True(t, corrupted)
	assert.Equal(t, HistoryRoleSource, entry.LastRole)
}

func TestWriteThenReadLocalHistoryRoundTrips(t *testing.T) {
	home := t.TempDir()

	require.NoError(t, WriteLocalHistory(home, SyncHistoryEntry{LastRole: HistoryRoleTarget}))

	entry, corrupted, err := ReadLocalHistory(home)
	require.NoError(t, err)
	assert.False(t, corrupted)
	assert.Equal(t, HistoryRoleTarget, entry.LastRole)
}

func TestWriteRemoteHistoryRunsShellCommand(t *testing.T) {
	executor := exec.NewMockExecutor("target")

	err := WriteRemoteHistory(context.Background(), executor, "/home/u", SyncHistoryEntry{LastRole: HistoryRoleTarget})
	require.NoError(t, err)
	require.Len(t, executor.Commands, 1)
	assert.Equal(t, "bash", executor.Commands[0].Args[0])
}
