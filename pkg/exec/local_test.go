package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExecutorRunSuccess(t *testing.T) {
	e := NewLocalExecutor(false)
	result, err := e.Run(context.Background(), Command{Args: []string{"echo", "-n", "hello"}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello", result.Stdout)
}

func TestLocalExecutorRunNonZeroExit(t *testing.T) {
	e := NewLocalExecutor(false)
	result, err := e.Run(context.Background(), Command{Args: []string{"sh", "-c", "exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestLocalExecutorHost(t *testing.T) {
	e := NewLocalExecutor(false)
	assert.Equal(t, "localhost", e.Host())
}

func TestMockExecutorRecordsCommands(t *testing.T) {
	m := NewMockExecutor("target")
	m.Results["btrfs subvolume show /"] = CommandResult{ExitCode: 0, Stdout: "ok"}

	result, err := m.Run(context.Background(), Command{Args: []string{"btrfs", "subvolume", "show", "/"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Stdout)
	assert.Len(t, m.Commands, 1)
}
