package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

func TestSnapshotNaming(t *testing.T) {
	m := NewManager(exec.NewMockExecutor("source"), "/.snapshots/pc-switcher", []string{"@", "@home"}, 3, nil)
	at := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "/.snapshots/pc-switcher/20260731T120000-sess1", m.SessionFolder("sess1", at))
	assert.Equal(t, "pre-@-20260731T120000", m.SnapshotName(PhasePre, "@", at))
	assert.Equal(t, "post-@home-20260731T120000", m.SnapshotName(PhasePost, "@home", at))
}

func TestMountPointFor(t *testing.T) {
	mp, err := MountPointFor("@home")
	require.NoError(t, err)
	assert.Equal(t, "/home", mp)

	_, err = MountPointFor("@nonexistent")
	assert.Error(t, err)
}

func TestCreateSnapshotRunsBtrfsCommand(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@"}, 3, nil)
	at := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	path, err := m.CreateSnapshot(context.Background(), "sess1", PhasePre, "@", at)
	require.NoError(t, err)
	assert.Equal(t, "/.snapshots/pc-switcher/20260731T120000-sess1/pre-@-20260731T120000", path)
	require.Len(t, executor.Commands, 2)
	assert.Equal(t, []string{"btrfs", "subvolume", "snapshot", "-r", "/", path}, executor.Commands[1].Args)
}

func TestParseSnapshotName(t *testing.T) {
	info, ok := parseSnapshotName("pre-@home-20260731T120000")
	require.True(t, ok)
	assert.Equal(t, PhasePre, info.Phase)
	assert.Equal(t, "@home", info.Subvolume)

	_, ok = parseSnapshotName("not-a-snapshot")
	assert.False(t, ok)
}

func TestCleanupHonorsKeepRecent(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		switch cmd.Args[0] {
		case "ls":
			if cmd.Args[2] == "/.snapshots/pc-switcher" {
				return exec.CommandResult{ExitCode: 0, Stdout: "20260101T000000-s1\n20260201T000000-s2\n20260301T000000-s3\n"}, nil
			}
			return exec.CommandResult{ExitCode: 0, Stdout: "pre-@-" + snapshotSuffix(cmd.Args[2]) + "\n"}, nil
		case "btrfs":
			return exec.CommandResult{ExitCode: 0}, nil
		case "rmdir":
			return exec.CommandResult{ExitCode: 0}, nil
		}
		return exec.CommandResult{ExitCode: 0}, nil
	}

	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@"}, 1, nil)
	removedSnapshots, removedFolders, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Len(t, removedSnapshots, 2)
	assert.Len(t, removedFolders, 2)
}

// TestCleanupKeepsWholeSessionsTogether exercises a session that has a
// snapshot for only one of two configured subvolumes (e.g. a subvolume
// added after that session ran): the session must still be protected or
// deleted as a unit, never split subvolume-by-subvolume.
func TestCleanupKeepsWholeSessionsTogether(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		switch cmd.Args[0] {
		case "ls":
			if cmd.Args[2] == "/.snapshots/pc-switcher" {
				return exec.CommandResult{ExitCode: 0, Stdout: "20260101T000000-old\n20260301T000000-new\n"}, nil
			}
			if cmd.Args[2] == "/.snapshots/pc-switcher/20260101T000000-old" {
				// Only "@" was synced in this older session.
				return exec.CommandResult{ExitCode: 0, Stdout: "pre-@-20260101T000000\n"}, nil
			}
			return exec.CommandResult{ExitCode: 0, Stdout: "pre-@-20260301T000000\npre-@home-20260301T000000\n"}, nil
		case "btrfs", "rmdir":
			return exec.CommandResult{ExitCode: 0}, nil
		}
		return exec.CommandResult{ExitCode: 0}, nil
	}

	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@", "@home"}, 1, nil)
	removedSnapshots, removedFolders, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/.snapshots/pc-switcher/20260101T000000-old/pre-@-20260101T000000"}, removedSnapshots)
	assert.Equal(t, []string{"/.snapshots/pc-switcher/20260101T000000-old"}, removedFolders)
}

func snapshotSuffix(folder string) string {
	switch folder {
	case "/.snapshots/pc-switcher/20260101T000000-s1":
		return "20260101T000000"
	case "/.snapshots/pc-switcher/20260201T000000-s2":
		return "20260201T000000"
	default:
		return "20260301T000000"
	}
}

func TestEnsureSnapshotDirCreatesSubvolumeWhenAbsent(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		switch cmd.Args[0] {
		case "btrfs":
			if cmd.Args[1] == "subvolume" && cmd.Args[2] == "show" {
				return exec.CommandResult{ExitCode: 1, Stderr: "not a btrfs subvolume"}, nil
			}
			return exec.CommandResult{ExitCode: 0}, nil
		case "test":
			return exec.CommandResult{ExitCode: 1}, nil // parent does not exist at all
		case "mkdir":
			return exec.CommandResult{ExitCode: 0}, nil
		}
		return exec.CommandResult{ExitCode: 0}, nil
	}

	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@"}, 3, nil)
	require.NoError(t, m.EnsureSnapshotDir(context.Background()))

	require.Len(t, executor.Commands, 4)
	assert.Equal(t, []string{"btrfs", "subvolume", "show", "/.snapshots"}, executor.Commands[0].Args)
	assert.Equal(t, []string{"test", "-d", "/.snapshots"}, executor.Commands[1].Args)
	assert.Equal(t, []string{"btrfs", "subvolume", "create", "/.snapshots"}, executor.Commands[2].Args)
	assert.Equal(t, []string{"mkdir", "-p", "/.snapshots/pc-switcher"}, executor.Commands[3].Args)
}

func TestEnsureSnapshotDirRejectsPlainDirectory(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		switch cmd.Args[0] {
		case "btrfs":
			return exec.CommandResult{ExitCode: 1, Stderr: "not a btrfs subvolume"}, nil
		case "test":
			return exec.CommandResult{ExitCode: 0}, nil // parent exists as a plain directory
		}
		return exec.CommandResult{ExitCode: 0}, nil
	}

	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@"}, 3, nil)
	err := m.EnsureSnapshotDir(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a btrfs subvolume")
}

func TestEnsureSnapshotDirSkipsCreateWhenAlreadySubvolume(t *testing.T) {
	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		switch cmd.Args[0] {
		case "btrfs":
			return exec.CommandResult{ExitCode: 0}, nil
		case "mkdir":
			return exec.CommandResult{ExitCode: 0}, nil
		}
		return exec.CommandResult{ExitCode: 0}, nil
	}

	m := NewManager(executor, "/.snapshots/pc-switcher", []string{"@"}, 3, nil)
	require.NoError(t, m.EnsureSnapshotDir(context.Background()))

	require.Len(t, executor.Commands, 2)
	assert.Equal(t, []string{"btrfs", "subvolume", "show", "/.snapshots"}, executor.Commands[0].Args)
	assert.Equal(t, []string{"mkdir", "-p", "/.snapshots/pc-switcher"}, executor.Commands[1].Args)
}
