package orchestration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

func TestHolderString(t *testing.T) {
	assert.Equal(t, "source:desktop-a:ab12cd34", HolderString(HistoryRoleSource, "desktop-a", "ab12cd34"))
}

func TestAcquireSourceLockConflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pc-switcher.lock")

	first, err := AcquireSourceLock(path, HolderString(HistoryRoleSource, "desktop-a", "session1"))
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireSourceLock(path, HolderString(HistoryRoleSource, "desktop-b", "session2"))
	require.Error(t, err)

	var conflict *LockConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "source:desktop-a:session1", conflict.Holder)
}

func TestAcquireSourceLockReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pc-switcher.lock")

	lock, err := AcquireSourceLock(path, HolderString(HistoryRoleSource, "desktop-a", "session1"))
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	second, err := AcquireSourceLock(path, HolderString(HistoryRoleSource, "desktop-a", "session2"))
	require.NoError(t, err)
	defer second.Release()
}

// fakeProcess is a minimal exec.Process used to drive AcquireTargetLock
// without a real shell, since MockExecutor does not implement StartProcess.
type fakeProcess struct {
	stdout chan string
	term   bool
}

func newFakeProcess(lines ...string) *fakeProcess {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return &fakeProcess{stdout: ch}
}

func (p *fakeProcess) Stdout() <-chan string { return p.stdout }
func (p *fakeProcess) Stderr() <-chan string { ch := make(chan string); close(ch); return ch }
func (p *fakeProcess) Wait() (exec.CommandResult, error) { return exec.CommandResult{ExitCode: 0}, nil }
func (p *fakeProcess) Terminate()                        { p.term = true }

type startProcessExecutor struct {
	*exec.MockExecutor
	process exec.Process
	err     error
}

func (e *startProcessExecutor) StartProcess(ctx context.Context, cmd exec.Command) (exec.Process, error) {
	return e.process, e.err
}

func TestAcquireTargetLockSuccess(t *testing.T) {
	proc := newFakeProcess("ACQUIRED")
	executor := &startProcessExecutor{MockExecutor: exec.NewMockExecutor("target"), process: proc}

	lock, err := AcquireTargetLock(context.Background(), executor, "/home/u/.local/share/pc-switcher/pc-switcher.lock", "source:a:s1")
	require.NoError(t, err)
	require.NotNil(t, lock)

	lock.Release()
	assert.True(t, proc.term)
}

func TestAcquireTargetLockConflict(t *testing.T) {
	proc := newFakeProcess("CONFLICT")
	base := exec.NewMockExecutor("target")
	base.Results["cat /home/u/.local/share/pc-switcher/pc-switcher.lock"] = exec.CommandResult{ExitCode: 0, Stdout: "source:other:s0"}
	executor := &startProcessExecutor{MockExecutor: base, process: proc}

	_, err := AcquireTargetLock(context.Background(), executor, "/home/u/.local/share/pc-switcher/pc-switcher.lock", "source:a:s1")
	require.Error(t, err)

	var conflict *LockConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "source:other:s0", conflict.Holder)
}

func TestAcquireTargetLockGraceTimeout(t *testing.T) {
	ch := make(chan string) // never produces a line and is never closed
	proc := &fakeProcess{stdout: ch}
	executor := &startProcessExecutor{MockExecutor: exec.NewMockExecutor("target"), process: proc}

	done := make(chan error, 1)
	go func() {
		_, err := acquireTargetLockWithGrace(context.Background(), executor, "/path", "holder", 10*time.Millisecond)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("AcquireTargetLock did not time out")
	}
}
