package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

// LockConflictError reports that a lock is already held, per spec.md
// §4.2: "Lock held (holder: \"…\")" is not retried; the caller reports
// it and aborts.
type LockConflictError struct {
	Holder string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("lock held (holder: %q)", e.Holder)
}

// HolderString formats the lock-file contents written on acquisition,
// per spec.md §4.2: "source:<hostname>:<session_id>".
func HolderString(role, hostname, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", role, hostname, sessionID)
}

// SourceLock is a non-blocking, exclusive, POSIX file lock held on the
// source machine for the lifetime of one session. Adapted from the
// teacher's PID-in-a-file CreateLockFile, replaced with a real kernel
// flock so a crashed process releases the lock automatically, per
// spec.md §4.2's "released on process exit" requirement.
type SourceLock struct {
	file *os.File
	path string
}

// AcquireSourceLock opens (creating if absent) the lock file at path and
// takes a non-blocking exclusive flock. If another process holds it, the
// existing holder string is read from the file and returned inside a
// *LockConflictError.
func AcquireSourceLock(path, holder string) (*SourceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory for %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		existing, _ := os.ReadFile(path)
		file.Close()
		return nil, &LockConflictError{Holder: strings.TrimSpace(string(existing))}
	}

	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncate lock file %s: %w", path, err)
	}
	if _, err := file.WriteAt([]byte(holder), 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("write lock holder to %s: %w", path, err)
	}

	return &SourceLock{file: file, path: path}, nil
}

// Release drops the flock and closes the file. The lock is also released
// automatically if the process exits without calling Release, since
// flock is tied to the open file descriptor.
func (l *SourceLock) Release() error {
	if l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return l.file.Close()
}

// targetLockGrace is how long AcquireTargetLock waits for the remote
// heartbeat process to report acquisition before declaring a conflict.
const targetLockGrace = 5 * time.Second

// TargetLock represents the long-running remote process that holds the
// target-side lock for the session's duration, per spec.md §4.2: "the
// Orchestrator opens a long-lived remote command that itself acquires a
// remote file lock, writes a holder string, and then sleeps; closing the
// connection or killing the remote process releases the lock."
type TargetLock struct {
	process exec.Process
}

// AcquireTargetLock starts the remote heartbeat process and waits up to
// targetLockGrace for it to report acquisition. A conflict is returned as
// a *LockConflictError whose Holder is read from the remote lock file,
// since the heartbeat process' own stdout carries no holder string once
// it has lost the race; no report within the grace period is a plain
// error.
func AcquireTargetLock(ctx context.Context, executor exec.Executor, path, holder string) (*TargetLock, error) {
	return acquireTargetLockWithGrace(ctx, executor, path, holder, targetLockGrace)
}

// acquireTargetLockWithGrace is AcquireTargetLock with an injectable grace
// period, split out so tests can exercise the timeout path without waiting
// the full targetLockGrace.
func acquireTargetLockWithGrace(ctx context.Context, executor exec.Executor, path, holder string, grace time.Duration) (*TargetLock, error) {
	script := fmt.Sprintf(
		`mkdir -p %s && exec 9>>%s && flock -n 9 && { printf '%%s' %s > %s; echo ACQUIRED; exec sleep infinity; } || echo CONFLICT`,
		shellDir(path), path, shellArg(holder), path,
	)

	proc, err := executor.StartProcess(ctx, exec.Command{Args: []string{"bash", "-c", script}})
	if err != nil {
		return nil, fmt.Errorf("start remote lock heartbeat on %s: %w", executor.Host(), err)
	}

	select {
	case line, ok := <-proc.Stdout():
		if !ok || strings.TrimSpace(line) != "ACQUIRED" {
			proc.Terminate()
			existing, _ := readRemoteFile(ctx, executor, path)
			return nil, &LockConflictError{Holder: existing}
		}
		return &TargetLock{process: proc}, nil
	case <-time.After(grace):
		proc.Terminate()
		return nil, fmt.Errorf("target lock heartbeat on %s did not report acquisition within %s", executor.Host(), grace)
	case <-ctx.Done():
		proc.Terminate()
		return nil, ctx.Err()
	}
}

// Release terminates the heartbeat process, which drops the remote
// flock as soon as the process exits.
func (l *TargetLock) Release() {
	if l.process == nil {
		return
	}
	l.process.Terminate()
	_, _ = l.process.Wait()
}

func readRemoteFile(ctx context.Context, executor exec.Executor, path string) (string, error) {
	result, err := executor.Run(ctx, exec.Command{Args: []string{"cat", path}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

func shellDir(path string) string {
	return shellArg(filepath.Dir(path))
}

func shellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
