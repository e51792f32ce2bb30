// Package exec provides the single command-execution abstraction every
// job and manager in pc-switcher runs commands through, on either the
// source or the target desktop. Adapted from grovetools-flow's
// CommandExecutor interface, generalized from a bare success/failure
// result to the full stdout/stderr/exit-code/duration shape
// original_source/executor.py's Process captures, and split into local
// and SSH implementations (spec.md §4.2).
package exec

import (
	"context"
	"time"
)

// Command describes a single command invocation.
type Command struct {
	// Args is the argv vector. Args[0] is the program name.
	Args []string
	// Dir is the working directory; empty means the executor's default.
	Dir string
	// Env holds additional environment variables, merged over the
	// executor's base environment.
	Env map[string]string
	// LoginShell forces (or, set to false explicitly via WithLoginShell,
	// suppresses) wrapping the command in "bash -l -c <quoted>" so
	// remote commands pick up the target user's full shell environment
	// (spec.md §4.2(c)). Nil means "use the executor's default".
	LoginShell *bool
}

// WithLoginShell returns a copy of cmd with LoginShell pinned to v,
// overriding whatever default the executor carries.
func (c Command) WithLoginShell(v bool) Command {
	c.LoginShell = &v
	return c
}

// CommandResult is everything pc-switcher ever inspects about a finished
// command: exit status for error classification, captured output for
// logging and for jobs that parse command output (e.g. `btrfs subvolume
// show`), and the wall-clock duration of the run.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited zero.
func (r CommandResult) Success() bool { return r.ExitCode == 0 }

// Executor runs commands against one host, local or remote. Every job
// receives an Executor for the source and, for jobs that touch the
// target, a second Executor for the target; this is the sole seam
// between job logic and the actual machine, keeping jobs host-agnostic
// and unit-testable (spec.md §4.8's "jobs never shell out directly").
type Executor interface {
	// Run executes cmd and blocks until it exits or ctx is done. A
	// non-nil error is returned only for failures to even start or
	// stream the command (connection loss, missing binary); a nonzero
	// exit code is reported via CommandResult.ExitCode with a nil error,
	// mirroring exec.Cmd's own convention so callers can distinguish
	// "ran and failed" from "could not run".
	Run(ctx context.Context, cmd Command) (CommandResult, error)

	// StartProcess launches cmd without waiting for it to finish,
	// registering it so TerminateAllProcesses can reach it later
	// (spec.md §4.1: "starting a process registers it with the
	// executor").
	StartProcess(ctx context.Context, cmd Command) (Process, error)

	// TerminateAllProcesses best-effort asks every process this executor
	// has started and not yet reaped to stop. It does not wait for them
	// to exit; a later Process.Wait observes the result. Never raises;
	// failures to kill an already-dead process are ignored.
	TerminateAllProcesses()

	// Host identifies which machine this executor runs against, for
	// logging.
	Host() string

	// Close releases any held resources (an SSH connection's transport).
	// Local executors treat this as a no-op.
	Close() error
}

// Process is a handle to a still-running (or just-finished) command,
// exposing line-by-line streaming the way a long-lived job (an install
// script, a data-mover) needs to report progress incrementally rather
// than waiting for EOF.
type Process interface {
	// Stdout/Stderr yield one line at a time, closed when the stream
	// reaches EOF.
	Stdout() <-chan string
	Stderr() <-chan string

	// Wait blocks until the process exits and returns its result. Safe
	// to call exactly once.
	Wait() (CommandResult, error)

	// Terminate asks the process to stop, never raising; the result is
	// observed by a subsequent Wait.
	Terminate()
}
