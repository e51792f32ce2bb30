package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"sync"
	"time"
)

// LocalExecutor runs commands directly on the machine pc-switcher itself
// is running on: the source desktop. Adapted from the teacher's
// RealCommandExecutor, widened to capture stdout and stderr separately
// and to honor Command.Dir/Env.
type LocalExecutor struct {
	// DefaultLoginShell is used when a Command does not pin LoginShell
	// itself. Local commands default to false: pc-switcher already runs
	// inside the invoking user's own shell environment.
	DefaultLoginShell bool

	mu        sync.Mutex
	processes []*localProcess
}

// NewLocalExecutor returns a LocalExecutor with the given login-shell
// default.
func NewLocalExecutor(defaultLoginShell bool) *LocalExecutor {
	return &LocalExecutor{DefaultLoginShell: defaultLoginShell}
}

func (e *LocalExecutor) Host() string { return "localhost" }

func (e *LocalExecutor) Close() error { return nil }

func (e *LocalExecutor) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	args := cmd.Args
	loginShell := e.DefaultLoginShell
	if cmd.LoginShell != nil {
		loginShell = *cmd.LoginShell
	}
	if loginShell {
		args = wrapLoginShell(args)
	}
	if len(args) == 0 {
		return CommandResult{}, fmt.Errorf("empty command")
	}

	c := osexec.CommandContext(ctx, args[0], args[1:]...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		c.Env = mergeEnv(cmd.Env)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	var exitErr *osexec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errorsAsExitError(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("run %v: %w", args, err)
	}

	return result, nil
}

func errorsAsExitError(err error, target **osexec.ExitError) bool {
	ee, ok := err.(*osexec.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

func mergeEnv(extra map[string]string) []string {
	base := os.Environ()
	for k, v := range extra {
		base = append(base, k+"="+v)
	}
	return base
}
