package exec

import (
	"context"
	"errors"
)

var errMockNoProcess = errors.New("exec: MockExecutor does not support StartProcess")

// MockExecutor is a test double implementing Executor. It records every
// command it was asked to run. When RunFunc is set it answers every
// command; otherwise Run returns scripted results keyed by the joined
// argv, falling back to a zero-exit-code success.
// Adapted from the teacher's MockCommandExecutor.
type MockExecutor struct {
	HostName string
	Commands []Command
	Results  map[string]CommandResult
	RunFunc  func(ctx context.Context, cmd Command) (CommandResult, error)
}

// NewMockExecutor returns an empty MockExecutor for the given host name.
func NewMockExecutor(host string) *MockExecutor {
	return &MockExecutor{HostName: host, Results: map[string]CommandResult{}}
}

func (m *MockExecutor) Host() string { return m.HostName }

func (m *MockExecutor) Close() error { return nil }

// StartProcess is not supported by MockExecutor; tests that exercise
// process streaming should construct a fake Process directly.
func (m *MockExecutor) StartProcess(ctx context.Context, cmd Command) (Process, error) {
	return nil, errMockNoProcess
}

func (m *MockExecutor) TerminateAllProcesses() {}

func (m *MockExecutor) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	m.Commands = append(m.Commands, cmd)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	key := joinArgs(cmd.Args)
	if result, ok := m.Results[key]; ok {
		return result, nil
	}
	return CommandResult{ExitCode: 0}, nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
