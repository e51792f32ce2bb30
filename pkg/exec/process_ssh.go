package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

type sshProcess struct {
	session *ssh.Session
	stdout  chan string
	stderr  chan string
	done    chan struct{}
	start   time.Time
	result  CommandResult
	waitErr error
	once    sync.Once
}

func (p *sshProcess) Stdout() <-chan string { return p.stdout }
func (p *sshProcess) Stderr() <-chan string { return p.stderr }

func (p *sshProcess) Terminate() {
	_ = p.session.Signal(ssh.SIGKILL)
}

func (p *sshProcess) Wait() (CommandResult, error) {
	p.once.Do(func() { <-p.done })
	return p.result, p.waitErr
}

// StartProcess launches cmd on the target over a dedicated SSH session,
// streaming output line-by-line, per spec.md §4.1.
func (e *SSHExecutor) StartProcess(ctx context.Context, cmd Command) (Process, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session to %s: %w", e.host, err)
	}

	args := cmd.Args
	loginShell := e.DefaultLoginShell
	if cmd.LoginShell != nil {
		loginShell = *cmd.LoginShell
	}
	if loginShell {
		args = wrapLoginShell(args)
	}
	line := strings.Join(quoteAll(args), " ")
	for k, v := range cmd.Env {
		line = fmt.Sprintf("%s=%s %s", k, shellQuote(v), line)
	}
	if cmd.Dir != "" {
		line = fmt.Sprintf("cd %s && %s", shellQuote(cmd.Dir), line)
	}

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe to %s: %w", e.host, err)
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stderr pipe to %s: %w", e.host, err)
	}

	if err := session.Start(line); err != nil {
		session.Close()
		return nil, fmt.Errorf("start %q on %s: %w", line, e.host, err)
	}

	p := &sshProcess{
		session: session,
		stdout:  make(chan string, 64),
		stderr:  make(chan string, 64),
		done:    make(chan struct{}),
		start:   time.Now(),
	}

	e.registerProcess(p)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); scanLines(stdoutPipe, p.stdout) }()
	go func() { defer wg.Done(); scanLines(stderrPipe, p.stderr) }()

	go func() {
		<-ctx.Done()
		p.Terminate()
	}()

	go func() {
		wg.Wait()
		err := session.Wait()
		p.result = CommandResult{Duration: time.Since(p.start)}
		if err == nil {
			p.result.ExitCode = 0
		} else if exitErr, ok := err.(*ssh.ExitError); ok {
			p.result.ExitCode = exitErr.ExitStatus()
		} else {
			p.waitErr = fmt.Errorf("wait %q on %s: %w", line, e.host, err)
		}
		close(p.done)
		session.Close()
		e.unregisterProcess(p)
	}()

	return p, nil
}

func (e *SSHExecutor) registerProcess(p *sshProcess) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processes = append(e.processes, p)
}

func (e *SSHExecutor) unregisterProcess(p *sshProcess) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, other := range e.processes {
		if other == p {
			e.processes = append(e.processes[:i], e.processes[i+1:]...)
			return
		}
	}
}

// TerminateAllProcesses best-effort kills every process this executor
// has started over its SSH connection and not yet reaped.
func (e *SSHExecutor) TerminateAllProcesses() {
	e.mu.Lock()
	procs := append([]*sshProcess(nil), e.processes...)
	e.mu.Unlock()
	for _, p := range procs {
		p.Terminate()
	}
}
