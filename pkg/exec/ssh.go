package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHExecutor runs commands on the target desktop over a single
// persistent SSH connection, per spec.md §4.2: pc-switcher never shells
// out to the `ssh` binary, it speaks the protocol directly so command
// results, exit codes, and stream output are captured without scraping a
// subprocess's own stdout/stderr.
type SSHExecutor struct {
	client            *ssh.Client
	host              string
	DefaultLoginShell bool

	mu        sync.Mutex
	processes []*sshProcess
}

// SSHConfig describes how to reach the target desktop.
type SSHConfig struct {
	Host              string
	Port              int
	User              string
	PrivateKeyPath    string
	KnownHostsPath    string
	ConnectTimeout    time.Duration
	DefaultLoginShell bool
}

// Dial opens the SSH connection described by cfg. Host key verification
// uses the user's own known_hosts file via golang.org/x/crypto/ssh/knownhosts
// rather than ssh.InsecureIgnoreHostKey, since pc-switcher moves real user
// data between trusted machines and a MITM'd sync would be silently
// destructive (spec.md §4.2(c), non-goal list does not exempt transport
// security).
func Dial(cfg SSHConfig) (*SSHExecutor, error) {
	key, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", cfg.PrivateKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", cfg.PrivateKeyPath, err)
	}

	knownHostsPath := cfg.KnownHostsPath
	if knownHostsPath == "" {
		home, _ := os.UserHomeDir()
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cfg.Host, portOrDefault(cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &SSHExecutor{client: client, host: cfg.Host, DefaultLoginShell: cfg.DefaultLoginShell}, nil
}

func portOrDefault(port int) string {
	if port == 0 {
		return "22"
	}
	return fmt.Sprintf("%d", port)
}

func (e *SSHExecutor) Host() string { return e.host }

func (e *SSHExecutor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

func (e *SSHExecutor) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return CommandResult{}, fmt.Errorf("open ssh session to %s: %w", e.host, err)
	}
	defer session.Close()

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

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- session.Run(line) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return CommandResult{Duration: time.Since(start)}, ctx.Err()
	case err := <-done:
		result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		if err == nil {
			result.ExitCode = 0
			return result, nil
		}
		if exitErr, ok := err.(*ssh.ExitError); ok {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, fmt.Errorf("run %q on %s: %w", line, e.host, err)
	}
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = shellQuote(a)
	}
	return out
}

// SendFile copies localPath to remotePath on the target. Implemented as
// a plain `cat > remotePath` over a dedicated SSH session's stdin rather
// than pulling in an SFTP client: no example in the retrieval pack wires
// github.com/pkg/sftp or any other SFTP library (see DESIGN.md).
func (e *SSHExecutor) SendFile(ctx context.Context, localPath, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file %s: %w", localPath, err)
	}
	defer local.Close()

	session, err := e.client.NewSession()
	if err != nil {
		return fmt.Errorf("open ssh session to %s: %w", e.host, err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe to %s: %w", e.host, err)
	}

	cmdLine := fmt.Sprintf("cat > %s", shellQuote(remotePath))
	if err := session.Start(cmdLine); err != nil {
		return fmt.Errorf("start %q on %s: %w", cmdLine, e.host, err)
	}

	copyErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(stdin, local)
		stdin.Close()
		copyErr <- err
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return ctx.Err()
	case err := <-copyErr:
		if err != nil {
			return fmt.Errorf("send %s to %s: %w", localPath, e.host, err)
		}
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("send %s to %s:%s: %w", localPath, e.host, remotePath, err)
	}
	return nil
}

// GetFile copies remotePath from the target to localPath via `cat
// remotePath` over stdout.
func (e *SSHExecutor) GetFile(ctx context.Context, remotePath, localPath string) error {
	session, err := e.client.NewSession()
	if err != nil {
		return fmt.Errorf("open ssh session to %s: %w", e.host, err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	cmdLine := fmt.Sprintf("cat %s", shellQuote(remotePath))
	done := make(chan error, 1)
	go func() { done <- session.Run(cmdLine) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("get %s from %s: %w", remotePath, e.host, err)
		}
	}

	if err := os.WriteFile(localPath, stdout.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write local file %s: %w", localPath, err)
	}
	return nil
}
