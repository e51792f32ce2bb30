package orchestration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter is the configurable confirmation-prompt channel spec.md §4.9
// phase 4 requires, carried into the Go implementation from
// original_source/ui.py's Confirm capability (see SPEC_FULL.md's
// "Supplemented features").
type Prompter interface {
	// Confirm asks the user a yes/no question and returns their answer.
	Confirm(prompt string) (bool, error)
}

// TTYPrompter reads a yes/no answer from stdin when it is a terminal.
type TTYPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTTYPrompter returns a TTYPrompter wired to the process's stdin/stdout.
func NewTTYPrompter() *TTYPrompter {
	return &TTYPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p *TTYPrompter) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// AutoDeclinePrompter always answers no, used under --allow-consecutive
// is absent but stdin is not a TTY, or any other fully non-interactive
// run, per spec.md §4.9 phase 4's "automatic-decline mode ... for
// non-interactive runs".
type AutoDeclinePrompter struct{}

func (AutoDeclinePrompter) Confirm(prompt string) (bool, error) {
	return false, nil
}

// DefaultPrompter picks a TTYPrompter when stdin is an interactive
// terminal and an AutoDeclinePrompter otherwise, matching the
// isatty-based detection the teacher's logging sinks already use for
// color output.
func DefaultPrompter() Prompter {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewTTYPrompter()
	}
	return AutoDeclinePrompter{}
}
