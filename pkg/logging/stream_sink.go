package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
)

// levelStyles keys lipgloss styles off LogLevel the way spec.md §4.4
// prescribes: DEBUG=dim, FULL=cyan, INFO=green, WARNING=yellow, ERROR=red,
// CRITICAL=bold red. Grounded on the lipgloss level-coloring idiom used
// throughout the pack's TUI-adjacent examples.
var levelStyles = map[eventbus.Level]lipgloss.Style{
	eventbus.Debug:    lipgloss.NewStyle().Faint(true),
	eventbus.Full:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	eventbus.Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	eventbus.Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	eventbus.Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	eventbus.Critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
}

var (
	jobStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	hostStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// StreamSink writes level-colored, human-readable lines to an io.Writer
// (typically process stderr). Format: "HH:MM:SS [LEVEL   ] [job] (host)
// message key=value ...", with [job] and (host) omitted when absent.
type StreamSink struct {
	level  eventbus.Level
	out    io.Writer
	colors bool
}

// NewStreamSink wires a stream sink to w. Colors are enabled only when w is
// a TTY (go-isatty), matching the pack's habit of disabling ANSI when
// stderr is redirected to a file or pipe.
func NewStreamSink(out io.Writer, level eventbus.Level) *StreamSink {
	colors := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		colors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &StreamSink{level: level, out: out, colors: colors}
}

// Run drains events until the channel closes, writing each one that meets
// this sink's level threshold.
func (s *StreamSink) Run(events <-chan eventbus.Event) {
	for e := range events {
		s.handle(e)
	}
}

func (s *StreamSink) handle(e eventbus.Event) {
	rec, ok := asRecord(e)
	if !ok {
		return
	}
	if rec.Level < s.level {
		return
	}
	fmt.Fprintln(s.out, s.render(rec))
}

func (s *StreamSink) render(rec eventbus.Record) string {
	var b strings.Builder

	b.WriteString(s.style(dimStyle, rec.Timestamp.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(s.style(levelStyles[rec.Level], fmt.Sprintf("[%-8s]", rec.Level.String())))

	if rec.HasJob() {
		b.WriteByte(' ')
		b.WriteString(s.style(jobStyle, fmt.Sprintf("[%s]", rec.Job)))
	}
	if rec.HasHost() {
		b.WriteByte(' ')
		b.WriteString(s.style(hostStyle, fmt.Sprintf("(%s)", rec.Host)))
	}

	b.WriteByte(' ')
	b.WriteString(rec.Message)

	if len(rec.Context) > 0 {
		keys := make([]string, 0, len(rec.Context))
		for k := range rec.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, rec.Context[k]))
		}
		b.WriteByte(' ')
		b.WriteString(s.style(dimStyle, strings.Join(pairs, " ")))
	}

	return b.String()
}

func (s *StreamSink) style(style lipgloss.Style, text string) string {
	if !s.colors {
		return text
	}
	return style.Render(text)
}
