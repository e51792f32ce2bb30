package eventbus

import "time"

// Logger is a convenience wrapper around a Bus that stamps every record it
// publishes with a job name bound once at construction. The Orchestrator
// itself uses a Logger with an empty job name (or "orchestrator"), per
// spec.md's invariant that orchestrator-emitted records never carry an
// unrelated job field.
type Logger struct {
	bus *Bus
	job string
}

// NewLogger returns a Logger that stamps every LogEvent/ProgressEvent it
// publishes with job. Pass "" for code that is not scoped to a job (e.g.
// the orchestrator itself).
func NewLogger(bus *Bus, job string) *Logger {
	return &Logger{bus: bus, job: job}
}

// Log publishes a LogEvent built from the given fields.
func (l *Logger) Log(host Host, level Level, message string, context map[string]any) {
	l.bus.Publish(NewLogEvent(Record{
		Timestamp: time.Now(),
		Level:     level,
		Job:       l.job,
		Host:      host,
		Message:   message,
		Context:   context,
	}))
}

// ReportProgress publishes a ProgressEvent scoped to this logger's job.
func (l *Logger) ReportProgress(update Progress) {
	l.bus.Publish(NewProgressEvent(l.job, update))
}
