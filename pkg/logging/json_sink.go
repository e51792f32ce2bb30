// Package logging drains an eventbus.Bus subscription into the two sinks
// spec.md §4.4 calls for: a newline-delimited JSON file per session and a
// styled terminal stream. Each sink filters independently against its own
// configured threshold, grounded on the teacher's pattern of pairing a
// structured file log with a separate human-facing stream
// (grovetools-flow/pkg/orchestration/orchestrator.go's defaultLogger).
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
)

// JSONSink writes one JSON object per line to a session log file. Fields
// always present: timestamp, level, event. job/host are omitted when the
// record doesn't carry them. Context map entries appear as sibling
// top-level keys (flat only; spec.md's original logger.py flattens one
// level and so does this sink).
type JSONSink struct {
	level eventbus.Level
	file  *os.File
	enc   *json.Encoder
}

// LogFilePath returns the per-session log file path per spec.md §6:
// ~/.local/share/pc-switcher/logs/sync-<YYYYMMDDThhmmss>-<session_id>.log.
func LogFilePath(home string, sessionID string, at time.Time) string {
	name := fmt.Sprintf("sync-%s-%s.log", at.Format("20060102T150405"), sessionID)
	return filepath.Join(home, ".local", "share", "pc-switcher", "logs", name)
}

// NewJSONSink creates the log directory on demand and opens the session
// log file for appending.
func NewJSONSink(path string, level eventbus.Level) (*JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return &JSONSink{level: level, file: f, enc: json.NewEncoder(f)}, nil
}

// Run drains events until the channel closes, writing each one that meets
// this sink's level threshold. Intended to run in its own goroutine.
func (s *JSONSink) Run(events <-chan eventbus.Event) {
	for e := range events {
		s.handle(e)
	}
}

func (s *JSONSink) handle(e eventbus.Event) {
	rec, ok := asRecord(e)
	if !ok {
		return
	}
	if rec.Level < s.level {
		return
	}

	line := map[string]any{
		"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
		"level":     rec.Level.String(),
		"event":     rec.Message,
	}
	if rec.HasJob() {
		line["job"] = rec.Job
	}
	if rec.HasHost() {
		line["host"] = string(rec.Host)
	}
	for k, v := range rec.Context {
		line[k] = v
	}

	_ = s.enc.Encode(line)
}

// Close flushes and closes the underlying log file.
func (s *JSONSink) Close() error {
	return s.file.Close()
}

// asRecord converts a LogEvent or ProgressEvent into the Record shape the
// sinks render; progress becomes a FULL-level "progress_update" record
// with the update's fields flattened, per spec.md §4.4.
func asRecord(e eventbus.Event) (eventbus.Record, bool) {
	switch e.Kind {
	case eventbus.KindLog:
		return e.Log, true
	case eventbus.KindProgress:
		return progressToRecord(e.ProgressJob, e.Progress), true
	default:
		return eventbus.Record{}, false
	}
}

func progressToRecord(job string, p eventbus.Progress) eventbus.Record {
	ctx := map[string]any{}
	if p.PercentSet {
		ctx["percent"] = p.Percent
	}
	if p.CurrentSet {
		ctx["current"] = p.Current
	}
	if p.TotalSet {
		ctx["total"] = p.Total
	}
	if p.Heartbeat {
		ctx["heartbeat"] = true
	}
	if p.CurrentItem != "" {
		ctx["current_item"] = p.CurrentItem
	}
	return eventbus.Record{
		Timestamp: time.Now(),
		Level:     eventbus.Full,
		Job:       job,
		Message:   "progress_update",
		Context:   ctx,
	}
}
