// Package eventbus fans out log records, progress updates, and connection
// status changes from orchestration code to one or more subscribers (file
// sinks, terminal sinks) without coupling publishers to consumers.
package eventbus

import (
	"fmt"
	"strings"
)

// Level is a totally ordered logging threshold.
type Level int

const (
	Debug Level = iota
	Full
	Info
	Warning
	Error
	Critical
)

// ParseLevel parses a case-insensitive level name, as found in config.yaml.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return Debug, nil
	case "FULL":
		return Full, nil
	case "INFO":
		return Info, nil
	case "WARNING":
		return Warning, nil
	case "ERROR":
		return Error, nil
	case "CRITICAL":
		return Critical, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// String renders the level the way it is written to JSON and the terminal.
func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Full:
		return "FULL"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the level as its string name.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}
