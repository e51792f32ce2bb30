package eventbus

// EventKind identifies which variant of the Event sum type is populated.
type EventKind int

const (
	KindLog EventKind = iota
	KindProgress
	KindConnection
)

// ConnectionStatus describes the state of the SSH transport to the target.
type ConnectionStatus string

const (
	ConnectionUp   ConnectionStatus = "up"
	ConnectionDown ConnectionStatus = "down"
)

// Event is the sum type carried on the bus: exactly one of Log, Progress, or
// Connection is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	// KindLog
	Log Record

	// KindProgress
	ProgressJob string
	Progress    Progress

	// KindConnection
	ConnectionStatus  ConnectionStatus
	ConnectionLatency *float64 // seconds; nil when unknown
}

// NewLogEvent builds a KindLog event.
func NewLogEvent(r Record) Event {
	return Event{Kind: KindLog, Log: r}
}

// NewProgressEvent builds a KindProgress event.
func NewProgressEvent(job string, p Progress) Event {
	return Event{Kind: KindProgress, ProgressJob: job, Progress: p}
}

// NewConnectionEvent builds a KindConnection event.
func NewConnectionEvent(status ConnectionStatus, latency *float64) Event {
	return Event{Kind: KindConnection, ConnectionStatus: status, ConnectionLatency: latency}
}
