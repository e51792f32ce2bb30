package eventbus

import "time"

// Host tags a fact as belonging to one of the two machines in a session.
type Host string

const (
	Source Host = "source"
	Target Host = "target"
)

// Record is the immutable payload of one log line, produced once by a
// publisher and fanned out to every sink unmodified.
type Record struct {
	Timestamp time.Time
	Level     Level
	Job       string // empty when not scoped to a job
	Host      Host   // empty when not scoped to a host
	Message   string
	Context   map[string]any
}

// HasJob reports whether the record carries a job scope.
func (r Record) HasJob() bool { return r.Job != "" }

// HasHost reports whether the record carries a host scope.
func (r Record) HasHost() bool { return r.Host != "" }

// Progress describes a job's progress at a point in time. Any subset of the
// fields may be set; Percent is only meaningful when PercentSet is true, and
// Total is only meaningful when TotalSet is true.
type Progress struct {
	PercentSet bool
	Percent    float64 // [0, 100]

	CurrentSet bool
	Current    int64

	TotalSet bool
	Total    int64

	Heartbeat bool

	CurrentItem string
}

// PercentOf returns a Progress carrying only a percent value.
func PercentOf(pct float64) Progress {
	return Progress{PercentSet: true, Percent: pct}
}

// CountOf returns a Progress carrying a current/total pair.
func CountOf(current, total int64) Progress {
	p := Progress{CurrentSet: true, Current: current}
	if total > 0 {
		p.TotalSet = true
		p.Total = total
	}
	return p
}

// HeartbeatProgress returns a Progress carrying only the heartbeat marker.
func HeartbeatProgress() Progress {
	return Progress{Heartbeat: true}
}

// WithItem returns a copy of p with CurrentItem set.
func (p Progress) WithItem(item string) Progress {
	p.CurrentItem = item
	return p
}

// Valid reports whether the progress value is internally consistent: a
// percent, if set, must fall in [0,100], and a current count must not
// exceed its total when both are set.
func (p Progress) Valid() bool {
	if p.PercentSet && (p.Percent < 0 || p.Percent > 100) {
		return false
	}
	if p.TotalSet && p.CurrentSet && p.Current > p.Total {
		return false
	}
	return true
}
