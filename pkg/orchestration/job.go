package orchestration

import (
	"context"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

// JobContext is the immutable per-job bundle every Job.Validate/Execute
// call receives, per spec.md §3 and the "explicit context parameter"
// design note in spec.md §9 (replacing the source's post-construction
// callback injection).
type JobContext struct {
	Config         map[string]any
	Source         exec.Executor
	Target         exec.Executor
	Bus            *eventbus.Bus
	SessionID      string
	SourceHostname string
	TargetHostname string

	logger *eventbus.Logger
}

// NewJobContext builds a JobContext bound to jobName's own Logger, so
// every log/progress call the job makes is automatically stamped with
// its name (spec.md §4.8: "jobs share a helper API... that automatically
// stamps the record with the job's name").
func NewJobContext(jobName string, config map[string]any, source, target exec.Executor, bus *eventbus.Bus, sessionID, sourceHostname, targetHostname string) *JobContext {
	return &JobContext{
		Config:         config,
		Source:         source,
		Target:         target,
		Bus:            bus,
		SessionID:      sessionID,
		SourceHostname: sourceHostname,
		TargetHostname: targetHostname,
		logger:         eventbus.NewLogger(bus, jobName),
	}
}

// Log publishes a LogEvent scoped to this job.
func (c *JobContext) Log(host eventbus.Host, level eventbus.Level, message string, context map[string]any) {
	c.logger.Log(host, level, message, context)
}

// ReportProgress publishes a ProgressEvent scoped to this job.
func (c *JobContext) ReportProgress(update eventbus.Progress) {
	c.logger.ReportProgress(update)
}

// Executor returns the Executor for host.
func (c *JobContext) Executor(host eventbus.Host) exec.Executor {
	if host == eventbus.Target {
		return c.Target
	}
	return c.Source
}

// Hostname returns the resolved hostname for host.
func (c *JobContext) Hostname(host eventbus.Host) string {
	if host == eventbus.Target {
		return c.TargetHostname
	}
	return c.SourceHostname
}

// Job is the single model spec.md §9 mandates in place of the source's
// two overlapping hierarchies: one interface, one execute() method,
// floating-point progress in [0, 100].
type Job interface {
	// Name identifies the job in config, logs, and JobResult records.
	Name() string
	// Role determines when this job runs (System/Sync/Background).
	Role() Role
	// ConfigSchema returns this job's declared JSON Schema for its
	// per-job config section, as raw JSON bytes (spec.md §4.8: "a
	// JSON-schema description of its config"). Jobs with no
	// configuration return nil.
	ConfigSchema() []byte
	// ValidateConfig is a pure, class-level check of a decoded config
	// section, run before any job instance is constructed.
	ValidateConfig(section map[string]any) []ConfigError
	// Validate probes the live system; it must not mutate state. Used
	// by the Orchestrator's DISCOVER_AND_VALIDATE_JOBS phase.
	Validate(ctx context.Context, jc *JobContext) []ValidationError
	// Execute performs the job's work. It must honor ctx cancellation
	// promptly, call jc.ReportProgress at minimum at 0 and 100 (or
	// their equivalent), and emit INFO logs at phase boundaries.
	Execute(ctx context.Context, jc *JobContext) error
}

// Constructor builds a fresh Job instance, used by the Registry so the
// same job type can be instantiated once per session.
type Constructor func() Job

// Registry maps a job's config name to its Constructor, mirroring
// grovetools-flow/pkg/orchestration/executor.go's ExecutorRegistry shape
// (map + Register/Get) but keyed by job name rather than JobType, since
// pc-switcher's jobs are plugged in by name from sync_jobs, not dispatched
// by a fixed type enum.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register adds a job constructor under name. Re-registering the same
// name overwrites the previous constructor, matching
// ExecutorRegistry.Register's behavior.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// New constructs a fresh Job instance for name, or reports ok=false if
// no constructor is registered under that name.
func (r *Registry) New(name string) (Job, bool) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Names returns every registered job name, in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}
