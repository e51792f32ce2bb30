// Package orchestration implements the session lifecycle: locking,
// version compatibility checks, the job framework, and the twelve-phase
// Orchestrator state machine that drives a single sync run (spec.md
// §4.8-4.9). Grounded on grovetools-flow/pkg/orchestration's shape
// (Orchestrator/Executor registry/JobType enum/lockfile), generalized
// from an AI-coding-agent pipeline to pc-switcher's desktop-sync domain.
package orchestration

import (
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
)

// Role determines when a Job runs within a session, per spec.md §4.8.
type Role string

const (
	// RoleSystem jobs are required infrastructure; they always run
	// regardless of sync_jobs config (the snapshot and install jobs).
	RoleSystem Role = "system"
	// RoleSync jobs are user-facing and run only when enabled in
	// sync_jobs, one at a time. They run in the iteration order of the
	// sync_jobs map, which is not defined; the order written in
	// config.yaml is not kept.
	RoleSync Role = "sync"
	// RoleBackground jobs run for the duration of the Sync-job stage,
	// sharing its structured-concurrency scope (the disk monitor).
	RoleBackground Role = "background"
)

// SessionStatus classifies a SyncSession's outcome, per spec.md §3.
type SessionStatus string

const (
	SessionRunning     SessionStatus = "RUNNING"
	SessionCompleted   SessionStatus = "COMPLETED"
	SessionFailed      SessionStatus = "FAILED"
	SessionInterrupted SessionStatus = "INTERRUPTED"
)

// JobStatus classifies a single job's outcome within a session.
type JobStatus string

const (
	JobSuccess JobStatus = "SUCCESS"
	JobFailed  JobStatus = "FAILED"
	JobSkipped JobStatus = "SKIPPED"
)

// JobResult records one job's outcome, per spec.md §3.
type JobResult struct {
	JobName      string
	Status       JobStatus
	StartedAt    time.Time
	EndedAt      time.Time
	ErrorMessage string
}

// SyncSession is the top-level record of one end-to-end sync run, per
// spec.md §3. Created at the start of Orchestrator.Run and fully
// populated on return.
type SyncSession struct {
	ID             string
	StartedAt      time.Time
	EndedAt        time.Time
	SourceHostname string
	TargetHostname string
	Status         SessionStatus
	JobResults     []JobResult
	ErrorMessage   string
}

// ValidationError is produced by Job.Validate; collected across every
// job and never raised directly, per spec.md §3.
type ValidationError struct {
	Job     string
	Host    eventbus.Host
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigError is produced while loading and validating config.yaml; like
// ValidationError it is collected and reported together rather than
// raised as soon as it is found.
type ConfigError struct {
	Job     string // empty when the error is not job-scoped
	Path    string
	Message string
}

func (e ConfigError) Error() string {
	if e.Job != "" {
		return e.Job + ": " + e.Path + ": " + e.Message
	}
	return e.Path + ": " + e.Message
}

// DiskSpaceCriticalError is raised by the disk-space monitor job when
// free space drops below runtime_minimum, per spec.md §4.8.3. It
// terminates the Background job and, because the job shares the
// session's structured-concurrency scope, cancels every other running
// job.
type DiskSpaceCriticalError struct {
	Host      eventbus.Host
	Hostname  string
	FreeBytes int64
	Threshold string
}

func (e *DiskSpaceCriticalError) Error() string {
	return "disk space critical on " + e.Hostname + ": below " + e.Threshold
}

// SyncHistoryEntry is persisted at
// ~/.local/share/pc-switcher/sync-history.json on each host, per
// spec.md §3 and §4.9 phase 4/11.
type SyncHistoryEntry struct {
	LastRole string `json:"last_role"`
}

const (
	HistoryRoleSource = "source"
	HistoryRoleTarget = "target"
)
