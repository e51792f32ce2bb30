package orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
	"github.com/pcswitcher/pcswitcher/pkg/snapshot"
	"github.com/pcswitcher/pcswitcher/pkg/version"
)

// snapshotRoot is the fixed directory every host's btrfs snapshots live
// under, per spec.md §6.
const snapshotRoot = "/.snapshots/pc-switcher"

// RunOptions are the parsed CLI inputs the Orchestrator needs for one
// session, per spec.md §6's `sync` command.
type RunOptions struct {
	TargetHost       string
	SSHUser          string
	SSHPort          int
	SSHKeyPath       string
	AllowConsecutive bool
	SourceHome       string // defaults to os.UserHomeDir()
	LocalVersion     version.Version
	InstallScript    string
	ReleaseURL       string
}

// Orchestrator is the top-level state machine driving one sync session,
// grounded on grovetools-flow/pkg/orchestration/orchestrator.go's phase
// sequencing and runJobsConcurrently's semaphore/error-join pattern, with
// the structured-concurrency EXECUTE phase (spec.md §4.9 phase 9, §5)
// implemented via golang.org/x/sync/errgroup rather than a hand-rolled
// semaphore, per SPEC_FULL.md §4.9.
type Orchestrator struct {
	Config   config.Config
	Registry *Registry
	Prompter Prompter

	bus *eventbus.Bus
	log *eventbus.Logger
}

// NewOrchestrator constructs an Orchestrator with its own EventBus. Call
// Bus() to subscribe logging sinks before calling Run, so no early event
// is lost.
func NewOrchestrator(cfg config.Config, registry *Registry, prompter Prompter) *Orchestrator {
	bus := eventbus.NewBus()
	return &Orchestrator{
		Config:   cfg,
		Registry: registry,
		Prompter: prompter,
		bus:      bus,
		log:      eventbus.NewLogger(bus, ""),
	}
}

// Bus returns the session's EventBus, for sinks to subscribe to before
// Run is called.
func (o *Orchestrator) Bus() *eventbus.Bus { return o.bus }

// Run drives one session through all twelve phases of spec.md §4.9,
// returning the fully populated SyncSession regardless of outcome; a
// non-nil error is also returned for any fatal phase, but the session
// itself always carries the authoritative status and error_message.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*SyncSession, error) {
	session := &SyncSession{
		ID:        uuid.New().String()[:8],
		StartedAt: time.Now(),
		Status:    SessionRunning,
	}
	defer func() { session.EndedAt = time.Now() }()

	home := opts.SourceHome
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	// 1. ACQUIRE_SOURCE_LOCK
	sourceHostname, _ := os.Hostname()
	lockPath := lockFilePath(home)

	sourceLock, err := AcquireSourceLock(lockPath, HolderString(HistoryRoleSource, sourceHostname, session.ID))
	if err != nil {
		return o.fail(session, err)
	}
	defer sourceLock.Release()

	// 2. CONNECT
	sshExecutor, err := exec.Dial(exec.SSHConfig{
		Host:              opts.TargetHost,
		Port:              opts.SSHPort,
		User:              opts.SSHUser,
		PrivateKeyPath:    opts.SSHKeyPath,
		DefaultLoginShell: true,
	})
	if err != nil {
		return o.fail(session, fmt.Errorf("connect to target: %w", err))
	}
	defer sshExecutor.Close()

	sourceExecutor := exec.NewLocalExecutor(false)

	targetHostnameResult, err := sshExecutor.Run(ctx, exec.Command{Args: []string{"hostname"}})
	if err != nil || !targetHostnameResult.Success() {
		return o.fail(session, fmt.Errorf("resolve target hostname: %w", err))
	}
	targetHostname := strings.TrimSpace(targetHostnameResult.Stdout)

	session.SourceHostname = sourceHostname
	session.TargetHostname = targetHostname

	// 3. ACQUIRE_TARGET_LOCK
	targetLockPath := remoteLockFilePath(home)
	targetLock, err := AcquireTargetLock(ctx, sshExecutor, targetLockPath, HolderString(HistoryRoleSource, sourceHostname, session.ID))
	if err != nil {
		return o.fail(session, err)
	}
	defer targetLock.Release()

	// 4. CHECK_CONSECUTIVE_SYNC
	history, corrupted, err := ReadLocalHistory(home)
	if err != nil {
		return o.fail(session, err)
	}
	if corrupted {
		o.log.Log(eventbus.Source, eventbus.Warning, "sync history file was corrupted; assuming source", nil)
	}
	if history.LastRole == HistoryRoleSource && !opts.AllowConsecutive {
		ok, err := o.Prompter.Confirm("The last sync was also run from this machine as source. Continue?")
		if err != nil {
			return o.fail(session, err)
		}
		if !ok {
			session.Status = SessionInterrupted
			return session, nil
		}
	}

	// 5. CHECK_VERSION_COMPATIBILITY
	installJob := &InstallJob{SourceVersion: opts.LocalVersion, InstallScriptPath: opts.InstallScript, ReleaseURL: opts.ReleaseURL}

	// 6. DISCOVER_AND_VALIDATE_JOBS
	syncJobs, configErrs := o.discoverSyncJobs()
	if len(configErrs) > 0 {
		return o.fail(session, joinConfigErrors(configErrs))
	}

	sourceSnapshots := snapshot.NewManager(sourceExecutor, snapshotRoot, o.Config.BtrfsSnapshots.Subvolumes, o.Config.BtrfsSnapshots.KeepRecent, maxAgeDuration(o.Config.BtrfsSnapshots))
	targetSnapshots := snapshot.NewManager(sshExecutor, snapshotRoot, o.Config.BtrfsSnapshots.Subvolumes, o.Config.BtrfsSnapshots.KeepRecent, maxAgeDuration(o.Config.BtrfsSnapshots))

	diskSource, err := NewDiskMonitorJob(eventbus.Source, "/", o.Config.DiskSpaceMonitor)
	if err != nil {
		return o.fail(session, err)
	}
	diskTarget, err := NewDiskMonitorJob(eventbus.Target, "/", o.Config.DiskSpaceMonitor)
	if err != nil {
		return o.fail(session, err)
	}

	allJobs := append([]Job{installJob, diskSource, diskTarget}, syncJobs...)

	var validationErrs []ValidationError
	for _, job := range allJobs {
		validationErrs = append(validationErrs, job.Validate(ctx, o.jobContext(job.Name(), sourceExecutor, sshExecutor, session, sourceHostname, targetHostname))...)
	}
	if len(validationErrs) > 0 {
		return o.fail(session, joinValidationErrors(validationErrs))
	}

	// 7. PRE_SNAPSHOTS
	preSnapshot := NewSnapshotJob(snapshot.PhasePre, sourceSnapshots, targetSnapshots, o.Config.BtrfsSnapshots.Subvolumes)
	if err := preSnapshot.Execute(ctx, o.jobContext(preSnapshot.Name(), sourceExecutor, sshExecutor, session, sourceHostname, targetHostname)); err != nil {
		return o.fail(session, fmt.Errorf("pre-snapshots: %w", err))
	}

	// 8. INSTALL_ON_TARGET
	if err := installJob.Execute(ctx, o.jobContext(installJob.Name(), sourceExecutor, sshExecutor, session, sourceHostname, targetHostname)); err != nil {
		return o.fail(session, fmt.Errorf("install on target: %w", err))
	}

	// 9. EXECUTE
	jobResults, execErr := o.execute(ctx, sourceExecutor, sshExecutor, session, sourceHostname, targetHostname, syncJobs, []Job{diskSource, diskTarget})
	session.JobResults = jobResults

	// 10. POST_SNAPSHOTS
	postSnapshot := NewSnapshotJob(snapshot.PhasePost, sourceSnapshots, targetSnapshots, o.Config.BtrfsSnapshots.Subvolumes)
	if err := postSnapshot.Execute(ctx, o.jobContext(postSnapshot.Name(), sourceExecutor, sshExecutor, session, sourceHostname, targetHostname)); err != nil {
		o.log.Log(eventbus.Source, eventbus.Warning, "post-snapshot failure", map[string]any{"error": err.Error()})
	}

	// 11. RECORD_HISTORY
	if execErr == nil {
		if err := WriteLocalHistory(home, SyncHistoryEntry{LastRole: HistoryRoleSource}); err != nil {
			return o.fail(session, err)
		}
		if err := WriteRemoteHistory(ctx, sshExecutor, home, SyncHistoryEntry{LastRole: HistoryRoleTarget}); err != nil {
			return o.fail(session, fmt.Errorf("record remote history: %w", err))
		}
	}

	// 12. CLEANUP happens via the deferred Release/Close calls above,
	// and via terminate-all on both executors for any stray processes.
	sourceExecutor.TerminateAllProcesses()
	sshExecutor.TerminateAllProcesses()
	o.bus.Close()

	session.Status = classify(execErr, jobResults)
	if execErr != nil {
		session.ErrorMessage = execErr.Error()
		return session, execErr
	}
	return session, nil
}

// execute runs Background jobs and Sync jobs inside one errgroup scope:
// Background jobs are spawned first and stopped once the Sync jobs have
// finished, Sync jobs run one at a time in the order of syncJobs, and any
// error cancels the whole group, per spec.md §4.9 phase 9.
func (o *Orchestrator) execute(ctx context.Context, source, target exec.Executor, session *SyncSession, sourceHostname, targetHostname string, syncJobs, backgroundJobs []Job) ([]JobResult, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	backgroundCtx, stopBackground := context.WithCancel(groupCtx)
	defer stopBackground()
	results := make(chan JobResult, len(syncJobs)+len(backgroundJobs))

	for _, job := range backgroundJobs {
		job := job
		group.Go(func() error {
			start := time.Now()
			err := job.Execute(backgroundCtx, o.jobContext(job.Name(), source, target, session, sourceHostname, targetHostname))
			status := JobSuccess
			msg := ""
			if err != nil && !errors.Is(err, context.Canceled) {
				status = JobFailed
				msg = err.Error()
			}
			results <- JobResult{JobName: job.Name(), Status: status, StartedAt: start, EndedAt: time.Now(), ErrorMessage: msg}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		defer stopBackground()
		for _, job := range syncJobs {
			select {
			case <-groupCtx.Done():
				results <- JobResult{JobName: job.Name(), Status: JobSkipped}
				continue
			default:
			}

			start := time.Now()
			err := job.Execute(groupCtx, o.jobContext(job.Name(), source, target, session, sourceHostname, targetHostname))
			status := JobSuccess
			msg := ""
			if err != nil {
				status = JobFailed
				msg = err.Error()
			}
			results <- JobResult{JobName: job.Name(), Status: status, StartedAt: start, EndedAt: time.Now(), ErrorMessage: msg}
			if err != nil {
				return err
			}
		}
		return nil
	})

	err := group.Wait()
	close(results)

	var jobResults []JobResult
	for r := range results {
		jobResults = append(jobResults, r)
	}
	return jobResults, err
}

func (o *Orchestrator) discoverSyncJobs() ([]Job, []ConfigError) {
	var jobs []Job
	var errs []ConfigError

	for name, enabled := range o.Config.SyncJobs {
		job, ok := o.Registry.New(name)
		if !ok {
			errs = append(errs, ConfigError{Path: "sync_jobs." + name, Message: "no job registered under this name"})
			continue
		}
		if !enabled {
			continue
		}
		section := o.Config.GetJobConfig(name)
		errs = append(errs, job.ValidateConfig(section)...)
		jobs = append(jobs, job)
	}

	return jobs, errs
}

func (o *Orchestrator) fail(session *SyncSession, err error) (*SyncSession, error) {
	session.Status = SessionFailed
	session.ErrorMessage = err.Error()
	o.bus.Close()
	return session, err
}

func classify(execErr error, results []JobResult) SessionStatus {
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			return SessionInterrupted
		}
		return SessionFailed
	}
	for _, r := range results {
		if r.Status != JobSuccess {
			return SessionFailed
		}
	}
	return SessionCompleted
}

func joinConfigErrors(errs []ConfigError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("configuration errors:\n  %s", strings.Join(msgs, "\n  "))
}

func joinValidationErrors(errs []ValidationError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("validation errors:\n  %s", strings.Join(msgs, "\n  "))
}

func lockFilePath(home string) string {
	return home + "/.local/share/pc-switcher/pc-switcher.lock"
}

func remoteLockFilePath(home string) string {
	return home + "/.local/share/pc-switcher/pc-switcher.lock"
}

func maxAgeDuration(cfg config.BtrfsSnapshotsConfig) *time.Duration {
	if cfg.MaxAgeDays == nil {
		return nil
	}
	d := time.Duration(*cfg.MaxAgeDays) * 24 * time.Hour
	return &d
}

// jobContext builds a fresh JobContext for jobName, pulling that job's own
// config section so jobs never see each other's settings, per spec.md
// §4.7(e).
func (o *Orchestrator) jobContext(jobName string, source, target exec.Executor, session *SyncSession, sourceHostname, targetHostname string) *JobContext {
	return NewJobContext(jobName, o.Config.GetJobConfig(jobName), source, target, o.bus, session.ID, sourceHostname, targetHostname)
}
