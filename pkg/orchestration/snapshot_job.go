package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/snapshot"
)

// SnapshotJob is the System job instantiated twice per session (once per
// snapshot.Phase) that brackets the sync with read-only btrfs snapshots
// on both hosts, per spec.md §4.8.1.
type SnapshotJob struct {
	Phase          snapshot.Phase
	SourceManager  *snapshot.Manager
	TargetManager  *snapshot.Manager
	Subvolumes     []string
	SessionIDForAt string // when set, used instead of jc.SessionID; empty means jc.SessionID
}

// NewSnapshotJob constructs the snapshot job for one phase.
func NewSnapshotJob(phase snapshot.Phase, sourceManager, targetManager *snapshot.Manager, subvolumes []string) *SnapshotJob {
	return &SnapshotJob{Phase: phase, SourceManager: sourceManager, TargetManager: targetManager, Subvolumes: subvolumes}
}

func (j *SnapshotJob) Name() string { return "snapshot" }

func (j *SnapshotJob) Role() Role { return RoleSystem }

func (j *SnapshotJob) ConfigSchema() []byte { return nil }

func (j *SnapshotJob) ValidateConfig(section map[string]any) []ConfigError { return nil }

// Validate checks that every configured subvolume is verifiable on both
// hosts. It does not check that /.snapshots exists; Execute creates it
// through EnsureSnapshotDir when it is absent.
func (j *SnapshotJob) Validate(ctx context.Context, jc *JobContext) []ValidationError {
	var errs []ValidationError

	for _, host := range []eventbus.Host{eventbus.Source, eventbus.Target} {
		manager := j.managerFor(host)
		for _, subvolume := range j.Subvolumes {
			if err := manager.VerifySubvolume(ctx, subvolume); err != nil {
				errs = append(errs, ValidationError{Job: j.Name(), Host: host, Message: err.Error()})
			}
		}
	}

	return errs
}

// Execute ensures the snapshot directory exists and takes one snapshot
// per configured subvolume on each host.
func (j *SnapshotJob) Execute(ctx context.Context, jc *JobContext) error {
	jc.Log(eventbus.Source, eventbus.Info, fmt.Sprintf("taking %s snapshots", j.Phase), nil)
	jc.ReportProgress(eventbus.PercentOf(0))

	at := time.Now()
	sessionID := jc.SessionID
	if j.SessionIDForAt != "" {
		sessionID = j.SessionIDForAt
	}
	total := len(j.Subvolumes) * 2
	done := 0

	for _, host := range []eventbus.Host{eventbus.Source, eventbus.Target} {
		manager := j.managerFor(host)

		if err := manager.EnsureSnapshotDir(ctx); err != nil {
			return fmt.Errorf("ensure snapshot dir on %s: %w", host, err)
		}

		for _, subvolume := range j.Subvolumes {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			path, err := manager.CreateSnapshot(ctx, sessionID, j.Phase, subvolume, at)
			if err != nil {
				return fmt.Errorf("create %s snapshot of %s on %s: %w", j.Phase, subvolume, host, err)
			}
			jc.Log(host, eventbus.Info, "snapshot created", map[string]any{"path": path, "subvolume": subvolume})

			done++
			jc.ReportProgress(eventbus.PercentOf(float64(done) / float64(total) * 100))
		}
	}

	jc.Log(eventbus.Source, eventbus.Info, fmt.Sprintf("%s snapshots complete", j.Phase), nil)
	return nil
}

func (j *SnapshotJob) managerFor(host eventbus.Host) *snapshot.Manager {
	if host == eventbus.Target {
		return j.TargetManager
	}
	return j.SourceManager
}
