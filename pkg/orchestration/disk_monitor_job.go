package orchestration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

// DiskMonitorJob polls free space on one host for the duration of the
// Sync-job stage, per spec.md §4.8.3. One instance runs against the
// source, a second against the target; both are Background jobs sharing
// the EXECUTE phase's structured-concurrency scope, grounded on
// original_source/jobs/disk_space_monitor.py.
type DiskMonitorJob struct {
	Host             eventbus.Host
	MountPoint       string
	PreflightMinimum config.Threshold
	RuntimeMinimum   config.Threshold
	WarningThreshold config.Threshold
	CheckInterval    time.Duration
}

// NewDiskMonitorJob constructs a monitor for one host from its config
// section's threshold strings, parsing each once at construction, per
// spec.md §4.8.3: "thresholds (parsed once at construction)".
func NewDiskMonitorJob(host eventbus.Host, mountPoint string, cfg config.DiskSpaceMonitorConfig) (*DiskMonitorJob, error) {
	preflight, err := config.ParseThreshold(cfg.PreflightMinimum)
	if err != nil {
		return nil, fmt.Errorf("disk_space_monitor.preflight_minimum: %w", err)
	}
	runtime, err := config.ParseThreshold(cfg.RuntimeMinimum)
	if err != nil {
		return nil, fmt.Errorf("disk_space_monitor.runtime_minimum: %w", err)
	}
	warning, err := config.ParseThreshold(cfg.WarningThreshold)
	if err != nil {
		return nil, fmt.Errorf("disk_space_monitor.warning_threshold: %w", err)
	}

	return &DiskMonitorJob{
		Host:             host,
		MountPoint:       mountPoint,
		PreflightMinimum: preflight,
		RuntimeMinimum:   runtime,
		WarningThreshold: warning,
		CheckInterval:    time.Duration(cfg.CheckInterval) * time.Second,
	}, nil
}

func (j *DiskMonitorJob) Name() string { return "disk_space_monitor_" + string(j.Host) }

func (j *DiskMonitorJob) Role() Role { return RoleBackground }

func (j *DiskMonitorJob) ConfigSchema() []byte { return nil }

func (j *DiskMonitorJob) ValidateConfig(section map[string]any) []ConfigError { return nil }

// Validate checks the monitored mount point exists and, when df can be
// read, that its free space meets PreflightMinimum.
func (j *DiskMonitorJob) Validate(ctx context.Context, jc *JobContext) []ValidationError {
	result, err := jc.Executor(j.Host).Run(ctx, exec.Command{Args: []string{"test", "-d", j.MountPoint}})
	if err != nil || !result.Success() {
		return []ValidationError{{
			Job:     j.Name(),
			Host:    j.Host,
			Message: fmt.Sprintf("mount point %s does not exist on %s", j.MountPoint, j.Host),
		}}
	}
	if free, total, err := j.check(ctx, jc.Executor(j.Host)); err == nil && !j.PreflightMinimum.Satisfied(free, total) {
		return []ValidationError{{
			Job:     j.Name(),
			Host:    j.Host,
			Message: fmt.Sprintf("free space %s on %s is below preflight_minimum %s", formatBytes(free), j.Host, j.PreflightMinimum.String()),
		}}
	}
	return nil
}

// Execute loops, checking free space every CheckInterval, until ctx is
// cancelled or a DiskSpaceCriticalError is raised.
func (j *DiskMonitorJob) Execute(ctx context.Context, jc *JobContext) error {
	executor := jc.Executor(j.Host)
	hostname := jc.Hostname(j.Host)

	ticker := time.NewTicker(j.CheckInterval)
	defer ticker.Stop()

	for {
		free, total, err := j.check(ctx, executor)
		if err != nil {
			jc.Log(j.Host, eventbus.Warning, "disk space check failed", map[string]any{"error": err.Error()})
		} else {
			if err := j.evaluate(jc, hostname, free, total); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			jc.Log(j.Host, eventbus.Info, "disk monitor stopping", nil)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (j *DiskMonitorJob) evaluate(jc *JobContext, hostname string, free, total int64) error {
	if j.WarningThreshold.Satisfied(free, total) {
		jc.ReportProgress(eventbus.HeartbeatProgress())
		return nil
	}

	if j.RuntimeMinimum.Satisfied(free, total) {
		jc.Log(j.Host, eventbus.Warning, "disk space low", map[string]any{
			"available_formatted": formatBytes(free),
			"warning_threshold":   j.WarningThreshold.String(),
		})
		return nil
	}

	jc.Log(j.Host, eventbus.Critical, "disk space critical", map[string]any{
		"available_formatted": formatBytes(free),
		"runtime_minimum":     j.RuntimeMinimum.String(),
	})
	return &DiskSpaceCriticalError{
		Host:      j.Host,
		Hostname:  hostname,
		FreeBytes: free,
		Threshold: j.RuntimeMinimum.String(),
	}
}

func (j *DiskMonitorJob) check(ctx context.Context, executor exec.Executor) (free, total int64, err error) {
	result, err := executor.Run(ctx, exec.Command{Args: []string{"df", "-P", "-B1", j.MountPoint}})
	if err != nil {
		return 0, 0, err
	}
	if !result.Success() {
		return 0, 0, fmt.Errorf("df exited %d: %s", result.ExitCode, result.Stderr)
	}
	return parseDfOutput(result.Stdout)
}

// parseDfOutput parses the second line of `df -P -B1`'s output:
// filesystem, 1024-blocks(bytes), used, available, capacity, mounted-on.
func parseDfOutput(output string) (free, total int64, err error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return 0, 0, fmt.Errorf("unexpected df output: %q", output)
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 4 {
		return 0, 0, fmt.Errorf("unexpected df output fields: %q", lines[len(lines)-1])
	}

	total, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse df total: %w", err)
	}
	free, err = strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse df available: %w", err)
	}
	return free, total, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
