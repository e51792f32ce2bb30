package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

func TestParseDfOutput(t *testing.T) {
	free, total, err := parseDfOutput("Filesystem     1B-blocks        Used    Available Capacity Mounted on\n/dev/sda1  1000000000  400000000  600000000      40% /\n")
	require.NoError(t, err)
	assert.Equal(t, int64(600000000), free)
	assert.Equal(t, int64(1000000000), total)
}

func TestParseDfOutputMalformed(t *testing.T) {
	_, _, err := parseDfOutput("garbage")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.0KiB", formatBytes(1024))
}

func TestNewDiskMonitorJobParsesThresholdsOnce(t *testing.T) {
	job, err := NewDiskMonitorJob(eventbus.Source, "/", config.DiskSpaceMonitorConfig{
		PreflightMinimum: "20%",
		RuntimeMinimum:   "15%",
		WarningThreshold: "25%",
		CheckInterval:    30,
	})
	require.NoError(t, err)
	assert.Equal(t, "disk_space_monitor_source", job.Name())
	assert.Equal(t, RoleBackground, job.Role())
	assert.Equal(t, 30*time.Second, job.CheckInterval)
	assert.Equal(t, config.ThresholdPercent, job.RuntimeMinimum.Kind)
	assert.Equal(t, 15.0, job.RuntimeMinimum.Percent)
	assert.Equal(t, 25.0, job.WarningThreshold.Percent)
}

func TestNewDiskMonitorJobRejectsBadThreshold(t *testing.T) {
	_, err := NewDiskMonitorJob(eventbus.Source, "/", config.DiskSpaceMonitorConfig{
		PreflightMinimum: "not-a-threshold",
		RuntimeMinimum:   "15%",
		WarningThreshold: "25%",
		CheckInterval:    30,
	})
	assert.Error(t, err)
}

func TestDiskMonitorJobExecuteReturnsCriticalErrorOnLowSpace(t *testing.T) {
	job, err := NewDiskMonitorJob(eventbus.Source, "/", config.DiskSpaceMonitorConfig{
		PreflightMinimum: "20%",
		RuntimeMinimum:   "15%",
		WarningThreshold: "25%",
		CheckInterval:    1,
	})
	require.NoError(t, err)
	job.CheckInterval = time.Millisecond

	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		return exec.CommandResult{ExitCode: 0, Stdout: "Filesystem 1B-blocks Used Available Capacity Mounted on\n/dev/sda1 1000000000 990000000 10000000 99% /\n"}, nil
	}

	bus := eventbus.NewBus()
	jc := NewJobContext(job.Name(), nil, executor, executor, bus, "sess", "src-host", "tgt-host")

	err = job.Execute(context.Background(), jc)
	var critical *DiskSpaceCriticalError
	require.Error(t, err)
	require.ErrorAs(t, err, &critical)
	assert.Equal(t, "src-host", critical.Hostname)
}

func TestDiskMonitorJobExecuteStopsOnCancel(t *testing.T) {
	job, err := NewDiskMonitorJob(eventbus.Source, "/", config.DiskSpaceMonitorConfig{
		PreflightMinimum: "20%",
		RuntimeMinimum:   "15%",
		WarningThreshold: "25%",
		CheckInterval:    1,
	})
	require.NoError(t, err)
	job.CheckInterval = time.Millisecond

	executor := exec.NewMockExecutor("source")
	executor.RunFunc = func(ctx context.Context, cmd exec.Command) (exec.CommandResult, error) {
		return exec.CommandResult{ExitCode: 0, Stdout: "Filesystem 1B-blocks Used Available Capacity Mounted on\n/dev/sda1 1000000000 100000000 900000000 10% /\n"}, nil
	}

	bus := eventbus.NewBus()
	jc := NewJobContext(job.Name(), nil, executor, executor, bus, "sess", "src-host", "tgt-host")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = job.Execute(ctx, jc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
