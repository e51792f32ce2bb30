package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

func TestDummySuccessJobExecuteCompletes(t *testing.T) {
	job := NewDummySuccessJob(20 * time.Millisecond)
	assert.Equal(t, "dummy_success", job.Name())
	assert.Equal(t, RoleSync, job.Role())

	bus := eventbus.NewBus()
	events := bus.Subscribe()
	source := exec.NewMockExecutor("source")
	target := exec.NewMockExecutor("target")
	jc := NewJobContext(job.Name(), nil, source, target, bus, "sess", "src-host", "tgt-host")

	err := job.Execute(context.Background(), jc)
	require.NoError(t, err)

	bus.Close()
	sawFinalProgress := false
	for e := range events {
		if e.Kind == eventbus.KindProgress && e.Progress.PercentSet && e.Progress.Percent == 100 {
			sawFinalProgress = true
		}
	}
	assert.True(t, sawFinalProgress)
}

func TestDummySuccessJobExecuteRespectsCancellation(t *testing.T) {
	job := NewDummySuccessJob(time.Second)
	bus := eventbus.NewBus()
	source := exec.NewMockExecutor("source")
	target := exec.NewMockExecutor("target")
	jc := NewJobContext(job.Name(), nil, source, target, bus, "sess", "src-host", "tgt-host")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := job.Execute(ctx, jc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDummyFailureJobDefaultsFailAtPercent(t *testing.T) {
	job := NewDummyFailureJob(0, 0)
	assert.Equal(t, 60.0, job.FailAtPercent)
}

func TestDummyFailureJobExecuteFailsAtConfiguredPercent(t *testing.T) {
	job := NewDummyFailureJob(30, 0)
	bus := eventbus.NewBus()
	source := exec.NewMockExecutor("source")
	target := exec.NewMockExecutor("target")
	jc := NewJobContext(job.Name(), nil, source, target, bus, "sess", "src-host", "tgt-host")

	err := job.Execute(context.Background(), jc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "30%")
}
