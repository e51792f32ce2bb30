package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
)

// DummySuccessJob is the reference Sync job used to smoke-test the
// pipeline, per spec.md §4.8.4: runs a configurable duration split into
// a source half and a target half, logging INFO every two seconds and
// one WARNING mid-way through each half, reporting progress at
// 0/25/50/75/100, and handling cancellation cooperatively.
type DummySuccessJob struct {
	Duration time.Duration
}

func NewDummySuccessJob(duration time.Duration) *DummySuccessJob {
	return &DummySuccessJob{Duration: duration}
}

func (j *DummySuccessJob) Name() string { return "dummy_success" }

func (j *DummySuccessJob) Role() Role { return RoleSync }

func (j *DummySuccessJob) ConfigSchema() []byte {
	return []byte(`{"type":"object","properties":{"duration_seconds":{"type":"number","minimum":0}},"additionalProperties":false}`)
}

func (j *DummySuccessJob) ValidateConfig(section map[string]any) []ConfigError {
	if v, ok := section["duration_seconds"]; ok {
		switch v.(type) {
		case int, int64, float64:
		default:
			return []ConfigError{{Job: j.Name(), Path: "duration_seconds", Message: "must be a number"}}
		}
	}
	return nil
}

func (j *DummySuccessJob) Validate(ctx context.Context, jc *JobContext) []ValidationError { return nil }

func (j *DummySuccessJob) Execute(ctx context.Context, jc *JobContext) error {
	duration := j.Duration
	switch n := jc.Config["duration_seconds"].(type) {
	case int:
		duration = time.Duration(n) * time.Second
	case float64:
		duration = time.Duration(n * float64(time.Second))
	}
	half := duration / 2

	jc.ReportProgress(eventbus.PercentOf(0))
	if err := j.runHalf(ctx, jc, eventbus.Source, half, 0, 50); err != nil {
		return err
	}
	if err := j.runHalf(ctx, jc, eventbus.Target, half, 50, 100); err != nil {
		return err
	}
	jc.ReportProgress(eventbus.PercentOf(100))
	return nil
}

func (j *DummySuccessJob) runHalf(ctx context.Context, jc *JobContext, host eventbus.Host, duration time.Duration, startPct, endPct float64) error {
	jc.Log(host, eventbus.Info, fmt.Sprintf("%s phase starting", host), nil)
	jc.ReportProgress(eventbus.PercentOf(startPct + (endPct-startPct)/2))

	tickInterval := 2 * time.Second
	if duration < tickInterval {
		tickInterval = duration
	}
	ticker := time.NewTicker(max(tickInterval, time.Millisecond))
	defer ticker.Stop()

	deadline := time.Now().Add(duration)
	warned := false

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			jc.Log(host, eventbus.Warning, "cancelled", nil)
			return ctx.Err()
		case <-ticker.C:
			jc.Log(host, eventbus.Info, fmt.Sprintf("%s phase progressing", host), nil)
			if !warned && time.Now().After(deadline.Add(-duration/2)) {
				jc.Log(host, eventbus.Warning, fmt.Sprintf("%s phase halfway checkpoint", host), nil)
				warned = true
			}
		}
	}

	jc.ReportProgress(eventbus.PercentOf(endPct))
	jc.Log(host, eventbus.Info, fmt.Sprintf("%s phase complete", host), nil)
	return nil
}

// DummyFailureJob is the reference Sync job used to exercise failure
// handling: progress in 10-point steps, a CRITICAL log at
// fail_at_percent (default 60), then a raised error.
type DummyFailureJob struct {
	FailAtPercent float64
	StepDuration  time.Duration
}

func NewDummyFailureJob(failAtPercent float64, stepDuration time.Duration) *DummyFailureJob {
	if failAtPercent <= 0 {
		failAtPercent = 60
	}
	return &DummyFailureJob{FailAtPercent: failAtPercent, StepDuration: stepDuration}
}

func (j *DummyFailureJob) Name() string { return "dummy_failure" }

func (j *DummyFailureJob) Role() Role { return RoleSync }

func (j *DummyFailureJob) ConfigSchema() []byte {
	return []byte(`{"type":"object","properties":{"fail_at_percent":{"type":"number","minimum":0,"maximum":100}},"additionalProperties":false}`)
}

func (j *DummyFailureJob) ValidateConfig(section map[string]any) []ConfigError { return nil }

func (j *DummyFailureJob) Validate(ctx context.Context, jc *JobContext) []ValidationError { return nil }

func (j *DummyFailureJob) Execute(ctx context.Context, jc *JobContext) error {
	failAt := j.FailAtPercent
	switch n := jc.Config["fail_at_percent"].(type) {
	case int:
		failAt = float64(n)
	case float64:
		failAt = n
	}

	for pct := 0.0; pct <= 100; pct += 10 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		jc.ReportProgress(eventbus.PercentOf(pct))

		if pct >= failAt {
			jc.Log(eventbus.Source, eventbus.Critical, fmt.Sprintf("dummy_failure triggering at %.0f%%", pct), nil)
			return fmt.Errorf("dummy_failure: induced failure at %.0f%%", pct)
		}

		if j.StepDuration > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.StepDuration):
			}
		}
	}
	return nil
}
