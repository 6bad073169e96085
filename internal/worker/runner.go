// Package worker runs the scheduled pipeline jobs against the API.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pipeline defines the API operations the scheduled jobs call.
type Pipeline interface {
	ProcessRecurring(ctx context.Context) (*RecurringRun, error)
	SendBudgetAlerts(ctx context.Context) (*BudgetAlertRun, error)
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job      string
	Attempts int
	Summary  any
	Err      error
}

// Runner executes jobs with retries and exponential backoff.
type Runner struct {
	pipeline    Pipeline
	maxAttempts int
	log         *zap.SugaredLogger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner that tries each job at most maxAttempts times.
func NewRunner(pipeline Pipeline, maxAttempts int, log *zap.SugaredLogger) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{
		pipeline:    pipeline,
		maxAttempts: maxAttempts,
		log:         log,
		sleep:       sleepContext,
	}
}

// Run executes the named jobs in order. A failed job does not stop the rest.
func (r *Runner) Run(ctx context.Context, jobs []string) []JobResult {
	results := make([]JobResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, r.runJob(ctx, job))
	}
	return results
}

func (r *Runner) runJob(ctx context.Context, job string) JobResult {
	result := JobResult{Job: job}
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result.Attempts = attempt
		result.Summary, result.Err = r.call(ctx, job)
		if result.Err == nil {
			r.log.Infow("job completed", "job", job, "attempt", attempt, "summary", result.Summary)
			return result
		}
		if attempt == r.maxAttempts {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		r.log.Warnw("job failed, retrying", "job", job, "attempt", attempt, "backoff", backoff, "error", result.Err)
		if err := r.sleep(ctx, backoff); err != nil {
			result.Err = err
			break
		}
	}
	r.log.Errorw("job failed", "job", job, "attempts", result.Attempts, "error", result.Err)
	return result
}

func (r *Runner) call(ctx context.Context, job string) (any, error) {
	switch job {
	case JobRecurring:
		return r.pipeline.ProcessRecurring(ctx)
	case JobBudgetAlerts:
		return r.pipeline.SendBudgetAlerts(ctx)
	default:
		return nil, fmt.Errorf("unknown job %q", job)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Failed reports whether any result carries an error.
func Failed(results []JobResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}
