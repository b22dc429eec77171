package executor

import (
	"context"
	"time"

	"looprender/internal/jobs"
	"looprender/internal/pkg/logger"
)

// SimulatedRunner completes jobs without touching any media: it waits a
// fixed delay and reports success, echoing the requested duration. This
// is the default when no worker binary is configured, so the API surface
// can be exercised end to end on a laptop.
type SimulatedRunner struct {
	Delay time.Duration
	Log   *logger.Logger
}

func (r *SimulatedRunner) Run(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	delay := r.Delay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if r.Log != nil {
		r.Log.WithJobID(job.JobID).Debug("simulated render complete", "template", job.Template)
	}
	return &jobs.Result{
		OutputURL:   "https://example.com/dummy.mp4",
		DurationSec: intParam(job.Params, "durationSec"),
	}, nil
}

// intParam reads an integer out of the arbitrary params object. JSON
// numbers arrive as float64.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
