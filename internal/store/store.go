// Package store persists job records behind a small interface so the
// backing engine can be swapped without touching the API or executor.
package store

import (
	"context"
	"fmt"

	"looprender/internal/config"
	"looprender/internal/jobs"
)

// Store is the job persistence contract.
//
// CreateOrFind inserts the job unless another record already carries
// its clientJobId, in which case that record is returned instead. The
// check and the insert are a single atomic operation, so concurrent
// submissions sharing a clientJobId can never both create a record.
//
// Update applies mutate to the stored record and persists the outcome
// atomically with respect to other Updates of the same job. If mutate
// returns an error nothing is written.
type Store interface {
	Create(ctx context.Context, job *jobs.Job) error
	// CreateOrFind returns the stored record and whether it was created
	// by this call. A job without a clientJobId is always created.
	CreateOrFind(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error)
	Get(ctx context.Context, jobID string) (*jobs.Job, error)
	// FindByClientJobID returns (nil, nil) when no record matches.
	FindByClientJobID(ctx context.Context, clientJobID string) (*jobs.Job, error)
	Update(ctx context.Context, jobID string, mutate func(*jobs.Job) error) (*jobs.Job, error)
	Close() error
}

// New builds the store selected by configuration.
func New(ctx context.Context, cfg *config.API) (Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(ctx, cfg.RedisURL)
	case "postgres":
		return NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
