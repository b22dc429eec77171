// Package handlers implements the HTTP endpoints of the looprender API.
package handlers

import (
	"context"
	"time"

	"looprender/internal/pkg/logger"
	"looprender/internal/store"
)

// Submitter dispatches a created job for asynchronous execution.
type Submitter interface {
	Submit(jobID string) error
}

// Signer issues presigned URLs for object keys.
type Signer interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SignerFactory derives a signer from the current environment. The
// sign endpoint holds no state; every request builds a fresh one.
type SignerFactory func() (Signer, error)

// Handlers bundles the dependencies of all endpoints.
type Handlers struct {
	Log       *logger.Logger
	Store     store.Store
	Executor  Submitter
	NewSigner SignerFactory
}
