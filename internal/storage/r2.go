// Package storage issues presigned URLs against an S3-compatible
// bucket, following the Cloudflare R2 conventions (account-scoped
// endpoint, region "auto").
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"looprender/internal/config"
)

// Presigner derives short-lived GET and PUT URLs for object keys.
// Presigning is pure local computation over the static credentials; no
// request leaves the process until a client uses the URL.
type Presigner struct {
	client        *minio.Client
	bucket        string
	defaultExpiry time.Duration
}

// NewPresigner builds a presigner from R2 credentials.
func NewPresigner(cfg config.R2) (*Presigner, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("incomplete R2 credentials")
	}

	endpoint := fmt.Sprintf("%s.r2.cloudflarestorage.com", cfg.AccountID)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       true,
		Region:       "auto",
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init R2 client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &Presigner{
		client:        client,
		bucket:        cfg.Bucket,
		defaultExpiry: expiry,
	}, nil
}

// PresignGet returns a presigned download URL for an object key.
func (p *Presigner) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	if expiry <= 0 {
		expiry = p.defaultExpiry
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign GET %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignPut returns a presigned upload URL for an object key.
func (p *Presigner) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	if expiry <= 0 {
		expiry = p.defaultExpiry
	}

	u, err := p.client.PresignedPutObject(ctx, p.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign PUT %s: %w", key, err)
	}
	return u.String(), nil
}
