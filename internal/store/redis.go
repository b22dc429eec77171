package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"looprender/internal/jobs"
	"looprender/internal/pkg/errors"
)

const (
	redisJobKeyPrefix = "looprender:jobs:"
	redisClientIndex  = "looprender:jobs:by-client"
)

// Redis persists job records as JSON values, with a hash index mapping
// clientJobId to jobId for idempotent resubmission lookups.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func jobKey(jobID string) string {
	return redisJobKeyPrefix + jobID
}

func (r *Redis) Create(ctx context.Context, job *jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ok, err := r.client.SetNX(ctx, jobKey(job.JobID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("set job: %w", err)
	}
	if !ok {
		return errors.Newf(errors.CodeInternal, "job %s already exists", job.JobID)
	}

	if job.ClientJobID != "" {
		if err := r.client.HSet(ctx, redisClientIndex, job.ClientJobID, job.JobID).Err(); err != nil {
			return fmt.Errorf("index clientJobId: %w", err)
		}
	}
	return nil
}

// CreateOrFind claims the clientJobId with HSetNX; the loser of a race
// deletes its own record and returns the winner's. The record is
// written before the index entry, so an indexed jobId always resolves.
func (r *Redis) CreateOrFind(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, false, fmt.Errorf("marshal job: %w", err)
	}

	ok, err := r.client.SetNX(ctx, jobKey(job.JobID), data, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("set job: %w", err)
	}
	if !ok {
		return nil, false, errors.Newf(errors.CodeInternal, "job %s already exists", job.JobID)
	}

	if job.ClientJobID == "" {
		return job, true, nil
	}

	claimed, err := r.client.HSetNX(ctx, redisClientIndex, job.ClientJobID, job.JobID).Result()
	if err != nil {
		return nil, false, fmt.Errorf("index clientJobId: %w", err)
	}
	if claimed {
		return job, true, nil
	}

	// Another submission holds the clientJobId; discard our record.
	if err := r.client.Del(ctx, jobKey(job.JobID)).Err(); err != nil {
		return nil, false, fmt.Errorf("discard duplicate job: %w", err)
	}

	winnerID, err := r.client.HGet(ctx, redisClientIndex, job.ClientJobID).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lookup clientJobId: %w", err)
	}
	existing, err := r.Get(ctx, winnerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Redis) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	data, err := r.client.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, errors.JobNotFound(jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job jobs.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (r *Redis) FindByClientJobID(ctx context.Context, clientJobID string) (*jobs.Job, error) {
	if clientJobID == "" {
		return nil, nil
	}

	jobID, err := r.client.HGet(ctx, redisClientIndex, clientJobID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup clientJobId: %w", err)
	}
	return r.Get(ctx, jobID)
}

// Update runs mutate under WATCH so concurrent writers of the same job
// retry instead of clobbering each other.
func (r *Redis) Update(ctx context.Context, jobID string, mutate func(*jobs.Job) error) (*jobs.Job, error) {
	key := jobKey(jobID)
	var updated *jobs.Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return errors.JobNotFound(jobID)
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		var job jobs.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", jobID, err)
		}

		if err := mutate(&job); err != nil {
			return err
		}

		next, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &job
		return nil
	}

	for i := 0; i < 5; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update job %s: too many conflicts", jobID)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
