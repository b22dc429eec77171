package store

import (
	"context"
	"sync"

	"looprender/internal/jobs"
	"looprender/internal/pkg/errors"
)

// Memory is the default in-process store. State lives in a single map
// guarded by a mutex; job records vanish on restart, which is
// acceptable for the prototype surface.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]*jobs.Job
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*jobs.Job)}
}

func (m *Memory) Create(ctx context.Context, job *jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[job.JobID]; ok {
		return errors.Newf(errors.CodeInternal, "job %s already exists", job.JobID)
	}
	m.byID[job.JobID] = job.Clone()
	return nil
}

// CreateOrFind scans for the clientJobId and inserts under one hold of
// the write lock, so two racing submissions cannot both create.
func (m *Memory) CreateOrFind(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.ClientJobID != "" {
		for _, existing := range m.byID {
			if existing.ClientJobID == job.ClientJobID {
				return existing.Clone(), false, nil
			}
		}
	}

	if _, ok := m.byID[job.JobID]; ok {
		return nil, false, errors.Newf(errors.CodeInternal, "job %s already exists", job.JobID)
	}
	m.byID[job.JobID] = job.Clone()
	return job.Clone(), true, nil
}

func (m *Memory) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.byID[jobID]
	if !ok {
		return nil, errors.JobNotFound(jobID)
	}
	return job.Clone(), nil
}

// FindByClientJobID scans all records. Linear, but the map is small in
// the in-memory deployment and the scan keeps Create free of a second
// index to maintain.
func (m *Memory) FindByClientJobID(ctx context.Context, clientJobID string) (*jobs.Job, error) {
	if clientJobID == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, job := range m.byID {
		if job.ClientJobID == clientJobID {
			return job.Clone(), nil
		}
	}
	return nil, nil
}

func (m *Memory) Update(ctx context.Context, jobID string, mutate func(*jobs.Job) error) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.byID[jobID]
	if !ok {
		return nil, errors.JobNotFound(jobID)
	}

	next := job.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	m.byID[jobID] = next
	return next.Clone(), nil
}

func (m *Memory) Close() error {
	return nil
}
