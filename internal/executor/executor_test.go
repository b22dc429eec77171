package executor

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looprender/internal/jobs"
	"looprender/internal/pkg/logger"
	"looprender/internal/store"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &bytes.Buffer{}})
}

// countingRunner records every job it runs.
type countingRunner struct {
	mu   sync.Mutex
	runs map[string]int
	err  error
}

func (r *countingRunner) Run(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	r.mu.Lock()
	if r.runs == nil {
		r.runs = make(map[string]int)
	}
	r.runs[job.JobID]++
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return &jobs.Result{DurationSec: intParam(job.Params, "durationSec")}, nil
}

func submitJob(t *testing.T, st store.Store, p *Pool) *jobs.Job {
	t.Helper()
	job := jobs.New("loop-basic", "", map[string]any{"durationSec": 10})
	require.NoError(t, st.Create(context.Background(), job))
	require.NoError(t, p.Submit(job.JobID))
	return job
}

func waitTerminal(t *testing.T, st store.Store, jobID string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

func TestPoolExecutesJob(t *testing.T) {
	st := store.NewMemory()
	runner := &countingRunner{}
	p := NewPool(st, runner, newTestLogger(), Options{Concurrency: 2})
	p.Start()
	defer p.Stop(context.Background())

	job := submitJob(t, st, p)
	got := waitTerminal(t, st, job.JobID)

	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Result)
	assert.Equal(t, 10, got.Result.DurationSec)
	assert.Equal(t, 1, runner.runs[job.JobID])
}

func TestPoolRecordsFailure(t *testing.T) {
	st := store.NewMemory()
	runner := &countingRunner{err: fmt.Errorf("download failed: status 403")}
	p := NewPool(st, runner, newTestLogger(), Options{Concurrency: 1})
	p.Start()
	defer p.Stop(context.Background())

	job := submitJob(t, st, p)
	got := waitTerminal(t, st, job.JobID)

	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "download failed")
	assert.Nil(t, got.Result)
	require.NotNil(t, got.FinishedAt)
}

func TestPoolEachJobExactlyOnce(t *testing.T) {
	st := store.NewMemory()
	runner := &countingRunner{}
	p := NewPool(st, runner, newTestLogger(), Options{Concurrency: 4, QueueSize: 64})
	p.Start()
	defer p.Stop(context.Background())

	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		job := submitJob(t, st, p)
		ids = append(ids, job.JobID)
	}

	for _, id := range ids {
		waitTerminal(t, st, id)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, runner.runs[id], "job %s", id)
	}
}

func TestPoolQueueFull(t *testing.T) {
	st := store.NewMemory()
	block := make(chan struct{})
	var started atomic.Int32
	runner := runnerFunc(func(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
		started.Add(1)
		<-block
		return &jobs.Result{}, nil
	})

	p := NewPool(st, runner, newTestLogger(), Options{Concurrency: 1, QueueSize: 1})
	p.Start()
	defer func() {
		close(block)
		p.Stop(context.Background())
	}()

	// First job occupies the worker, second fills the queue.
	submitJob(t, st, p)
	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)
	submitJob(t, st, p)

	job := jobs.New("loop-basic", "", nil)
	require.NoError(t, st.Create(context.Background(), job))
	assert.Error(t, p.Submit(job.JobID))
}

func TestPoolStopDrains(t *testing.T) {
	st := store.NewMemory()
	runner := &countingRunner{}
	p := NewPool(st, runner, newTestLogger(), Options{Concurrency: 2, QueueSize: 16})
	p.Start()

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		ids = append(ids, submitJob(t, st, p).JobID)
	}

	require.NoError(t, p.Stop(context.Background()))

	for _, id := range ids {
		job, err := st.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, job.Status.Terminal(), "job %s left in %s", id, job.Status)
	}

	assert.Error(t, p.Submit("job_after_stop"))
}

type runnerFunc func(ctx context.Context, job *jobs.Job) (*jobs.Result, error)

func (f runnerFunc) Run(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	return f(ctx, job)
}

func TestSimulatedRunner(t *testing.T) {
	r := &SimulatedRunner{Delay: 10 * time.Millisecond, Log: newTestLogger()}
	job := jobs.New("loop-basic", "", map[string]any{"durationSec": float64(15)})

	result, err := r.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 15, result.DurationSec)
	assert.NotEmpty(t, result.OutputURL)
}

func TestSimulatedRunnerCanceled(t *testing.T) {
	r := &SimulatedRunner{Delay: 10 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, jobs.New("loop-basic", "", nil))
	assert.Error(t, err)
}

func TestIntParam(t *testing.T) {
	params := map[string]any{"a": 3, "b": float64(7), "c": int64(9), "d": "nope"}

	assert.Equal(t, 3, intParam(params, "a"))
	assert.Equal(t, 7, intParam(params, "b"))
	assert.Equal(t, 9, intParam(params, "c"))
	assert.Equal(t, 0, intParam(params, "d"))
	assert.Equal(t, 0, intParam(params, "missing"))
	assert.Equal(t, 0, intParam(nil, "a"))
}
