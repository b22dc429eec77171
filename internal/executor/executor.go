// Package executor runs queued jobs asynchronously on a bounded pool.
// The API only submits and observes; all record mutation after Create
// happens here, keeping the lifecycle single-writer.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"looprender/internal/jobs"
	"looprender/internal/pkg/logger"
	"looprender/internal/store"
)

// Runner performs one job and returns its result.
type Runner interface {
	Run(ctx context.Context, job *jobs.Job) (*jobs.Result, error)
}

// Pool executes submitted jobs on a fixed number of goroutines.
type Pool struct {
	store  store.Store
	runner Runner
	log    *logger.Logger

	concurrency int

	jobsCh chan string
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// Options configures a pool.
type Options struct {
	Concurrency int
	// QueueSize bounds the submit backlog; Submit fails when full.
	QueueSize int
}

// NewPool creates a pool; call Start before submitting.
func NewPool(st store.Store, runner Runner, log *logger.Logger, opts Options) *Pool {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 256
	}
	return &Pool{
		store:       st,
		runner:      runner,
		log:         log.WithComponent("executor"),
		concurrency: opts.Concurrency,
		jobsCh:      make(chan string, opts.QueueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.concurrency; i++ {
			p.wg.Add(1)
			go p.worker()
		}
		p.log.Info("executor pool started", "concurrency", p.concurrency, "queue_size", cap(p.jobsCh))
	})
}

// Submit enqueues a job for execution. It never blocks; a full queue
// is an error the caller surfaces.
func (p *Pool) Submit(jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("executor is shutting down")
	}

	select {
	case p.jobsCh <- jobID:
		return nil
	default:
		return fmt.Errorf("executor queue is full")
	}
}

// Stop drains in-flight jobs and waits for the workers, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobsCh)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("executor pool stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor stop: %w", ctx.Err())
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for jobID := range p.jobsCh {
		p.execute(jobID)
	}
}

func (p *Pool) execute(jobID string) {
	ctx := logger.ContextWithJobID(context.Background(), jobID)
	log := p.log.WithJobID(jobID)

	job, err := p.store.Update(ctx, jobID, func(j *jobs.Job) error {
		if !j.MarkRunning(time.Now()) {
			return fmt.Errorf("job %s is %s, not queued", jobID, j.Status)
		}
		return nil
	})
	if err != nil {
		log.Error("job pickup failed", "error", err.Error())
		return
	}

	log.Info("job started", "template", job.Template)
	start := time.Now()

	result, runErr := p.runner.Run(ctx, job)

	if runErr != nil {
		msg := runErr.Error()
		if _, err := p.store.Update(ctx, jobID, func(j *jobs.Job) error {
			if !j.MarkFailed(time.Now(), msg) {
				return fmt.Errorf("job %s already terminal", jobID)
			}
			return nil
		}); err != nil {
			log.Error("failed to record job failure", "error", err.Error())
		}
		log.Warn("job failed", "error", msg, "duration_ms", time.Since(start).Milliseconds())
		return
	}

	if _, err := p.store.Update(ctx, jobID, func(j *jobs.Job) error {
		if !j.MarkSucceeded(time.Now(), result) {
			return fmt.Errorf("job %s already terminal", jobID)
		}
		return nil
	}); err != nil {
		log.Error("failed to record job success", "error", err.Error())
		return
	}
	log.Info("job succeeded", "duration_ms", time.Since(start).Milliseconds())
}
