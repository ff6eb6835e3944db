package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cafetal/pkg/logger"
)

// Job is a unit of work executed once by the pool. Run receives a context
// bounded by the pool's job timeout.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a fixed set of workers consuming a bounded in-memory queue.
//
// Submit never blocks: a full queue is reported with ErrQueueFull so callers on
// a request path can decide what to do. Jobs are attempted exactly once.
// Stop closes the queue, lets workers drain whatever was already accepted and
// waits for them.
type Pool struct {
	id         uuid.UUID
	jobs       chan Job
	workers    int
	jobTimeout time.Duration
	logger     *slog.Logger

	mu      sync.RWMutex // guards started/stopped and the jobs channel close
	started bool
	stopped bool
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewPool creates a pool. Defaults: 4 workers, 256 queued jobs, 30s per job.
func NewPool(opts ...PoolOption) *Pool {
	o := &poolOptions{
		workers:    4,
		queueSize:  256,
		jobTimeout: 30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Pool{
		id:         uuid.New(),
		jobs:       make(chan Job, o.queueSize),
		workers:    o.workers,
		jobTimeout: o.jobTimeout,
		logger:     o.logger.With(logger.Component("queue")),
	}
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(job Job) error {
	if job.Run == nil {
		return ErrJobNil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. Values carried by ctx reach every job, but its
// cancellation does not: in-flight jobs finish within their own timeout.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}
	p.started = true
	p.baseCtx = context.WithoutCancel(ctx)

	p.wg.Add(p.workers)
	for i := range p.workers {
		go p.work(i)
	}

	p.logger.Info("worker pool started",
		slog.String("pool_id", p.id.String()),
		slog.Int("workers", p.workers),
		slog.Int("queue_size", cap(p.jobs)))

	return nil
}

// Stop closes the queue and waits until every accepted job has run.
func (p *Pool) Stop() error {
	return p.Shutdown(context.Background())
}

// Shutdown closes the queue and waits for workers to drain it, giving up with
// ErrShutdownTimeout when ctx ends first. Workers keep draining in the
// background after a timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.logger.Info("worker pool stopping, draining queued jobs",
		slog.String("pool_id", p.id.String()),
		slog.Int("queued", len(p.jobs)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped", slog.String("pool_id", p.id.String()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Run starts the pool and stops it when ctx is done. The returned function
// fits errgroup.Group.Go.
func (p *Pool) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

// Len returns the number of jobs waiting for a worker.
func (p *Pool) Len() int {
	return len(p.jobs)
}

func (p *Pool) work(n int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(n, job)
	}
}

func (p *Pool) process(n int, job Job) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(p.baseCtx, p.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.LogAttrs(ctx, slog.LevelError, "job panicked",
				logger.Job(job.Name),
				slog.Int("worker", n),
				slog.Any("panic", r),
				logger.Duration(time.Since(start)))
		}
	}()

	if err := job.Run(ctx); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "job failed",
			logger.Job(job.Name),
			slog.Int("worker", n),
			logger.Duration(time.Since(start)),
			logger.Error(err))
		return
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "job completed",
		logger.Job(job.Name),
		slog.Int("worker", n),
		logger.Duration(time.Since(start)))
}
