package queue

import (
	"log/slog"
	"time"
)

// PoolOption configures a Pool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	workers    int
	queueSize  int
	jobTimeout time.Duration
	logger     *slog.Logger
}

// WithWorkers sets how many goroutines consume the queue.
func WithWorkers(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the job buffer.
func WithQueueSize(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithJobTimeout bounds every job's context.
func WithJobTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

// WithPoolLogger sets the logger for the pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(o *poolOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
