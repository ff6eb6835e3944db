package queue

import "errors"

var (
	// ErrQueueFull is returned by Submit when the bounded queue has no free slot.
	ErrQueueFull = errors.New("queue: job queue is full")

	// ErrPoolStopped is returned by Submit after Stop has been called.
	ErrPoolStopped = errors.New("queue: pool is stopped")

	// ErrPoolNotStarted is returned by Stop when Start was never called.
	ErrPoolNotStarted = errors.New("queue: pool not started")

	// ErrPoolAlreadyStarted is returned by a second Start call.
	ErrPoolAlreadyStarted = errors.New("queue: pool already started")

	// ErrShutdownTimeout is returned by Shutdown when in-flight jobs outlive its context.
	ErrShutdownTimeout = errors.New("queue: shutdown timed out before jobs drained")

	// ErrJobNil is returned by Submit for a job without a Run function.
	ErrJobNil = errors.New("queue: job run function is nil")
)
