// Package queue runs jobs on a fixed pool of goroutines fed by a bounded,
// in-memory queue.
//
// The pool moves slow work such as SMTP delivery off the caller's goroutine
// while keeping at-most-once semantics: a job is attempted once, with a
// per-job timeout, and never retried.
//
//	pool := queue.NewPool(queue.WithWorkers(4), queue.WithQueueSize(256))
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop() // drains accepted jobs
//
//	err := pool.Submit(queue.Job{Name: "notify", Run: func(ctx context.Context) error {
//	    ...
//	}})
//	if errors.Is(err, queue.ErrQueueFull) {
//	    // shed load or fall back to synchronous delivery
//	}
//
// Pool.Run returns a func() error suitable for errgroup.Group.Go: it starts the
// pool, waits for the context to end, then drains.
package queue
