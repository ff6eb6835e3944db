package async

import (
	"context"
	"sync"
	"time"
)

// Future is the eventual result of work running elsewhere.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

func newFuture[U any]() *Future[U] {
	return &Future[U]{done: make(chan struct{})}
}

// Promise creates an unresolved Future together with the function that
// resolves it. Only the first resolve call has an effect, so a producer that
// may race between success and cancellation paths can call it from both.
//
//	f, resolve := async.Promise[bool]()
//	pool.Submit(job(func(ctx context.Context) { resolve(run(ctx)) }))
//	ok, err := f.Await()
func Promise[U any]() (*Future[U], func(U, error)) {
	f := newFuture[U]()
	return f, f.resolve
}

// Resolved returns a Future that is already complete.
func Resolved[U any](v U, err error) *Future[U] {
	f := newFuture[U]()
	f.resolve(v, err)
	return f
}

func (f *Future[U]) resolve(v U, err error) {
	f.once.Do(func() {
		f.result = v
		f.err = err
		close(f.done)
	})
}

// Await blocks until the Future completes.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext blocks until the Future completes or ctx is done.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout blocks for at most timeout and returns ErrTimeout if the
// Future has not completed by then.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete reports completion without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done exposes the completion channel for use in select statements.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Async runs fn on a new goroutine and returns its Future.
// A context that is already canceled short-circuits without calling fn.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := newFuture[U]()

	go func() {
		if err := ctx.Err(); err != nil {
			var zero U
			f.resolve(zero, err)
			return
		}
		f.resolve(fn(ctx, param))
	}()

	return f
}

// WaitAll waits for every future and returns their results in order,
// stopping at the first error.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
