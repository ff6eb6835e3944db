package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/queue"
)

func newPool(opts ...queue.PoolOption) *queue.Pool {
	return queue.NewPool(append([]queue.PoolOption{queue.WithPoolLogger(logger.Discard())}, opts...)...)
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithWorkers(3))
	require.NoError(t, pool.Start(context.Background()))

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(queue.Job{Name: "count", Run: func(context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		}}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), count.Load())
	require.NoError(t, pool.Stop())
}

func TestPool_QueueFull(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithWorkers(1), queue.WithQueueSize(1))
	require.NoError(t, pool.Start(context.Background()))

	release := make(chan struct{})
	running := make(chan struct{})
	require.NoError(t, pool.Submit(queue.Job{Name: "block", Run: func(context.Context) error {
		close(running)
		<-release
		return nil
	}}))
	<-running

	// the single worker is busy; one slot in the buffer
	require.NoError(t, pool.Submit(queue.Job{Name: "buffered", Run: func(context.Context) error { return nil }}))
	err := pool.Submit(queue.Job{Name: "overflow", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, queue.ErrQueueFull)

	close(release)
	require.NoError(t, pool.Stop())
}

func TestPool_StopDrainsQueuedJobs(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithWorkers(1), queue.WithQueueSize(10))

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(queue.Job{Name: "slow", Run: func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			count.Add(1)
			return nil
		}}))
	}

	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop())
	assert.Equal(t, int32(5), count.Load())

	err := pool.Submit(queue.Job{Name: "late", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, queue.ErrPoolStopped)
}

func TestPool_JobTimeout(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithJobTimeout(20 * time.Millisecond))
	require.NoError(t, pool.Start(context.Background()))

	result := make(chan error, 1)
	require.NoError(t, pool.Submit(queue.Job{Name: "hang", Run: func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}}))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job context was not bounded by the job timeout")
	}
	require.NoError(t, pool.Stop())
}

func TestPool_StartContextCancellationDoesNotAbortJobs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	pool := newPool()
	require.NoError(t, pool.Start(ctx))

	started := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, pool.Submit(queue.Job{Name: "detached", Run: func(jobCtx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		result <- jobCtx.Err()
		return nil
	}}))

	<-started
	cancel()
	assert.NoError(t, <-result)
	require.NoError(t, pool.Stop())
}

func TestPool_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithWorkers(1))
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Submit(queue.Job{Name: "panic", Run: func(context.Context) error { panic("boom") }}))
	require.NoError(t, pool.Submit(queue.Job{Name: "fails", Run: func(context.Context) error { return errors.New("nope") }}))

	done := make(chan struct{})
	require.NoError(t, pool.Submit(queue.Job{Name: "after", Run: func(context.Context) error {
		close(done)
		return nil
	}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after a panicking job")
	}
	require.NoError(t, pool.Stop())
}

func TestPool_Lifecycle(t *testing.T) {
	t.Parallel()

	pool := newPool()
	assert.ErrorIs(t, pool.Stop(), queue.ErrPoolNotStarted)
	assert.ErrorIs(t, pool.Submit(queue.Job{Name: "nil"}), queue.ErrJobNil)

	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), queue.ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())
}

func TestPool_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	pool := newPool(queue.WithWorkers(1))
	require.NoError(t, pool.Start(context.Background()))

	release := make(chan struct{})
	running := make(chan struct{})
	require.NoError(t, pool.Submit(queue.Job{Name: "block", Run: func(context.Context) error {
		close(running)
		<-release
		return nil
	}}))
	<-running

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), queue.ErrShutdownTimeout)

	close(release)
	require.NoError(t, pool.Stop())
}

func TestPool_Run(t *testing.T) {
	t.Parallel()

	pool := newPool()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- pool.Run(ctx)() }()

	done := make(chan struct{})
	require.Eventually(t, func() bool {
		return pool.Submit(queue.Job{Name: "run", Run: func(context.Context) error {
			close(done)
			return nil
		}}) == nil
	}, time.Second, 5*time.Millisecond)
	<-done

	cancel()
	assert.NoError(t, <-errCh)
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	cfg := queue.Config{Workers: 2, QueueSize: 8, JobTimeout: time.Second}
	assert.Len(t, cfg.Options(), 3)
}
