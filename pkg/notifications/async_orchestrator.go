package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/cafetal/pkg/async"
	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/queue"
)

// ErrJobAborted resolves a Future whose job ended without producing a result.
var ErrJobAborted = errors.New("notification job aborted")

// AsyncOrchestrator runs Orchestrator calls on a worker pool so request
// handlers return before SMTP round trips finish.
type AsyncOrchestrator struct {
	orch   *Orchestrator
	pool   *queue.Pool
	logger *slog.Logger
}

// AsyncOption configures an AsyncOrchestrator.
type AsyncOption func(*AsyncOrchestrator)

// WithAsyncLogger sets the logger for the AsyncOrchestrator.
func WithAsyncLogger(l *slog.Logger) AsyncOption {
	return func(a *AsyncOrchestrator) {
		a.logger = l
	}
}

// NewAsyncOrchestrator wraps orch. The pool's lifecycle belongs to the
// AsyncOrchestrator: use Start, Stop or Run.
func NewAsyncOrchestrator(orch *Orchestrator, pool *queue.Pool, opts ...AsyncOption) *AsyncOrchestrator {
	a := &AsyncOrchestrator{
		orch:   orch,
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("notifications.async"))
	return a
}

// Notify validates ev and queues it. Invalid events and a full or stopped
// queue are reported immediately; otherwise the Future resolves with the
// Notify result once a worker has processed the event.
func (a *AsyncOrchestrator) Notify(ctx context.Context, ev Event) (*async.Future[bool], error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	f, resolve := async.Promise[bool]()
	err := a.submit(ctx, "notify."+string(ev.Channel), func(ctx context.Context) error {
		defer resolve(false, ErrJobAborted)
		resolve(a.orch.Notify(ctx, ev), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// NotifyPaymentSuccess queues Orchestrator.NotifyPaymentSuccess.
func (a *AsyncOrchestrator) NotifyPaymentSuccess(ctx context.Context, recipientID int64, data PaymentData) error {
	return a.submit(ctx, "notify.payment_success", func(ctx context.Context) error {
		a.orch.NotifyPaymentSuccess(ctx, recipientID, data)
		return nil
	})
}

// NotifyPaymentFailed queues Orchestrator.NotifyPaymentFailed.
func (a *AsyncOrchestrator) NotifyPaymentFailed(ctx context.Context, recipientID int64, data PaymentData) error {
	return a.submit(ctx, "notify.payment_failed", func(ctx context.Context) error {
		a.orch.NotifyPaymentFailed(ctx, recipientID, data)
		return nil
	})
}

// NotifySubscriptionRenewal queues Orchestrator.NotifySubscriptionRenewal.
func (a *AsyncOrchestrator) NotifySubscriptionRenewal(ctx context.Context, recipientID int64, data SubscriptionData) error {
	return a.submit(ctx, "notify.subscription_renewal", func(ctx context.Context) error {
		a.orch.NotifySubscriptionRenewal(ctx, recipientID, data)
		return nil
	})
}

// NotifySubscriptionExpiry queues Orchestrator.NotifySubscriptionExpiry.
func (a *AsyncOrchestrator) NotifySubscriptionExpiry(ctx context.Context, recipientID int64, data SubscriptionData) error {
	return a.submit(ctx, "notify.subscription_expiry", func(ctx context.Context) error {
		a.orch.NotifySubscriptionExpiry(ctx, recipientID, data)
		return nil
	})
}

// NotifyWelcome queues Orchestrator.NotifyWelcome.
func (a *AsyncOrchestrator) NotifyWelcome(ctx context.Context, recipientID int64, data WelcomeData) error {
	return a.submit(ctx, "notify.welcome", func(ctx context.Context) error {
		a.orch.NotifyWelcome(ctx, recipientID, data)
		return nil
	})
}

// submit queues run. The job sees the caller's context values but not its
// cancellation, and is bounded by the pool's job timeout.
func (a *AsyncOrchestrator) submit(caller context.Context, name string, run func(context.Context) error) error {
	values := context.WithoutCancel(caller)
	err := a.pool.Submit(queue.Job{
		Name: name,
		Run: func(jobCtx context.Context) error {
			ctx, cancel := context.WithCancelCause(values)
			defer cancel(nil)
			stop := context.AfterFunc(jobCtx, func() {
				cancel(context.Cause(jobCtx))
			})
			defer stop()
			return run(ctx)
		},
	})
	if err != nil {
		a.logger.LogAttrs(caller, slog.LevelError, "failed to queue notification",
			logger.Job(name),
			logger.Error(err),
		)
	}
	return err
}

// Start launches the workers.
func (a *AsyncOrchestrator) Start(ctx context.Context) error {
	return a.pool.Start(ctx)
}

// Stop drains queued notifications and waits for them.
func (a *AsyncOrchestrator) Stop(ctx context.Context) error {
	return a.pool.Shutdown(ctx)
}

// Run fits errgroup.Group.Go: it starts the pool and drains it when ctx ends.
func (a *AsyncOrchestrator) Run(ctx context.Context) func() error {
	return a.pool.Run(ctx)
}

// Orchestrator returns the wrapped synchronous facade.
func (a *AsyncOrchestrator) Orchestrator() *Orchestrator {
	return a.orch
}
