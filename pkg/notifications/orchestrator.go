package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/cafetal/pkg/logger"
)

// Orchestrator is the notification facade: it creates the record, dispatches
// it over its channel and persists the outcome. No error crosses its API;
// failures end up in the record's status and error message.
type Orchestrator struct {
	store       Storage
	gate        *Gate
	dispatchers Dispatchers
	transport   *EmailTransport
	locale      language.Tag
	logger      *slog.Logger
	now         func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger for the Orchestrator.
func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithLocale sets the language of event titles and messages. Default Spanish.
func WithLocale(tag language.Tag) OrchestratorOption {
	return func(o *Orchestrator) {
		o.locale = tag
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates the facade. transport may be nil, in which case
// TestEmailConfiguration always reports an error.
func NewOrchestrator(store Storage, gate *Gate, dispatchers Dispatchers, transport *EmailTransport, opts ...OrchestratorOption) (*Orchestrator, error) {
	if store == nil || gate == nil {
		return nil, fmt.Errorf("notifications: storage and gate are required")
	}
	if err := dispatchers.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		store:       store,
		gate:        gate,
		dispatchers: dispatchers,
		transport:   transport,
		locale:      language.Spanish,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(logger.Component("notifications"))
	return o, nil
}

// Notify records and delivers one event. It returns true when the final
// status is sent or delivered. Invalid events are rejected before any record
// is created.
func (o *Orchestrator) Notify(ctx context.Context, ev Event) bool {
	if err := ev.Validate(); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "notification rejected",
			logger.RecipientID(ev.RecipientID),
			logger.Channel(string(ev.Channel)),
			logger.Error(err),
		)
		return false
	}

	rec := ev.record(uuid.NewString(), o.now())
	id, err := o.store.Create(ctx, rec)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to store notification",
			logger.RecipientID(ev.RecipientID),
			logger.Channel(string(ev.Channel)),
			logger.Error(err),
		)
		return false
	}
	rec.ID = id

	start := o.now()
	outcome := o.dispatch(ctx, rec)

	errMsg := ""
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}

	// The outcome is persisted even if the caller gave up meanwhile.
	if err := o.store.UpdateStatus(context.WithoutCancel(ctx), id, outcome.Status, errMsg); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to persist notification status",
			logger.NotificationID(id),
			logger.Status(string(outcome.Status)),
			logger.Error(err),
		)
		return false
	}

	level := slog.LevelInfo
	if outcome.Status == StatusFailed {
		level = slog.LevelWarn
	}
	o.logger.LogAttrs(ctx, level, "notification processed",
		logger.NotificationID(id),
		logger.RecipientID(rec.RecipientID),
		logger.Channel(string(rec.Channel)),
		logger.Template(rec.TemplateName),
		logger.Status(string(outcome.Status)),
		logger.Duration(o.now().Sub(start)),
		logger.Error(outcome.Err),
	)

	return outcome.Status.Successful()
}

// dispatch runs the channel dispatcher, turning panics and malformed outcomes
// into failures.
func (o *Orchestrator) dispatch(ctx context.Context, rec Record) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("%w: %v", ErrDispatchPanic, r))
		}
	}()

	d, ok := o.dispatchers.For(rec.Channel)
	if !ok {
		return failed(fmt.Errorf("%w: unsupported channel %q", ErrInvalidEvent, rec.Channel))
	}

	out = d.Deliver(ctx, rec)
	switch out.Status {
	case StatusSent, StatusDelivered:
		return out
	case StatusFailed:
		if out.Err == nil {
			out.Err = fmt.Errorf("%s delivery failed", rec.Channel)
		}
		return out
	default:
		return failed(fmt.Errorf("dispatcher returned unexpected status %q", out.Status))
	}
}

// NotifyPaymentSuccess sends the payment_success email when its toggle is on
// and always records an in-app notification.
func (o *Orchestrator) NotifyPaymentSuccess(ctx context.Context, recipientID int64, data PaymentData) {
	o.fanOut(ctx, recipientID, newComposer(o.locale).payment("payment_success", TogglePaymentSuccess, data))
}

// NotifyPaymentFailed sends the payment_failed email when its toggle is on
// and always records an in-app notification.
func (o *Orchestrator) NotifyPaymentFailed(ctx context.Context, recipientID int64, data PaymentData) {
	o.fanOut(ctx, recipientID, newComposer(o.locale).payment("payment_failed", TogglePaymentFailed, data))
}

// NotifySubscriptionRenewal sends the subscription_renewal email when its
// toggle is on and always records an in-app notification.
func (o *Orchestrator) NotifySubscriptionRenewal(ctx context.Context, recipientID int64, data SubscriptionData) {
	o.fanOut(ctx, recipientID, newComposer(o.locale).subscription("subscription_renewal", ToggleSubscriptionRenewal, data))
}

// NotifySubscriptionExpiry sends the subscription_expiry email when its
// toggle is on and always records an in-app notification.
func (o *Orchestrator) NotifySubscriptionExpiry(ctx context.Context, recipientID int64, data SubscriptionData) {
	o.fanOut(ctx, recipientID, newComposer(o.locale).subscription("subscription_expiry", ToggleSubscriptionExpiry, data))
}

// NotifyWelcome sends the welcome email when its toggle is on and always
// records an in-app notification.
func (o *Orchestrator) NotifyWelcome(ctx context.Context, recipientID int64, data WelcomeData) {
	o.fanOut(ctx, recipientID, newComposer(o.locale).welcome(data))
}

// fanOut issues the toggled email and the unconditional in-app notification.
func (o *Orchestrator) fanOut(ctx context.Context, recipientID int64, c eventContent) {
	if o.gate.EventEnabled(ctx, c.toggle) {
		o.Notify(ctx, Event{
			RecipientID:  recipientID,
			Channel:      ChannelEmail,
			Title:        c.title,
			Message:      c.message,
			Payload:      c.payload,
			TemplateName: c.template,
		})
	} else {
		o.logger.LogAttrs(ctx, slog.LevelDebug, "event email disabled",
			logger.RecipientID(recipientID),
			logger.Setting(SettingsCategory, string(c.toggle)),
		)
	}

	o.Notify(ctx, Event{
		RecipientID: recipientID,
		Channel:     ChannelInApp,
		Title:       c.title,
		Message:     c.message,
		Payload:     c.payload,
	})
}

// TestResult is the outcome of TestEmailConfiguration.
type TestResult struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message"`
}

// TestEmailConfiguration rebuilds the email transport from the current
// settings and probes it.
func (o *Orchestrator) TestEmailConfiguration(ctx context.Context) TestResult {
	if o.transport == nil {
		return TestResult{Status: "error", Message: ErrTransportNotConfigured.Error()}
	}
	if err := o.transport.Initialize(ctx); err != nil {
		return TestResult{Status: "error", Message: err.Error()}
	}
	if err := o.transport.probe(ctx); err != nil {
		return TestResult{Status: "error", Message: err.Error()}
	}
	return TestResult{Status: "success", Message: "email configuration verified"}
}

// MarkRead marks a record read for its recipient. Storage errors are logged
// and reported as false.
func (o *Orchestrator) MarkRead(ctx context.Context, id string, recipientID int64) bool {
	ok, err := o.store.MarkRead(ctx, id, recipientID)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "mark read failed",
			logger.NotificationID(id),
			logger.RecipientID(recipientID),
			logger.Error(err),
		)
		return false
	}
	return ok
}

// ListForUser returns the recipient's records, newest first.
func (o *Orchestrator) ListForUser(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	return o.store.ListForUser(ctx, recipientID, opts)
}

// UnreadCount counts the recipient's records that are not read.
func (o *Orchestrator) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return o.store.UnreadCount(ctx, recipientID)
}

// Get returns one record.
func (o *Orchestrator) Get(ctx context.Context, id string) (*Record, error) {
	return o.store.Get(ctx, id)
}
