package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/sanitizer"
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Status Status
	Err    error
}

func delivered() Outcome { return Outcome{Status: StatusDelivered} }

func failed(err error) Outcome { return Outcome{Status: StatusFailed, Err: err} }

// Dispatcher delivers a pending record over one channel.
type Dispatcher interface {
	Deliver(ctx context.Context, rec Record) Outcome
}

// Dispatchers holds exactly one Dispatcher per channel.
type Dispatchers struct {
	Email Dispatcher
	SMS   Dispatcher
	Push  Dispatcher
	InApp Dispatcher
}

// For returns the dispatcher for ch.
func (d Dispatchers) For(ch Channel) (Dispatcher, bool) {
	var out Dispatcher
	switch ch {
	case ChannelEmail:
		out = d.Email
	case ChannelSMS:
		out = d.SMS
	case ChannelPush:
		out = d.Push
	case ChannelInApp:
		out = d.InApp
	}
	return out, out != nil
}

func (d Dispatchers) validate() error {
	for _, ch := range Channels {
		if _, ok := d.For(ch); !ok {
			return fmt.Errorf("notifications: no dispatcher for channel %q", ch)
		}
	}
	return nil
}

// RecipientDirectory resolves a recipient's email address.
type RecipientDirectory interface {
	EmailAddress(ctx context.Context, recipientID int64) (string, error)
}

// PayloadEmailKey is the payload key that overrides the directory address.
const PayloadEmailKey = "email"

// EmailDispatcher renders the record and sends it through a Mailer.
type EmailDispatcher struct {
	gate      *Gate
	resolver  *TemplateResolver
	mailer    Mailer
	directory RecipientDirectory
}

// NewEmailDispatcher creates an email dispatcher. directory may be nil when
// every event carries an address in its payload.
func NewEmailDispatcher(gate *Gate, resolver *TemplateResolver, mailer Mailer, directory RecipientDirectory) *EmailDispatcher {
	return &EmailDispatcher{gate: gate, resolver: resolver, mailer: mailer, directory: directory}
}

func (d *EmailDispatcher) Deliver(ctx context.Context, rec Record) Outcome {
	if !d.gate.ChannelEnabled(ctx, ChannelEmail) {
		return failed(ErrChannelDisabled)
	}

	var content Rendered
	if rec.TemplateName != "" {
		tpl, err := d.resolver.Resolve(ctx, rec.TemplateName)
		if err != nil {
			return failed(err)
		}
		content = tpl.Render(templateData(rec))
	} else {
		content = plainContent(rec.Title, rec.Message)
	}

	to, err := d.address(ctx, rec)
	if err != nil {
		return failed(err)
	}

	tag := rec.TemplateName
	if tag == "" {
		tag = "notification"
	}
	if err := d.mailer.Send(ctx, Message{
		To:      to,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
		Tag:     tag,
	}); err != nil {
		return failed(err)
	}
	return delivered()
}

func (d *EmailDispatcher) address(ctx context.Context, rec Record) (string, error) {
	if v, ok := rec.Payload[PayloadEmailKey].(string); ok && strings.TrimSpace(v) != "" {
		return sanitizer.NormalizeEmail(v), nil
	}
	if d.directory == nil {
		return "", ErrNoRecipientEmail
	}
	addr, err := d.directory.EmailAddress(ctx, rec.RecipientID)
	if err != nil {
		if errors.Is(err, ErrNoRecipientEmail) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrNoRecipientEmail, err)
	}
	if strings.TrimSpace(addr) == "" {
		return "", ErrNoRecipientEmail
	}
	return sanitizer.NormalizeEmail(addr), nil
}

// templateData is the payload plus title and message, unless the payload
// already defines them.
func templateData(rec Record) map[string]any {
	data := make(map[string]any, len(rec.Payload)+2)
	data["title"] = rec.Title
	data["message"] = rec.Message
	for k, v := range rec.Payload {
		data[k] = v
	}
	return data
}

func plainContent(title, message string) Rendered {
	escaped := sanitizer.EscapeHTML(message)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return Rendered{
		Subject: sanitizer.SingleLine(sanitizer.RemoveControlChars(title)),
		HTML:    "<p>" + escaped + "</p>",
		Text:    message,
	}
}

// Provider is an SMS or push backend.
type Provider interface {
	Send(ctx context.Context, rec Record) error
}

// SimulatedProvider accepts every message and only logs it.
type SimulatedProvider struct {
	logger *slog.Logger
}

// NewSimulatedProvider creates a provider that always succeeds.
func NewSimulatedProvider(l *slog.Logger) *SimulatedProvider {
	if l == nil {
		l = slog.Default()
	}
	return &SimulatedProvider{logger: l.With(logger.Component("simulated_provider"))}
}

func (p *SimulatedProvider) Send(ctx context.Context, rec Record) error {
	p.logger.LogAttrs(ctx, slog.LevelInfo, "simulated delivery",
		logger.NotificationID(rec.ID),
		logger.RecipientID(rec.RecipientID),
		logger.Channel(string(rec.Channel)),
	)
	return nil
}

// ProviderDispatcher gates a channel on its settings flag and hands the
// record to a Provider. SMS and push use it.
type ProviderDispatcher struct {
	channel  Channel
	gate     *Gate
	provider Provider
}

// NewSMSDispatcher creates the SMS dispatcher. A nil provider simulates delivery.
func NewSMSDispatcher(gate *Gate, provider Provider) *ProviderDispatcher {
	return newProviderDispatcher(ChannelSMS, gate, provider)
}

// NewPushDispatcher creates the push dispatcher. A nil provider simulates delivery.
func NewPushDispatcher(gate *Gate, provider Provider) *ProviderDispatcher {
	return newProviderDispatcher(ChannelPush, gate, provider)
}

func newProviderDispatcher(ch Channel, gate *Gate, provider Provider) *ProviderDispatcher {
	if provider == nil {
		provider = NewSimulatedProvider(nil)
	}
	return &ProviderDispatcher{channel: ch, gate: gate, provider: provider}
}

func (d *ProviderDispatcher) Deliver(ctx context.Context, rec Record) Outcome {
	if !d.gate.ChannelEnabled(ctx, d.channel) {
		return failed(ErrChannelDisabled)
	}
	if err := d.provider.Send(ctx, rec); err != nil {
		return failed(err)
	}
	return delivered()
}

// InAppDispatcher treats persistence as delivery. It is not gated by the
// in_app_enabled setting, unlike every other channel.
// TODO: confirm with product whether in-app should honor in_app_enabled.
type InAppDispatcher struct {
	feed *LiveFeed
}

// NewInAppDispatcher creates the in-app dispatcher. When feed is non-nil,
// delivered records are also pushed to live subscribers.
func NewInAppDispatcher(feed *LiveFeed) *InAppDispatcher {
	return &InAppDispatcher{feed: feed}
}

func (d *InAppDispatcher) Deliver(ctx context.Context, rec Record) Outcome {
	if d.feed != nil {
		rec.Status = StatusDelivered
		d.feed.Publish(ctx, rec)
	}
	return delivered()
}

// NewDispatchers wires the default dispatcher set.
func NewDispatchers(gate *Gate, resolver *TemplateResolver, mailer Mailer, directory RecipientDirectory, feed *LiveFeed) Dispatchers {
	return Dispatchers{
		Email: NewEmailDispatcher(gate, resolver, mailer, directory),
		SMS:   NewSMSDispatcher(gate, nil),
		Push:  NewPushDispatcher(gate, nil),
		InApp: NewInAppDispatcher(feed),
	}
}
