package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/email"
	"github.com/dmitrymomot/cafetal/pkg/email/templates"
	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/sanitizer"
)

// DefaultSendTimeout bounds every transport call unless overridden.
const DefaultSendTimeout = 15 * time.Second

// Message is an email ready to be sent.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

// Mailer sends email messages. EmailTransport is the production implementation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFactory builds a provider client from the current credentials.
type SenderFactory func(creds Credentials) (email.EmailSender, error)

// NewSender builds the client for creds.Provider: SMTP via go-mail, the
// Postmark API, or the development file sender.
func NewSender(creds Credentials, timeout time.Duration) (email.EmailSender, error) {
	sender := email.Sender{Email: creds.FromEmail, Name: creds.FromName, ReplyTo: creds.ReplyTo}

	switch creds.Provider {
	case ProviderPostmark:
		client, err := email.NewPostmarkClient(email.PostmarkConfig{
			ServerToken:  creds.PostmarkServerToken,
			AccountToken: creds.PostmarkAccountToken,
			Sender:       sender,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderFile:
		return email.NewDevSender(creds.DevDir, sender), nil
	default:
		client, err := email.NewSMTPClient(email.SMTPConfig{
			Host:     creds.Host,
			Port:     creds.Port,
			Secure:   creds.Secure,
			Username: creds.User,
			Password: creds.Password,
			Timeout:  timeout,
			Sender:   sender,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// EmailTransport owns the single provider client built from settings.
//
// The client is built on first use or by Initialize. Sends hold the read
// lock, so Initialize waits for in-flight sends before swapping the client.
type EmailTransport struct {
	gate    *Gate
	factory SenderFactory
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.RWMutex
	initialized bool
	sender      email.EmailSender
	initErr     error
	brand       string
}

// TransportOption configures an EmailTransport.
type TransportOption func(*EmailTransport)

// WithTransportLogger sets the logger for the EmailTransport.
func WithTransportLogger(l *slog.Logger) TransportOption {
	return func(t *EmailTransport) {
		t.logger = l
	}
}

// WithSendTimeout bounds each Send and Verify call.
func WithSendTimeout(d time.Duration) TransportOption {
	return func(t *EmailTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithSenderFactory replaces the provider factory.
func WithSenderFactory(f SenderFactory) TransportOption {
	return func(t *EmailTransport) {
		t.factory = f
	}
}

// NewEmailTransport creates an uninitialized transport reading credentials
// through gate.
func NewEmailTransport(gate *Gate, opts ...TransportOption) *EmailTransport {
	t := &EmailTransport{
		gate:    gate,
		timeout: DefaultSendTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.factory == nil {
		timeout := t.timeout
		t.factory = func(creds Credentials) (email.EmailSender, error) {
			return NewSender(creds, timeout)
		}
	}
	t.logger = t.logger.With(logger.Component("email_transport"))
	return t
}

// Initialize rebuilds the client from the current settings. Missing
// credentials leave the transport unconfigured and are not an error.
func (t *EmailTransport) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initLocked(ctx)
}

func (t *EmailTransport) initLocked(ctx context.Context) error {
	t.initialized = true
	t.sender = nil
	t.initErr = nil

	creds, err := t.gate.EmailCredentials(ctx)
	if errors.Is(err, ErrMissingConfig) {
		t.logger.LogAttrs(ctx, slog.LevelInfo, "email transport left unconfigured", logger.Error(err))
		return nil
	}
	if err != nil {
		t.initErr = &TransportError{Op: "connect", Err: err}
		return t.initErr
	}

	sender, err := t.factory(creds)
	if err != nil {
		t.initErr = &TransportError{Op: "connect", Err: err}
		t.logger.LogAttrs(ctx, slog.LevelWarn, "email transport init failed",
			slog.String("provider", creds.Provider),
			logger.Error(err),
		)
		return t.initErr
	}

	t.sender = sender
	t.brand = creds.FromName
	t.logger.LogAttrs(ctx, slog.LevelInfo, "email transport initialized",
		slog.String("provider", creds.Provider),
		slog.String("from", sanitizer.MaskEmail(creds.FromEmail)),
	)
	return nil
}

func (t *EmailTransport) ensureInitialized(ctx context.Context) {
	t.mu.RLock()
	done := t.initialized
	t.mu.RUnlock()
	if done {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		_ = t.initLocked(ctx)
	}
}

// Configured reports whether a client is available, initializing on first use.
func (t *EmailTransport) Configured(ctx context.Context) bool {
	t.ensureInitialized(ctx)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sender != nil
}

// Send makes one delivery attempt bounded by the send timeout. It returns
// ErrTransportNotConfigured or a *TransportError.
func (t *EmailTransport) Send(ctx context.Context, msg Message) error {
	t.ensureInitialized(ctx)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.initErr != nil {
		return t.initErr
	}
	if t.sender == nil {
		return ErrTransportNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	html := msg.HTML
	if !templates.IsDocument(html) {
		if doc, err := templates.Document(ctx, msg.Subject, t.brand, html); err == nil {
			html = doc
		}
	}

	start := time.Now()
	err := t.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   msg.To,
		Subject:  msg.Subject,
		BodyHTML: html,
		BodyText: msg.Text,
		Tag:      msg.Tag,
	})
	if err != nil {
		t.logger.LogAttrs(ctx, slog.LevelWarn, "email send failed",
			slog.String("to", sanitizer.MaskEmail(msg.To)),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return &TransportError{Op: "send", Err: err}
	}

	t.logger.LogAttrs(ctx, slog.LevelDebug, "email sent",
		slog.String("to", sanitizer.MaskEmail(msg.To)),
		logger.Duration(time.Since(start)),
	)
	return nil
}

// Verify probes the provider. It returns false when the transport is
// unconfigured or the probe fails, and never returns an error.
func (t *EmailTransport) Verify(ctx context.Context) bool {
	return t.probe(ctx) == nil
}

// probe is Verify with the failure reason kept.
func (t *EmailTransport) probe(ctx context.Context) error {
	t.ensureInitialized(ctx)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.initErr != nil {
		return t.initErr
	}
	if t.sender == nil {
		return ErrTransportNotConfigured
	}

	v, ok := t.sender.(email.Verifier)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := v.Verify(ctx); err != nil {
		t.logger.LogAttrs(ctx, slog.LevelWarn, "email transport verify failed", logger.Error(err))
		return &TransportError{Op: "verify", Err: err}
	}
	return nil
}
