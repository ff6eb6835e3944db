package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 15 * time.Second

// SMTPClient sends mail over SMTP with go-mail. Dial and send are serialized,
// so one client can be shared across goroutines.
type SMTPClient struct {
	mu     sync.Mutex
	client *mail.Client
	sender Sender
}

// NewSMTPClient validates cfg and builds the client. No connection is made
// until the first send or Verify.
func NewSMTPClient(cfg SMTPConfig) (*SMTPClient, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("%w: Host is required", ErrInvalidConfig)
	}
	if !isValidAddress(cfg.Sender.Email) {
		return nil, fmt.Errorf("%w: sender email must be a valid email address", ErrInvalidConfig)
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
		if cfg.Secure {
			cfg.Port = 465
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &SMTPClient{client: client, sender: cfg.Sender}, nil
}

// SendEmail dials, sends one message and closes the connection.
func (c *SMTPClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	msg, err := c.buildMessage(params)
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}

// Verify opens and closes an SMTP session, authenticating when credentials
// are configured.
func (c *SMTPClient) Verify(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.DialWithContext(ctx); err != nil {
		return errors.Join(ErrVerifyFailed, err)
	}
	if err := c.client.Close(); err != nil {
		return errors.Join(ErrVerifyFailed, err)
	}
	return nil
}

func (c *SMTPClient) buildMessage(params SendEmailParams) (*mail.Msg, error) {
	msg := mail.NewMsg()

	var err error
	if c.sender.Name != "" {
		err = msg.FromFormat(c.sender.Name, c.sender.Email)
	} else {
		err = msg.From(c.sender.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if c.sender.ReplyTo != "" {
		if err := msg.ReplyTo(c.sender.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	}
	if err := msg.To(strings.TrimSpace(params.SendTo)); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	msg.Subject(params.Subject)
	msg.SetMessageID()
	msg.SetDate()
	if params.Tag != "" {
		msg.SetGenHeader(mail.Header("X-Tag"), params.Tag)
	}

	if params.BodyText != "" {
		msg.SetBodyString(mail.TypeTextPlain, params.BodyText)
		msg.AddAlternativeString(mail.TypeTextHTML, params.BodyHTML)
	} else {
		msg.SetBodyString(mail.TypeTextHTML, params.BodyHTML)
	}

	return msg, nil
}
