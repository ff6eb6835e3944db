package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/mrz1836/postmark"
)

// PostmarkClient sends mail through the Postmark API.
type PostmarkClient struct {
	client *postmark.Client
	from   string
	sender Sender
}

// NewPostmarkClient creates a Postmark-backed email sender. Both tokens are
// required: the server token sends mail, the account token is used by Verify.
func NewPostmarkClient(cfg PostmarkConfig) (*PostmarkClient, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if !isValidAddress(cfg.Sender.Email) {
		return nil, fmt.Errorf("%w: sender email must be a valid email address", ErrInvalidConfig)
	}
	if cfg.Sender.ReplyTo != "" && !isValidAddress(cfg.Sender.ReplyTo) {
		return nil, fmt.Errorf("%w: reply-to must be a valid email address", ErrInvalidConfig)
	}

	from := cfg.Sender.Email
	if cfg.Sender.Name != "" {
		from = (&mail.Address{Name: cfg.Sender.Name, Address: cfg.Sender.Email}).String()
	}

	return &PostmarkClient{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   from,
		sender: cfg.Sender,
	}, nil
}

// SendEmail implements EmailSender using Postmark's transactional API.
// Only opens and HTML link clicks are tracked.
func (c *PostmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:       c.from,
		ReplyTo:    c.sender.ReplyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

// Verify fetches the server bound to the server token.
func (c *PostmarkClient) Verify(ctx context.Context) error {
	if _, err := c.client.GetCurrentServer(ctx); err != nil {
		return errors.Join(ErrVerifyFailed, err)
	}
	return nil
}
