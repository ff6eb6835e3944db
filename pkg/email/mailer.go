package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/cafetal/pkg/validator"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// Verifier is implemented by senders that can probe their backend without
// sending anything.
type Verifier interface {
	Verify(ctx context.Context) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`             // Email address of the recipient
	Subject  string `json:"subject"`             // Subject of the email
	BodyHTML string `json:"body_html"`           // HTML body of the email
	BodyText string `json:"body_text,omitempty"` // Optional plain-text alternative
	Tag      string `json:"tag,omitempty"`       // Optional
}

// Validate checks that the recipient is a bare address and that subject and
// HTML body are present.
func (p SendEmailParams) Validate() error {
	err := validator.Apply(
		validator.RequiredString("SendTo", p.SendTo),
		validator.RequiredString("Subject", p.Subject),
		validator.RequiredString("BodyHTML", p.BodyHTML),
	)
	if err == nil && !isValidAddress(p.SendTo) {
		return fmt.Errorf("%w: SendTo must be a valid email address", ErrInvalidParams)
	}
	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
		return fmt.Errorf("%w: %s is required", ErrInvalidParams, verrs.Fields()[0])
	}
	return err
}

func isValidAddress(addr string) bool {
	return validator.Apply(validator.ValidEmail("email", strings.TrimSpace(addr))) == nil
}
