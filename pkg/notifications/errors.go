package notifications

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEvent      = errors.New("notifications: invalid event")
	ErrRecordNotFound    = errors.New("notifications: record not found")
	ErrInvalidTransition = errors.New("notifications: invalid status transition")
	ErrNotRecipient      = errors.New("notifications: record belongs to another recipient")
	ErrNoRecipientEmail  = errors.New("recipient email address not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTransport         = errors.New("email transport error")
	ErrDispatchPanic     = errors.New("dispatcher panicked")

	// ErrConfiguration is matched by every configuration failure.
	ErrConfiguration = errors.New("configuration error")

	ErrChannelDisabled        error = &configError{msg: "channel disabled"}
	ErrMissingConfig          error = &configError{msg: "email credentials are not configured"}
	ErrTransportNotConfigured error = &configError{msg: "email transport is not configured"}
)

type configError struct {
	msg string
}

func (e *configError) Error() string { return e.msg }

func (e *configError) Is(target error) bool { return target == ErrConfiguration }

// TemplateNotFoundError names a template that neither the template store nor
// the built-in defaults provide.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.Name)
}

func (e *TemplateNotFoundError) Unwrap() error { return ErrTemplateNotFound }

// TransportError wraps a failed transport operation.
type TransportError struct {
	Op  string // "connect", "send" or "verify"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("email transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
