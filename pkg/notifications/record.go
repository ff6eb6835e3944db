package notifications

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/statemachine"
)

// Channel is a delivery mechanism for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp}

// Valid reports whether c is one of Channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// Status is the delivery state of a Record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusRead      Status = "read"
)

// Successful reports whether the status counts as a successful notify.
func (s Status) Successful() bool {
	return s == StatusSent || s == StatusDelivered
}

// Lifecycle is the status transition table. Failed is terminal; a retry is a
// new record.
var Lifecycle = statemachine.MustNew(StatusPending,
	statemachine.Transition[Status]{From: StatusPending, To: StatusSent},
	statemachine.Transition[Status]{From: StatusPending, To: StatusDelivered},
	statemachine.Transition[Status]{From: StatusPending, To: StatusFailed},
	statemachine.Transition[Status]{From: StatusSent, To: StatusDelivered},
	statemachine.Transition[Status]{From: StatusSent, To: StatusRead},
	statemachine.Transition[Status]{From: StatusDelivered, To: StatusRead},
)

// Record is one notification attempt and its outcome.
type Record struct {
	ID           string         `json:"id"`
	RecipientID  int64          `json:"recipient_id"`
	Channel      Channel        `json:"channel"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload,omitempty"`
	TemplateName string         `json:"template_name,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
	ReadAt       *time.Time     `json:"read_at,omitempty"`
}

// Transition moves the record to status to and stamps the matching
// timestamp. Delivered also fills SentAt when it is still empty. errMsg is
// kept only for failed records.
func (r *Record) Transition(to Status, errMsg string, now time.Time) error {
	if err := Lifecycle.Check(r.Status, to); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	r.Status = to
	switch to {
	case StatusSent:
		r.SentAt = &now
	case StatusDelivered:
		if r.SentAt == nil {
			r.SentAt = &now
		}
		r.DeliveredAt = &now
	case StatusFailed:
		r.ErrorMessage = errMsg
	case StatusRead:
		r.ReadAt = &now
	}
	return nil
}

// MarkRead marks the record read for recipientID. It reports false without
// error when the record is already read, so ReadAt is never overwritten.
func (r *Record) MarkRead(recipientID int64, now time.Time) (bool, error) {
	if r.RecipientID != recipientID {
		return false, ErrNotRecipient
	}
	if r.Status == StatusRead {
		return false, nil
	}
	if err := r.Transition(StatusRead, "", now); err != nil {
		return false, err
	}
	return true, nil
}

// ReadOutcome converts a MarkRead error into the (ok, err) pair returned by
// Storage.MarkRead. Ownership mismatches and unknown records are reported as
// a plain false.
func ReadOutcome(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case isAny(err, ErrNotRecipient, ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Clone returns a deep enough copy for storage isolation.
func (r Record) Clone() Record {
	if r.Payload != nil {
		p := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			p[k] = v
		}
		r.Payload = p
	}
	r.SentAt = cloneTime(r.SentAt)
	r.DeliveredAt = cloneTime(r.DeliveredAt)
	r.ReadAt = cloneTime(r.ReadAt)
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
