package notifications

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/validator"
)

// Event is a request to notify one recipient on one channel.
type Event struct {
	RecipientID  int64
	Channel      Channel
	Title        string
	Message      string
	Payload      map[string]any
	TemplateName string
}

// Validate checks the fields that must be present before a record exists.
func (e Event) Validate() error {
	err := validator.Apply(
		validator.Positive("recipient_id", e.RecipientID),
		validator.RequiredString("channel", string(e.Channel)),
		validator.InList("channel", e.Channel, Channels),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return nil
}

func (e Event) record(id string, now time.Time) Record {
	return Record{
		ID:           id,
		RecipientID:  e.RecipientID,
		Channel:      e.Channel,
		Title:        e.Title,
		Message:      e.Message,
		Payload:      e.Payload,
		TemplateName: e.TemplateName,
		Status:       Lifecycle.Initial(),
		CreatedAt:    now,
	}
}

// EventToggle is a per-event switch in the notifications settings category.
type EventToggle string

const (
	TogglePaymentSuccess      EventToggle = "payment_success_email"
	TogglePaymentFailed       EventToggle = "payment_failed_email"
	ToggleSubscriptionRenewal EventToggle = "subscription_renewal_email"
	ToggleSubscriptionExpiry  EventToggle = "subscription_expiry_email"
	ToggleWelcome             EventToggle = "welcome_email"
)

// PaymentData describes a payment result reported by the billing service.
type PaymentData struct {
	PaymentID string
	Amount    float64
	Currency  string
	PlanName  string
	UserName  string
	Email     string
	Reason    string // failure reason, empty on success
	PaidAt    time.Time
}

// SubscriptionData describes a subscription lifecycle event.
type SubscriptionData struct {
	SubscriptionID string
	PlanName       string
	UserName       string
	Email          string
	Amount         float64
	Currency       string
	RenewsAt       time.Time
	ExpiresAt      time.Time
}

// WelcomeData describes a newly registered user.
type WelcomeData struct {
	UserName string
	Email    string
	FarmName string
}
