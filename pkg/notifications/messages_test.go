package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestComposer(t *testing.T) {
	t.Parallel()

	paidAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	payment := PaymentData{
		PaymentID: "pay_1",
		Amount:    1234.5,
		Currency:  "usd",
		PlanName:  "Cosecha",
		UserName:  "  ana maría ",
		Email:     "ana@finca.test",
		PaidAt:    paidAt,
	}

	t.Run("spanish payment", func(t *testing.T) {
		t.Parallel()
		c := newComposer(language.Spanish).payment("payment_success", TogglePaymentSuccess, payment)

		assert.Equal(t, "payment_success", c.template)
		assert.Equal(t, TogglePaymentSuccess, c.toggle)
		assert.Equal(t, "Pago recibido", c.title)
		assert.Contains(t, c.message, "Cosecha")
		assert.Contains(t, c.message, "USD")
		assert.Equal(t, "Ana María", c.payload["userName"])
		assert.Equal(t, "14/03/2026", c.payload["paidAt"])
		assert.Equal(t, "ana@finca.test", c.payload[PayloadEmailKey])
	})

	t.Run("english payment", func(t *testing.T) {
		t.Parallel()
		c := newComposer(language.English).payment("payment_failed", TogglePaymentFailed, payment)

		assert.Equal(t, "Payment declined", c.title)
		assert.Equal(t, "We could not process your payment of 1,234.50 USD for the Cosecha plan.", c.message)
	})

	t.Run("unsupported locale falls back to spanish", func(t *testing.T) {
		t.Parallel()
		c := newComposer(language.German).welcome(WelcomeData{UserName: "ana", FarmName: "El Roble"})
		assert.Equal(t, "Bienvenido a Cafetal", c.title)
		assert.Contains(t, c.message, "El Roble")
	})

	t.Run("subscription dates follow the event", func(t *testing.T) {
		t.Parallel()
		data := SubscriptionData{
			PlanName:  "Cosecha",
			RenewsAt:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			ExpiresAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		}
		cm := newComposer(language.Spanish)

		renewal := cm.subscription("subscription_renewal", ToggleSubscriptionRenewal, data)
		assert.Contains(t, renewal.message, "01/04/2026")

		expiry := cm.subscription("subscription_expiry", ToggleSubscriptionExpiry, data)
		assert.Contains(t, expiry.message, "01/05/2026")
		assert.Equal(t, "01/05/2026", expiry.payload["expiresAt"])
	})

	t.Run("no email leaves payload address unset", func(t *testing.T) {
		t.Parallel()
		c := newComposer(language.Spanish).welcome(WelcomeData{UserName: "ana"})
		_, ok := c.payload[PayloadEmailKey]
		assert.False(t, ok)
	})
}
