package notifications

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const dateLayout = "02/01/2006"

var eventMessages = map[language.Tag]map[string]string{
	language.Spanish: {
		"payment_success.title":        "Pago recibido",
		"payment_success.message":      "Recibimos tu pago de %s para el plan %s.",
		"payment_failed.title":         "Pago rechazado",
		"payment_failed.message":       "No pudimos procesar tu pago de %s para el plan %s.",
		"subscription_renewal.title":   "Suscripción renovada",
		"subscription_renewal.message": "Tu suscripción al plan %s se renovó. Próxima renovación: %s.",
		"subscription_expiry.title":    "Tu suscripción está por vencer",
		"subscription_expiry.message":  "Tu suscripción al plan %s vence el %s.",
		"welcome.title":                "Bienvenido a Cafetal",
		"welcome.message":              "Hola %s, tu finca %s ya está registrada.",
	},
	language.English: {
		"payment_success.title":        "Payment received",
		"payment_success.message":      "We received your payment of %s for the %s plan.",
		"payment_failed.title":         "Payment declined",
		"payment_failed.message":       "We could not process your payment of %s for the %s plan.",
		"subscription_renewal.title":   "Subscription renewed",
		"subscription_renewal.message": "Your %s plan subscription was renewed. Next renewal: %s.",
		"subscription_expiry.title":    "Your subscription is about to expire",
		"subscription_expiry.message":  "Your %s plan subscription expires on %s.",
		"welcome.title":                "Welcome to Cafetal",
		"welcome.message":              "Hi %s, your farm %s is now registered.",
	},
}

var (
	eventCatalog = buildCatalog()

	// supportedLocales lists the catalog languages; the first is the default.
	supportedLocales = []language.Tag{language.Spanish, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for tag, msgs := range eventMessages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("notifications: invalid event message " + key + ": " + err.Error())
			}
		}
	}
	return b
}

// eventContent is what an event helper hands to Notify for both channels.
type eventContent struct {
	template string
	toggle   EventToggle
	title    string
	message  string
	payload  map[string]any
}

type composer struct {
	printer *message.Printer
	title   cases.Caser
}

// newComposer builds a composer for the closest supported locale. The
// returned value is not safe for concurrent use.
func newComposer(locale language.Tag) composer {
	_, i, _ := localeMatcher.Match(locale)
	tag := supportedLocales[i]
	return composer{
		printer: message.NewPrinter(tag, message.Catalog(eventCatalog)),
		title:   cases.Title(tag),
	}
}

func (c composer) amount(v float64, currency string) string {
	s := c.printer.Sprintf("%.2f", v)
	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency != "" {
		s += " " + currency
	}
	return s
}

func (c composer) name(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return n
	}
	return c.title.String(n)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func withEmail(payload map[string]any, addr string) map[string]any {
	if strings.TrimSpace(addr) != "" {
		payload[PayloadEmailKey] = addr
	}
	return payload
}

func (c composer) payment(name string, toggle EventToggle, d PaymentData) eventContent {
	amount := c.amount(d.Amount, d.Currency)
	return eventContent{
		template: name,
		toggle:   toggle,
		title:    c.printer.Sprintf(name + ".title"),
		message:  c.printer.Sprintf(name+".message", amount, d.PlanName),
		payload: withEmail(map[string]any{
			"userName":    c.name(d.UserName),
			"amount":      amount,
			"amountValue": d.Amount,
			"currency":    strings.ToUpper(d.Currency),
			"planName":    d.PlanName,
			"paymentId":   d.PaymentID,
			"paidAt":      date(d.PaidAt),
			"reason":      d.Reason,
		}, d.Email),
	}
}

func (c composer) subscription(name string, toggle EventToggle, d SubscriptionData) eventContent {
	when := date(d.RenewsAt)
	if toggle == ToggleSubscriptionExpiry {
		when = date(d.ExpiresAt)
	}
	amount := c.amount(d.Amount, d.Currency)
	return eventContent{
		template: name,
		toggle:   toggle,
		title:    c.printer.Sprintf(name + ".title"),
		message:  c.printer.Sprintf(name+".message", d.PlanName, when),
		payload: withEmail(map[string]any{
			"userName":       c.name(d.UserName),
			"planName":       d.PlanName,
			"subscriptionId": d.SubscriptionID,
			"amount":         amount,
			"renewsAt":       date(d.RenewsAt),
			"expiresAt":      date(d.ExpiresAt),
		}, d.Email),
	}
}

func (c composer) welcome(d WelcomeData) eventContent {
	userName := c.name(d.UserName)
	return eventContent{
		template: "welcome",
		toggle:   ToggleWelcome,
		title:    c.printer.Sprintf("welcome.title"),
		message:  c.printer.Sprintf("welcome.message", userName, d.FarmName),
		payload: withEmail(map[string]any{
			"userName": userName,
			"farmName": d.FarmName,
		}, d.Email),
	}
}
