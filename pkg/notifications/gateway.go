package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/webhook"
)

// GatewayMessage is the body posted to an SMS or push gateway.
type GatewayMessage struct {
	ID          string         `json:"id"`
	RecipientID int64          `json:"recipient_id"`
	Channel     Channel        `json:"channel"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// GatewayProvider hands SMS or push records to an HTTP gateway that owns the
// carrier or push-service integration.
type GatewayProvider struct {
	sender   *webhook.Sender
	endpoint string
	logger   *slog.Logger
}

// NewGatewayProvider creates a provider posting to endpoint through sender.
func NewGatewayProvider(sender *webhook.Sender, endpoint string, l *slog.Logger) *GatewayProvider {
	if l == nil {
		l = slog.Default()
	}
	return &GatewayProvider{
		sender:   sender,
		endpoint: endpoint,
		logger:   l.With(logger.Component("gateway")),
	}
}

func (p *GatewayProvider) Send(ctx context.Context, rec Record) error {
	start := time.Now()
	err := p.sender.Send(ctx, p.endpoint, GatewayMessage{
		ID:          rec.ID,
		RecipientID: rec.RecipientID,
		Channel:     rec.Channel,
		Title:       rec.Title,
		Message:     rec.Message,
		Payload:     rec.Payload,
	})
	if err != nil {
		return fmt.Errorf("%s gateway: %w", rec.Channel, err)
	}
	p.logger.LogAttrs(ctx, slog.LevelDebug, "gateway accepted notification",
		logger.NotificationID(rec.ID),
		logger.Channel(string(rec.Channel)),
		logger.Duration(time.Since(start)),
	)
	return nil
}

// GatewayConfig points SMS and push delivery at HTTP gateways. Channels
// without a URL keep the simulated provider.
type GatewayConfig struct {
	SMSURL           string        `env:"SMS_GATEWAY_URL"`
	PushURL          string        `env:"PUSH_GATEWAY_URL"`
	Secret           string        `env:"GATEWAY_SIGNING_SECRET"`
	Timeout          time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	FailureThreshold int           `env:"GATEWAY_BREAKER_FAILURES" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"GATEWAY_BREAKER_RECOVERY" envDefault:"30s"`
}

// Apply replaces the SMS and push dispatchers of d with gateway-backed ones
// for every configured URL. Each endpoint gets its own circuit breaker.
// Deliveries are at most once: a gateway call is never retried.
func (c GatewayConfig) Apply(d *Dispatchers, gate *Gate, l *slog.Logger) {
	provider := func(endpoint string) Provider {
		sender := webhook.NewSender(
			webhook.WithSecret(c.Secret),
			webhook.WithTimeout(c.Timeout),
			webhook.WithRetries(0),
			webhook.WithCircuitBreaker(webhook.NewCircuitBreaker(c.FailureThreshold, 0, c.RecoveryTimeout)),
		)
		return NewGatewayProvider(sender, endpoint, l)
	}
	if c.SMSURL != "" {
		d.SMS = NewSMSDispatcher(gate, provider(c.SMSURL))
	}
	if c.PushURL != "" {
		d.Push = NewPushDispatcher(gate, provider(c.PushURL))
	}
}
