// Package webhook posts signed JSON payloads to HTTP endpoints. The SMS and
// push gateways of the notifier are reached through it.
//
// A Sender retries temporary failures with exponential backoff and jitter,
// stops at the first permanent failure (most 4xx answers) and can be guarded
// by a CircuitBreaker shared across sends to the same endpoint:
//
//	cb := webhook.NewCircuitBreaker(5, 2, 30*time.Second)
//	s := webhook.NewSender(webhook.WithSecret(secret), webhook.WithCircuitBreaker(cb))
//	err := s.Send(ctx, "https://sms.example.com/send", msg)
//
// Signed requests carry X-Webhook-Signature, X-Webhook-Timestamp and
// X-Webhook-ID. The signature is the hex HMAC-SHA256 of "timestamp.body";
// receivers check it with Verify.
package webhook
