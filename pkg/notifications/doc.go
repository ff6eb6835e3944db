// Package notifications records and delivers transactional notifications
// over email, SMS, push and in-app channels.
//
// # Architecture
//
//   - Gate: reads channel switches, event toggles and email credentials from
//     a SettingsSource. Missing or unreadable settings mean "disabled".
//   - TemplateResolver: finds the active Template by name, falling back to
//     the embedded Spanish defaults.
//   - EmailTransport: owns one provider client (SMTP, Postmark or the
//     development file sender) built lazily from the settings.
//   - Dispatchers: one per channel, each returning an Outcome.
//   - Storage: persists records and enforces the status Lifecycle.
//   - Orchestrator: the facade tying the above together.
//
// # Basic Usage
//
//	settings := notifications.NewMemorySettings(map[string]string{
//	    "email_enabled": "true",
//	    "smtp_host":     "smtp.example.com",
//	    "smtp_user":     "mailer@example.com",
//	})
//	gate := notifications.NewGate(settings)
//	transport := notifications.NewEmailTransport(gate)
//	resolver, _ := notifications.NewTemplateResolver(nil)
//	dispatchers := notifications.NewDispatchers(gate, resolver, transport, directory, nil)
//
//	orch, err := notifications.NewOrchestrator(notifications.NewMemoryStorage(), gate, dispatchers, transport)
//	if err != nil {
//	    return err
//	}
//
//	ok := orch.Notify(ctx, notifications.Event{
//	    RecipientID: 42,
//	    Channel:     notifications.ChannelEmail,
//	    Title:       "Pago recibido",
//	    Message:     "Gracias",
//	})
//
// Notify never returns an error. The returned bool is true when the record
// ended as sent or delivered; otherwise the record holds the failure reason.
//
// # Event Helpers
//
// NotifyPaymentSuccess, NotifyPaymentFailed, NotifySubscriptionRenewal,
// NotifySubscriptionExpiry and NotifyWelcome compose a localized title and
// message, send the templated email when the event toggle is on, and always
// record an in-app notification.
//
// # Background Delivery
//
// AsyncOrchestrator queues the same calls on a queue.Pool. Its Notify
// returns an async.Future resolved with the synchronous result.
//
// # Live Feed
//
// LiveFeed pushes delivered in-app records to per-recipient subscribers,
// for example an SSE handler:
//
//	sub := feed.Subscribe(r.Context(), recipientID)
//	defer sub.Close()
//	for msg := range sub.Receive(r.Context()) {
//	    // write msg.Data as an event
//	}
package notifications
