package notifications_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

// directory maps recipients to email addresses.
type directory map[int64]string

func (d directory) EmailAddress(_ context.Context, recipientID int64) (string, error) {
	addr, ok := d[recipientID]
	if !ok {
		return "", errors.New("unknown recipient")
	}
	return addr, nil
}

func smtpSettings(host string, port int) map[string]string {
	return map[string]string{
		"email_enabled":               "true",
		"in_app_enabled":              "true",
		notifications.KeySMTPHost:     host,
		notifications.KeySMTPPort:     strconv.Itoa(port),
		notifications.KeySMTPUser:     "mailer@cafetal.test",
		notifications.KeySMTPPassword: "secret",
		notifications.KeyFromName:     "Cafetal",
	}
}

type harness struct {
	store     *notifications.MemoryStorage
	settings  *notifications.MemorySettings
	gate      *notifications.Gate
	templates *notifications.MemoryTemplates
	transport *notifications.EmailTransport
	feed      *notifications.LiveFeed
	orch      *notifications.Orchestrator
}

func newHarness(t *testing.T, settings map[string]string) *harness {
	t.Helper()

	log := logger.Discard()
	h := &harness{
		store:     notifications.NewMemoryStorage(),
		settings:  notifications.NewMemorySettings(settings),
		templates: notifications.NewMemoryTemplates(),
		feed:      notifications.NewLiveFeed(notifications.WithFeedLogger(log)),
	}
	h.gate = notifications.NewGate(h.settings, notifications.WithGateLogger(log))
	h.transport = notifications.NewEmailTransport(h.gate, notifications.WithTransportLogger(log))

	resolver, err := notifications.NewTemplateResolver(h.templates, notifications.WithResolverLogger(log))
	require.NoError(t, err)

	dispatchers := notifications.NewDispatchers(h.gate, resolver, h.transport, directory{
		1:  "ana@finca.test",
		5:  "luis@finca.test",
		42: "maria@finca.test",
	}, h.feed)

	h.orch, err = notifications.NewOrchestrator(h.store, h.gate, dispatchers, h.transport,
		notifications.WithOrchestratorLogger(log))
	require.NoError(t, err)

	t.Cleanup(func() { _ = h.feed.Close() })
	return h
}

func (h *harness) records(t *testing.T, recipientID int64) []notifications.Record {
	t.Helper()
	recs, err := h.store.ListForUser(context.Background(), recipientID, notifications.ListOptions{})
	require.NoError(t, err)
	return recs
}
