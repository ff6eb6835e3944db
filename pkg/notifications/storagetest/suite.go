// Package storagetest holds the behavioural suite every notifications.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) notifications.Storage

// Run executes the suite against stores built by newStore. Subtests run
// sequentially so that shared databases can be reset by the factory.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, newStore(t)) })
	t.Run("UpdateStatus", func(t *testing.T) { testUpdateStatus(t, newStore(t)) })
	t.Run("DeliveredBackfillsSent", func(t *testing.T) { testDeliveredBackfillsSent(t, newStore(t)) })
	t.Run("MarkRead", func(t *testing.T) { testMarkRead(t, newStore(t)) })
	t.Run("UnreadCount", func(t *testing.T) { testUnreadCount(t, newStore(t)) })
	t.Run("ListForUser", func(t *testing.T) { testListForUser(t, newStore(t)) })
}

func testCreateGet(t *testing.T, s notifications.Storage) {
	ctx := context.Background()

	id, err := s.Create(ctx, notifications.Record{
		RecipientID:  1,
		Channel:      notifications.ChannelEmail,
		Title:        "Pago recibido",
		Message:      "Gracias",
		Payload:      map[string]any{"plan": "Cosecha"},
		TemplateName: "payment_success",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, int64(1), rec.RecipientID)
	assert.Equal(t, notifications.ChannelEmail, rec.Channel)
	assert.Equal(t, "Pago recibido", rec.Title)
	assert.Equal(t, "Gracias", rec.Message)
	assert.Equal(t, "Cosecha", rec.Payload["plan"])
	assert.Equal(t, "payment_success", rec.TemplateName)
	assert.Equal(t, notifications.StatusPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.SentAt)
	assert.Nil(t, rec.DeliveredAt)
	assert.Nil(t, rec.ReadAt)

	given := "b7f5c1de-1111-4c1e-9a53-000000000001"
	id, err = s.Create(ctx, notifications.Record{ID: given, RecipientID: 2, Channel: notifications.ChannelInApp})
	require.NoError(t, err)
	assert.Equal(t, given, id)

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, notifications.ErrRecordNotFound)
}

func testUpdateStatus(t *testing.T, s notifications.Storage) {
	ctx := context.Background()

	id, err := s.Create(ctx, notifications.Record{RecipientID: 1, Channel: notifications.ChannelEmail})
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, id, notifications.StatusFailed, "dial tcp: connection refused"))
	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusFailed, rec.Status)
	assert.Equal(t, "dial tcp: connection refused", rec.ErrorMessage)
	assert.Nil(t, rec.SentAt)

	err = s.UpdateStatus(ctx, id, notifications.StatusDelivered, "")
	require.ErrorIs(t, err, notifications.ErrInvalidTransition)

	err = s.UpdateStatus(ctx, "missing", notifications.StatusDelivered, "")
	require.ErrorIs(t, err, notifications.ErrRecordNotFound)
}

func testDeliveredBackfillsSent(t *testing.T, s notifications.Storage) {
	ctx := context.Background()

	direct, err := s.Create(ctx, notifications.Record{RecipientID: 1, Channel: notifications.ChannelEmail})
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, direct, notifications.StatusDelivered, ""))

	rec, err := s.Get(ctx, direct)
	require.NoError(t, err)
	require.NotNil(t, rec.SentAt)
	require.NotNil(t, rec.DeliveredAt)
	assert.True(t, rec.SentAt.Equal(*rec.DeliveredAt))

	stepped, err := s.Create(ctx, notifications.Record{RecipientID: 1, Channel: notifications.ChannelSMS})
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, stepped, notifications.StatusSent, ""))
	sent, err := s.Get(ctx, stepped)
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.UpdateStatus(ctx, stepped, notifications.StatusDelivered, ""))
	rec, err = s.Get(ctx, stepped)
	require.NoError(t, err)
	require.NotNil(t, rec.DeliveredAt)
	assert.True(t, rec.SentAt.Equal(*sent.SentAt))
	assert.True(t, rec.DeliveredAt.After(*rec.SentAt))
}

func testMarkRead(t *testing.T, s notifications.Storage) {
	ctx := context.Background()

	id, err := s.Create(ctx, notifications.Record{RecipientID: 42, Channel: notifications.ChannelInApp, Status: notifications.StatusDelivered})
	require.NoError(t, err)

	ok, err := s.MarkRead(ctx, id, 42)
	require.NoError(t, err)
	require.True(t, ok)
	first, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	assert.Equal(t, notifications.StatusRead, first.Status)

	time.Sleep(2 * time.Millisecond)
	ok, err = s.MarkRead(ctx, id, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	second, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, second.ReadAt)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	ok, err = s.MarkRead(ctx, id, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkRead(ctx, "missing", 42)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := s.Create(ctx, notifications.Record{RecipientID: 42, Channel: notifications.ChannelInApp})
	require.NoError(t, err)
	ok, err = s.MarkRead(ctx, pending, 42)
	require.ErrorIs(t, err, notifications.ErrInvalidTransition)
	assert.False(t, ok)

	rec, err := s.Get(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, rec.Status)
	assert.Nil(t, rec.ReadAt)
}

func testUnreadCount(t *testing.T, s notifications.Storage) {
	ctx := context.Background()

	var ids []string
	for range 3 {
		id, err := s.Create(ctx, notifications.Record{RecipientID: 42, Channel: notifications.ChannelInApp, Status: notifications.StatusDelivered})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.Create(ctx, notifications.Record{RecipientID: 7, Channel: notifications.ChannelInApp, Status: notifications.StatusDelivered})
	require.NoError(t, err)

	ok, err := s.MarkRead(ctx, ids[1], 42)
	require.NoError(t, err)
	require.True(t, ok)

	count, err := s.UnreadCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.UnreadCount(ctx, 1000)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testListForUser(t *testing.T, s notifications.Storage) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	create := func(title string, ch notifications.Channel, at time.Time) {
		_, err := s.Create(ctx, notifications.Record{RecipientID: 1, Channel: ch, Title: title, CreatedAt: at})
		require.NoError(t, err)
	}
	create("a", notifications.ChannelEmail, base)
	create("b", notifications.ChannelInApp, base.Add(time.Hour))
	create("c", notifications.ChannelEmail, base.Add(2*time.Hour))
	create("d", notifications.ChannelEmail, base.Add(2*time.Hour))
	_, err := s.Create(ctx, notifications.Record{RecipientID: 2, Channel: notifications.ChannelEmail, Title: "other", CreatedAt: base})
	require.NoError(t, err)

	tests := []struct {
		name string
		opts notifications.ListOptions
		want []string
	}{
		{"all newest first", notifications.ListOptions{}, []string{"d", "c", "b", "a"}},
		{"channel filter", notifications.ListOptions{Channel: notifications.ChannelEmail}, []string{"d", "c", "a"}},
		{"limit", notifications.ListOptions{Limit: 2}, []string{"d", "c"}},
		{"offset", notifications.ListOptions{Offset: 1, Limit: 2}, []string{"c", "b"}},
		{"offset past end", notifications.ListOptions{Offset: 10}, []string{}},
		{"negative offset", notifications.ListOptions{Offset: -3, Limit: 1}, []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListForUser(ctx, 1, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(recs))
		})
	}
}

func titles(recs []notifications.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}
