package notifications_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/notifications/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	storagetest.Run(t, func(t *testing.T) notifications.Storage {
		return notifications.NewMemoryStorage()
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	id, err := s.Create(ctx, notifications.Record{
		RecipientID: 1,
		Channel:     notifications.ChannelEmail,
		Payload:     map[string]any{"k": "v"},
	})
	require.NoError(t, err)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	rec.Payload["k"] = "changed"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v", again.Payload["k"])
}
