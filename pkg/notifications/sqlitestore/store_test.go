package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/notifications/sqlitestore"
	"github.com/dmitrymomot/cafetal/pkg/notifications/storagetest"
)

func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	db, err := sqlitestore.Open(context.Background(), ":memory:", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlitestore.New(db)
}

func TestStore_Storage(t *testing.T) {
	t.Parallel()
	storagetest.Run(t, func(t *testing.T) notifications.Storage {
		return newStore(t)
	})
}

func TestStore_PayloadTypes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	id, err := s.Create(ctx, notifications.Record{
		RecipientID: 1,
		Channel:     notifications.ChannelEmail,
		Payload:     map[string]any{"amount": 1234.5, "email": "ana@finca.test", "nested": map[string]any{"k": true}},
	})
	require.NoError(t, err)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, rec.Payload["amount"])
	assert.Equal(t, "ana@finca.test", rec.Payload["email"])
	assert.Equal(t, map[string]any{"k": true}, rec.Payload["nested"])

	bare, err := s.Create(ctx, notifications.Record{RecipientID: 1, Channel: notifications.ChannelInApp})
	require.NoError(t, err)
	rec, err = s.Get(ctx, bare)
	require.NoError(t, err)
	assert.Nil(t, rec.Payload)
}

func TestStore_DuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	rec := notifications.Record{ID: "dup", RecipientID: 1, Channel: notifications.ChannelEmail}
	_, err := s.Create(ctx, rec)
	require.NoError(t, err)
	_, err = s.Create(ctx, rec)
	require.Error(t, err)
}

func TestStore_Settings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, "email_enabled", "true"))
	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, notifications.KeySMTPHost, "smtp.old.test"))
	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, notifications.KeySMTPHost, "smtp.finca.test"))
	require.NoError(t, s.SetSetting(ctx, "billing", "email_enabled", "false"))

	values, err := s.Lookup(ctx, notifications.SettingsCategory, "email_enabled", notifications.KeySMTPHost, "missing")
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, "true", values["email_enabled"])
	assert.Equal(t, "smtp.finca.test", values[notifications.KeySMTPHost])

	values, err = s.Lookup(ctx, notifications.SettingsCategory)
	require.NoError(t, err)
	assert.Empty(t, values)

	gate := notifications.NewGate(s, notifications.WithGateLogger(logger.Discard()))
	assert.True(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
	assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelSMS))

	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, "email_enabled", "off"))
	assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
}

func TestStore_Templates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	tpl := notifications.Template{Name: "welcome", Subject: "Bienvenido {{userName}}", HTMLBody: "<p>Hola</p>", TextBody: "Hola"}
	require.NoError(t, s.PutTemplate(ctx, tpl, true))

	got, err := s.FindActive(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, tpl, got)

	resolver, err := notifications.NewTemplateResolver(s, notifications.WithResolverLogger(logger.Discard()))
	require.NoError(t, err)
	resolved, err := resolver.Resolve(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Bienvenido {{userName}}", resolved.Subject)

	require.NoError(t, s.PutTemplate(ctx, tpl, false))
	_, err = s.FindActive(ctx, "welcome")
	require.ErrorIs(t, err, notifications.ErrTemplateNotFound)

	resolved, err = resolver.Resolve(ctx, "welcome")
	require.NoError(t, err)
	assert.NotEqual(t, "Bienvenido {{userName}}", resolved.Subject)
}

func TestStore_Recipients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.PutRecipient(ctx, 42, "old@finca.test"))
	require.NoError(t, s.PutRecipient(ctx, 42, "maria@finca.test"))

	addr, err := s.EmailAddress(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "maria@finca.test", addr)

	_, err = s.EmailAddress(ctx, 7)
	require.ErrorIs(t, err, notifications.ErrNoRecipientEmail)
}

func TestOpen_FileReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notify.db")

	db, err := sqlitestore.Open(ctx, "file:"+path, logger.Discard())
	require.NoError(t, err)
	id, err := sqlitestore.New(db).Create(ctx, notifications.Record{RecipientID: 1, Channel: notifications.ChannelInApp})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = sqlitestore.Open(ctx, "file:"+path, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec, err := sqlitestore.New(db).Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, rec.Status)
}
