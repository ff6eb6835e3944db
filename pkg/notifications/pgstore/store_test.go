package pgstore_test

import (
	"context"
	"io/fs"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/notifications/pgstore"
	"github.com/dmitrymomot/cafetal/pkg/notifications/storagetest"
	"github.com/dmitrymomot/cafetal/pkg/pg"
)

// connect returns a migrated pool, or skips when CAFETAL_TEST_PG_URL is unset.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("CAFETAL_TEST_PG_URL")
	if url == "" {
		t.Skip("CAFETAL_TEST_PG_URL is not set")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, pgstore.Migrations(), "cafetal_test_migrations", logger.Discard()))
	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS users (id BIGINT PRIMARY KEY, email TEXT NOT NULL)`)
	require.NoError(t, err)
	return pool
}

func reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE notifications, system_settings, notification_templates, users`)
	require.NoError(t, err)
}

func TestStore_Storage(t *testing.T) {
	pool := connect(t)
	storagetest.Run(t, func(t *testing.T) notifications.Storage {
		reset(t, pool)
		return pgstore.New(pool)
	})
}

func TestStore_DuplicateID(t *testing.T) {
	pool := connect(t)
	reset(t, pool)
	ctx := context.Background()
	s := pgstore.New(pool)

	rec := notifications.Record{ID: "dup", RecipientID: 1, Channel: notifications.ChannelEmail}
	_, err := s.Create(ctx, rec)
	require.NoError(t, err)
	_, err = s.Create(ctx, rec)
	require.ErrorIs(t, err, pgstore.ErrDuplicateID)
}

func TestStore_Settings(t *testing.T) {
	pool := connect(t)
	reset(t, pool)
	ctx := context.Background()
	s := pgstore.New(pool)

	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, "email_enabled", "true"))
	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, notifications.KeySMTPHost, "smtp.old.test"))
	require.NoError(t, s.SetSetting(ctx, notifications.SettingsCategory, notifications.KeySMTPHost, "smtp.finca.test"))
	require.NoError(t, s.SetSetting(ctx, "billing", "email_enabled", "false"))

	values, err := s.Lookup(ctx, notifications.SettingsCategory, "email_enabled", notifications.KeySMTPHost, "missing")
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, "true", values["email_enabled"])
	assert.Equal(t, "smtp.finca.test", values[notifications.KeySMTPHost])

	gate := notifications.NewGate(s, notifications.WithGateLogger(logger.Discard()))
	assert.True(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
	assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelSMS))
}

func TestStore_Templates(t *testing.T) {
	pool := connect(t)
	reset(t, pool)
	ctx := context.Background()
	s := pgstore.New(pool)

	tpl := notifications.Template{Name: "welcome", Subject: "Bienvenido {{userName}}", HTMLBody: "<p>Hola</p>", TextBody: "Hola"}
	require.NoError(t, s.PutTemplate(ctx, tpl, true))

	got, err := s.FindActive(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, tpl, got)

	require.NoError(t, s.PutTemplate(ctx, tpl, false))
	_, err = s.FindActive(ctx, "welcome")
	require.ErrorIs(t, err, notifications.ErrTemplateNotFound)

	_, err = s.FindActive(ctx, "missing")
	require.ErrorIs(t, err, notifications.ErrTemplateNotFound)
}

func TestStore_EmailAddress(t *testing.T) {
	pool := connect(t)
	reset(t, pool)
	ctx := context.Background()
	s := pgstore.New(pool)

	_, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES (42, 'maria@finca.test')`)
	require.NoError(t, err)

	addr, err := s.EmailAddress(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "maria@finca.test", addr)

	_, err = s.EmailAddress(ctx, 7)
	require.ErrorIs(t, err, notifications.ErrNoRecipientEmail)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(pgstore.Migrations(), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_notifications.sql", "00002_settings_templates.sql"}, files)
}
