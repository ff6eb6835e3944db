package notifications_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/secrets"
)

func newGate(values map[string]string, opts ...notifications.GateOption) (*notifications.Gate, *notifications.MemorySettings) {
	src := notifications.NewMemorySettings(values)
	opts = append([]notifications.GateOption{notifications.WithGateLogger(logger.Discard())}, opts...)
	return notifications.NewGate(src, opts...), src
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"true", "TRUE", "1", "yes", "Yes", "on", " on "} {
		assert.True(t, notifications.ParseBool(v), v)
	}
	for _, v := range []string{"", "false", "0", "no", "off", "enabled", "y"} {
		assert.False(t, notifications.ParseBool(v), v)
	}
}

func TestGate_ChannelEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reads channel switch", func(t *testing.T) {
		t.Parallel()
		gate, _ := newGate(map[string]string{"email_enabled": "true", "sms_enabled": "false"})

		assert.True(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
		assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelSMS))
		assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelPush), "missing is disabled")
	})

	t.Run("read failure is disabled", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{"email_enabled": "true"})
		src.FailWith(assert.AnError)

		assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))

		src.FailWith(nil)
		assert.True(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
	})

	t.Run("no caching", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{"email_enabled": "true"})
		require.True(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))

		src.Set(notifications.SettingsCategory, "email_enabled", "false")
		assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
	})

	t.Run("other categories are ignored", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(nil)
		src.Set("billing", "email_enabled", "true")
		assert.False(t, gate.ChannelEnabled(ctx, notifications.ChannelEmail))
	})
}

func TestGate_EventEnabled(t *testing.T) {
	t.Parallel()
	gate, _ := newGate(map[string]string{
		string(notifications.TogglePaymentSuccess): "1",
		string(notifications.TogglePaymentFailed):  "no",
	})
	ctx := context.Background()

	assert.True(t, gate.EventEnabled(ctx, notifications.TogglePaymentSuccess))
	assert.False(t, gate.EventEnabled(ctx, notifications.TogglePaymentFailed))
	assert.False(t, gate.EventEnabled(ctx, notifications.ToggleWelcome))
}

func TestGate_EmailCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("smtp defaults", func(t *testing.T) {
		t.Parallel()
		gate, _ := newGate(map[string]string{
			notifications.KeySMTPHost:     " smtp.finca.test ",
			notifications.KeySMTPUser:     "Mailer@Finca.test",
			notifications.KeySMTPPassword: "pw",
		})

		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.ProviderSMTP, creds.Provider)
		assert.Equal(t, "smtp.finca.test", creds.Host)
		assert.Equal(t, 587, creds.Port)
		assert.False(t, creds.Secure)
		assert.Equal(t, "pw", creds.Password)
		assert.Equal(t, "mailer@finca.test", creds.FromEmail, "from falls back to user")
	})

	t.Run("secure port default and explicit from", func(t *testing.T) {
		t.Parallel()
		gate, _ := newGate(map[string]string{
			notifications.KeySMTPHost:   "smtp.finca.test",
			notifications.KeySMTPUser:   "apikey",
			notifications.KeySMTPSecure: "true",
			notifications.KeyFromEmail:  "no-reply@finca.test",
			notifications.KeyFromName:   "Cafetal\nBcc: x",
		})

		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, 465, creds.Port)
		assert.Equal(t, "no-reply@finca.test", creds.FromEmail)
		assert.Equal(t, "Cafetal Bcc: x", creds.FromName)
	})

	t.Run("explicit and invalid port", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{
			notifications.KeySMTPHost: "smtp.finca.test",
			notifications.KeySMTPUser: "apikey",
			notifications.KeySMTPPort: "2525",
		})

		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2525, creds.Port)

		src.Set(notifications.SettingsCategory, notifications.KeySMTPPort, "smtp")
		creds, err = gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, 587, creds.Port)
	})

	t.Run("missing host or user", func(t *testing.T) {
		t.Parallel()
		for _, values := range []map[string]string{
			{},
			{notifications.KeySMTPHost: "smtp.finca.test"},
			{notifications.KeySMTPUser: "apikey"},
		} {
			gate, _ := newGate(values)
			_, err := gate.EmailCredentials(ctx)
			require.ErrorIs(t, err, notifications.ErrMissingConfig)
			assert.ErrorIs(t, err, notifications.ErrConfiguration)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{
			notifications.KeySMTPHost: "smtp.finca.test",
			notifications.KeySMTPUser: "apikey",
		})
		src.FailWith(assert.AnError)

		_, err := gate.EmailCredentials(ctx)
		require.ErrorIs(t, err, notifications.ErrMissingConfig)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("postmark requires both tokens", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{
			notifications.KeyEmailProvider:       "Postmark",
			notifications.KeyPostmarkServerToken: "server",
		})
		_, err := gate.EmailCredentials(ctx)
		require.ErrorIs(t, err, notifications.ErrMissingConfig)

		src.Set(notifications.SettingsCategory, notifications.KeyPostmarkAccountToken, "account")
		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.ProviderPostmark, creds.Provider)
		assert.Equal(t, "server", creds.PostmarkServerToken)
		assert.Equal(t, "account", creds.PostmarkAccountToken)
	})

	t.Run("file provider requires directory", func(t *testing.T) {
		t.Parallel()
		gate, src := newGate(map[string]string{notifications.KeyEmailProvider: "file"})
		_, err := gate.EmailCredentials(ctx)
		require.ErrorIs(t, err, notifications.ErrMissingConfig)

		src.Set(notifications.SettingsCategory, notifications.KeyEmailDevDir, t.TempDir())
		_, err = gate.EmailCredentials(ctx)
		require.NoError(t, err)
	})
}

func TestGate_SealedSecrets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	raw, err := secrets.DecodeKey(key)
	require.NoError(t, err)
	sealer, err := secrets.NewSealer(raw)
	require.NoError(t, err)

	sealed, err := sealer.Seal(notifications.SettingsCategory, "s3cret")
	require.NoError(t, err)

	values := map[string]string{
		notifications.KeySMTPHost:     "smtp.finca.test",
		notifications.KeySMTPUser:     "apikey",
		notifications.KeySMTPPassword: sealed,
	}

	t.Run("opened with sealer", func(t *testing.T) {
		t.Parallel()
		gate, _ := newGate(values, notifications.WithSealer(sealer))
		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", creds.Password)
	})

	t.Run("without sealer is missing config", func(t *testing.T) {
		t.Parallel()
		gate, _ := newGate(values)
		_, err := gate.EmailCredentials(ctx)
		require.ErrorIs(t, err, notifications.ErrMissingConfig)
	})

	t.Run("plain password still accepted", func(t *testing.T) {
		t.Parallel()
		plain := map[string]string{
			notifications.KeySMTPHost:     "smtp.finca.test",
			notifications.KeySMTPUser:     "apikey",
			notifications.KeySMTPPassword: "plain",
		}
		gate, _ := newGate(plain, notifications.WithSealer(sealer))
		creds, err := gate.EmailCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, "plain", creds.Password)
	})
}
