package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/email"
)

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	valid := email.PostmarkConfig{
		ServerToken:  "server-token",
		AccountToken: "account-token",
		Sender:       email.Sender{Email: "no-reply@cafetal.co", Name: "Cafetal", ReplyTo: "soporte@cafetal.co"},
	}

	client, err := email.NewPostmarkClient(valid)
	require.NoError(t, err)
	assert.NotNil(t, client)

	tests := []struct {
		name   string
		mutate func(c *email.PostmarkConfig)
		errMsg string
	}{
		{"empty server token", func(c *email.PostmarkConfig) { c.ServerToken = "" }, "ServerToken is required"},
		{"empty account token", func(c *email.PostmarkConfig) { c.AccountToken = "" }, "AccountToken is required"},
		{"invalid sender", func(c *email.PostmarkConfig) { c.Sender.Email = "nope" }, "sender email"},
		{"invalid reply-to", func(c *email.PostmarkConfig) { c.Sender.ReplyTo = "nope" }, "reply-to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPostmarkClient_SendEmailValidatesFirst(t *testing.T) {
	t.Parallel()

	client, err := email.NewPostmarkClient(email.PostmarkConfig{
		ServerToken:  "server-token",
		AccountToken: "account-token",
		Sender:       email.Sender{Email: "no-reply@cafetal.co"},
	})
	require.NoError(t, err)

	err = client.SendEmail(context.Background(), email.SendEmailParams{SendTo: "ana@finca.co"})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}
