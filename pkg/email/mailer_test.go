package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "caficultor@finca.co",
		Subject:  "Pago recibido",
		BodyHTML: "<p>Gracias</p>",
	}

	tests := []struct {
		name   string
		mutate func(p *email.SendEmailParams)
		errMsg string
	}{
		{"valid", func(p *email.SendEmailParams) {}, ""},
		{"valid with text and tag", func(p *email.SendEmailParams) { p.BodyText = "Gracias"; p.Tag = "payment" }, ""},
		{"empty SendTo", func(p *email.SendEmailParams) { p.SendTo = "" }, "SendTo is required"},
		{"whitespace SendTo", func(p *email.SendEmailParams) { p.SendTo = "   " }, "SendTo is required"},
		{"invalid SendTo", func(p *email.SendEmailParams) { p.SendTo = "not-an-email" }, "SendTo must be a valid email address"},
		{"missing local part", func(p *email.SendEmailParams) { p.SendTo = "@finca.co" }, "SendTo must be a valid email address"},
		{"empty Subject", func(p *email.SendEmailParams) { p.Subject = " " }, "Subject is required"},
		{"empty BodyHTML", func(p *email.SendEmailParams) { p.BodyHTML = "" }, "BodyHTML is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("writes html text and metadata", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir, email.Sender{Email: "no-reply@cafetal.co"})

		err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   "ana@finca.co",
			Subject:  "Pago recibido",
			BodyHTML: "<p>Hola Ana</p>",
			BodyText: "Hola Ana",
			Tag:      "payment_success",
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 3)

		byExt := map[string]string{}
		for _, f := range files {
			assert.Contains(t, f.Name(), "payment_success")
			byExt[filepath.Ext(f.Name())] = filepath.Join(dir, f.Name())
		}

		html, err := os.ReadFile(byExt[".html"])
		require.NoError(t, err)
		assert.Equal(t, "<p>Hola Ana</p>", string(html))

		text, err := os.ReadFile(byExt[".txt"])
		require.NoError(t, err)
		assert.Equal(t, "Hola Ana", string(text))

		raw, err := os.ReadFile(byExt[".json"])
		require.NoError(t, err)
		var meta map[string]string
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "ana@finca.co", meta["send_to"])
		assert.Equal(t, "no-reply@cafetal.co", meta["from"])
		assert.Equal(t, "Pago recibido", meta["subject"])
	})

	t.Run("uses subject when tag is empty", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir, email.Sender{})
		err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   "ana@finca.co",
			Subject:  "Suscripción / Renovada!",
			BodyHTML: "<p>ok</p>",
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		for _, f := range files {
			assert.True(t, strings.Contains(f.Name(), "suscripcin__renovada"), f.Name())
		}
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "out")
		sender := email.NewDevSender(dir, email.Sender{})
		err := sender.SendEmail(ctx, email.SendEmailParams{SendTo: "bad"})
		assert.ErrorIs(t, err, email.ErrInvalidParams)

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("verify creates directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "out")
		require.NoError(t, email.NewDevSender(dir, email.Sender{}).Verify(ctx))
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}
