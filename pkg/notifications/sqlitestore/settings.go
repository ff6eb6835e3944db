package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

// Lookup reads keys from system_settings. Missing keys are absent from the
// result.
func (s *Store) Lookup(ctx context.Context, category string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, category)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM system_settings WHERE category = ? AND key IN (`+placeholders(len(keys))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("lookup settings: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup settings: %w", err)
	}
	return out, nil
}

// SetSetting inserts or replaces one value.
func (s *Store) SetSetting(ctx context.Context, category, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_settings (category, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (category, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		category, key, value, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s/%s: %w", category, key, err)
	}
	return nil
}

// FindActive returns the active template called name.
func (s *Store) FindActive(ctx context.Context, name string) (notifications.Template, error) {
	t := notifications.Template{Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT subject, html_body, text_body FROM notification_templates WHERE name = ? AND active = 1`,
		name,
	).Scan(&t.Subject, &t.HTMLBody, &t.TextBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notifications.Template{}, &notifications.TemplateNotFoundError{Name: name}
		}
		return notifications.Template{}, fmt.Errorf("find template %q: %w", name, err)
	}
	return t, nil
}

// PutTemplate inserts or replaces a template.
func (s *Store) PutTemplate(ctx context.Context, t notifications.Template, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_templates (name, subject, html_body, text_body, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			subject = excluded.subject,
			html_body = excluded.html_body,
			text_body = excluded.text_body,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		t.Name, t.Subject, t.HTMLBody, t.TextBody, active, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put template %q: %w", t.Name, err)
	}
	return nil
}

// EmailAddress reads the recipient's address from the recipients table.
func (s *Store) EmailAddress(ctx context.Context, recipientID int64) (string, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM recipients WHERE id = ?`, recipientID).Scan(&addr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notifications.ErrNoRecipientEmail
		}
		return "", fmt.Errorf("recipient email: %w", err)
	}
	return addr, nil
}

// PutRecipient stores the address for recipientID.
func (s *Store) PutRecipient(ctx context.Context, recipientID int64, email string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients (id, email) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET email = excluded.email`,
		recipientID, email,
	)
	if err != nil {
		return fmt.Errorf("put recipient %d: %w", recipientID, err)
	}
	return nil
}
