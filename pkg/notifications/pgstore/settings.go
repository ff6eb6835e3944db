package pgstore

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/pg"
)

// Lookup reads keys from system_settings. Missing keys are absent from the
// result.
func (s *Store) Lookup(ctx context.Context, category string, keys ...string) (map[string]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM system_settings WHERE category = $1 AND key = ANY($2)`,
		category, keys,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
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
	_, err := s.db.Exec(ctx, `
		INSERT INTO system_settings (category, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		category, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s/%s: %w", category, key, err)
	}
	return nil
}

// FindActive returns the active template called name.
func (s *Store) FindActive(ctx context.Context, name string) (notifications.Template, error) {
	t := notifications.Template{Name: name}
	err := s.db.QueryRow(ctx,
		`SELECT subject, html_body, text_body FROM notification_templates WHERE name = $1 AND active`,
		name,
	).Scan(&t.Subject, &t.HTMLBody, &t.TextBody)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return notifications.Template{}, &notifications.TemplateNotFoundError{Name: name}
		}
		return notifications.Template{}, fmt.Errorf("find template %q: %w", name, err)
	}
	return t, nil
}

// PutTemplate inserts or replaces a template.
func (s *Store) PutTemplate(ctx context.Context, t notifications.Template, active bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_templates (name, subject, html_body, text_body, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			subject = EXCLUDED.subject,
			html_body = EXCLUDED.html_body,
			text_body = EXCLUDED.text_body,
			active = EXCLUDED.active,
			updated_at = now()`,
		t.Name, t.Subject, t.HTMLBody, t.TextBody, active,
	)
	if err != nil {
		return fmt.Errorf("put template %q: %w", t.Name, err)
	}
	return nil
}

// EmailAddress reads the recipient's address from the users table, which is
// owned by the account service.
func (s *Store) EmailAddress(ctx context.Context, recipientID int64) (string, error) {
	var addr string
	err := s.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, recipientID).Scan(&addr)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", notifications.ErrNoRecipientEmail
		}
		return "", fmt.Errorf("recipient email: %w", err)
	}
	return addr, nil
}
