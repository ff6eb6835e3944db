package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

// Store implements notifications.Storage, notifications.SettingsSource,
// notifications.TemplateSource and notifications.RecipientDirectory over one
// database opened with Open.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over a migrated database.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const recordColumns = `id, recipient_id, channel, title, message, payload, template_name,
	status, error_message, created_at, sent_at, delivered_at, read_at`

type scanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as unix nanoseconds.
func nanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func scanRecord(row scanner) (notifications.Record, error) {
	var (
		r                           notifications.Record
		channel, status             string
		payload                     sql.NullString
		created                     int64
		sentAt, deliveredAt, readAt sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &r.RecipientID, &channel, &r.Title, &r.Message, &payload, &r.TemplateName,
		&status, &r.ErrorMessage, &created, &sentAt, &deliveredAt, &readAt,
	)
	if err != nil {
		return notifications.Record{}, err
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
			return notifications.Record{}, fmt.Errorf("decode payload: %w", err)
		}
	}
	r.Channel = notifications.Channel(channel)
	r.Status = notifications.Status(status)
	r.CreatedAt = time.Unix(0, created).UTC()
	r.SentAt = fromNanos(sentAt)
	r.DeliveredAt = fromNanos(deliveredAt)
	r.ReadAt = fromNanos(readAt)
	return r, nil
}

func (s *Store) Create(ctx context.Context, rec notifications.Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = notifications.Lifecycle.Initial()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	var payload sql.NullString
	if rec.Payload != nil {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			return "", fmt.Errorf("encode payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RecipientID, string(rec.Channel), rec.Title, rec.Message, payload, rec.TemplateName,
		string(rec.Status), rec.ErrorMessage, rec.CreatedAt.UnixNano(),
		nanos(rec.SentAt), nanos(rec.DeliveredAt), nanos(rec.ReadAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return rec.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*notifications.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notifications.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &rec, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status notifications.Status, errorMessage string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := loadRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := rec.Transition(status, errorMessage, s.now()); err != nil {
			return err
		}
		return saveStatus(ctx, tx, rec)
	})
}

func (s *Store) MarkRead(ctx context.Context, id string, recipientID int64) (bool, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := loadRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		changed, err := rec.MarkRead(recipientID, s.now())
		if err != nil || !changed {
			return err
		}
		return saveStatus(ctx, tx, rec)
	})
	return notifications.ReadOutcome(err)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, ignoreDone(tx.Rollback()))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func loadRecord(ctx context.Context, tx *sql.Tx, id string) (notifications.Record, error) {
	rec, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, notifications.ErrRecordNotFound
		}
		return rec, fmt.Errorf("load notification: %w", err)
	}
	return rec, nil
}

func saveStatus(ctx context.Context, tx *sql.Tx, rec notifications.Record) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notifications
		SET status = ?, error_message = ?, sent_at = ?, delivered_at = ?, read_at = ?
		WHERE id = ?`,
		string(rec.Status), rec.ErrorMessage, nanos(rec.SentAt), nanos(rec.DeliveredAt), nanos(rec.ReadAt), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, recipientID int64, opts notifications.ListOptions) ([]notifications.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM notifications WHERE recipient_id = ?`
	args := []any{recipientID}
	if opts.Channel != "" {
		query += ` AND channel = ?`
		args = append(args, string(opts.Channel))
	}
	// LIMIT -1 is unbounded in SQLite.
	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	recs := []notifications.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return recs, nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = ? AND status <> ?`,
		recipientID, string(notifications.StatusRead),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
