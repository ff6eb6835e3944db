// Package pgstore persists notifications, settings and templates in
// PostgreSQL through pgx.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations for pg.Migrate.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// ErrDuplicateID is returned by Create when the record ID already exists.
var ErrDuplicateID = errors.New("pgstore: duplicate notification id")

// DB is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements notifications.Storage, notifications.SettingsSource,
// notifications.TemplateSource and notifications.RecipientDirectory.
type Store struct {
	db  DB
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

// New creates a Store over db. Run pg.Migrate with Migrations first.
func New(db DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const recordColumns = `id, recipient_id, channel, title, message, payload, template_name,
	status, error_message, created_at, sent_at, delivered_at, read_at`

func scanRecord(row pgx.Row) (notifications.Record, error) {
	var (
		r               notifications.Record
		channel, status string
	)
	err := row.Scan(
		&r.ID, &r.RecipientID, &channel, &r.Title, &r.Message, &r.Payload, &r.TemplateName,
		&status, &r.ErrorMessage, &r.CreatedAt, &r.SentAt, &r.DeliveredAt, &r.ReadAt,
	)
	if err != nil {
		return notifications.Record{}, err
	}
	r.Channel = notifications.Channel(channel)
	r.Status = notifications.Status(status)
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

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.RecipientID, string(rec.Channel), rec.Title, rec.Message, rec.Payload, rec.TemplateName,
		string(rec.Status), rec.ErrorMessage, rec.CreatedAt, rec.SentAt, rec.DeliveredAt, rec.ReadAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return rec.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*notifications.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &rec, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status notifications.Status, errorMessage string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rec, err := lockRecord(ctx, tx, id)
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
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rec, err := lockRecord(ctx, tx, id)
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

func lockRecord(ctx context.Context, tx pgx.Tx, id string) (notifications.Record, error) {
	rec, err := scanRecord(tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM notifications WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return rec, notifications.ErrRecordNotFound
		}
		return rec, fmt.Errorf("lock notification: %w", err)
	}
	return rec, nil
}

func saveStatus(ctx context.Context, tx pgx.Tx, rec notifications.Record) error {
	_, err := tx.Exec(ctx, `
		UPDATE notifications
		SET status = $2, error_message = $3, sent_at = $4, delivered_at = $5, read_at = $6
		WHERE id = $1`,
		rec.ID, string(rec.Status), rec.ErrorMessage, rec.SentAt, rec.DeliveredAt, rec.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, recipientID int64, opts notifications.ListOptions) ([]notifications.Record, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+recordColumns+` FROM notifications
		WHERE recipient_id = $1 AND ($2::text = '' OR channel = $2::text)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`,
		recipientID, string(opts.Channel), limit, max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notifications.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return recs, nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND status <> $2`,
		recipientID, string(notifications.StatusRead),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
