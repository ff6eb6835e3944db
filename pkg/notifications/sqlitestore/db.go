// Package sqlitestore persists notifications, settings and templates in a
// single SQLite database. It serves local and single-node deployments; the
// pure Go modernc.org/sqlite driver keeps the binary free of cgo.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/cafetal/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable stores the applied goose versions.
const MigrationsTable = "cafetal_migrations"

// ErrFailedToApplyMigrations wraps goose failures.
var ErrFailedToApplyMigrations = errors.New("sqlitestore: failed to apply migrations")

// Open opens the database at dsn (":memory:" or "file:notify.db?_pragma=busy_timeout(5000)")
// and applies the embedded migrations. SQLite allows a single writer, so the
// pool is capped at one connection; this also keeps an in-memory database
// alive for the lifetime of the handle.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	store, err := database.NewStore(database.DialectSQLite3, MigrationsTable)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	provider, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		log.LogAttrs(ctx, slog.LevelDebug, "migration applied",
			logger.Component("sqlitestore"),
			slog.Int64("version", r.Source.Version),
			logger.Duration(r.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}
