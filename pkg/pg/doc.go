// Package pg wires PostgreSQL into the service through the pgx/v5 driver.
//
// It covers connection pooling with retries, goose migrations read from an
// fs.FS (usually an embed.FS owned by the store package), a health probe and
// a few error classifiers.
//
// # Usage
//
//	cfg := config.MustLoad[pg.Config]()
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations(), cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
//	health := pg.Healthcheck(pool)
//
// # Configuration
//
// Config is populated from PG_* environment variables; see the field tags for
// names and defaults.
//
// # Error Handling
//
// [IsNotFoundError] and [IsDuplicateKeyError] classify errors returned by pgx
// so that stores can map them to their own sentinels.
package pg
