package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/cafetal/pkg/config"
	"github.com/dmitrymomot/cafetal/pkg/httpserver"
	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/mongo"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/notifications/mongostore"
	"github.com/dmitrymomot/cafetal/pkg/notifications/pgstore"
	"github.com/dmitrymomot/cafetal/pkg/notifications/redisstore"
	"github.com/dmitrymomot/cafetal/pkg/notifications/sqlitestore"
	"github.com/dmitrymomot/cafetal/pkg/pg"
	"github.com/dmitrymomot/cafetal/pkg/redis"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// settingWriter is implemented by settings stores that accept writes.
type settingWriter func(ctx context.Context, category, key, value string) error

// backend is the set of stores the notifier runs on.
type backend struct {
	store     notifications.Storage
	settings  notifications.SettingsSource
	templates notifications.TemplateSource
	directory notifications.RecipientDirectory
	write     settingWriter
	probes    []httpserver.Probe
	closers   []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases connections in reverse order of acquisition.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// seed writes values into the notifications settings category, overwriting
// stored ones.
func (b *backend) seed(ctx context.Context, values map[string]string) error {
	if len(values) == 0 || b.write == nil {
		return nil
	}
	for k, v := range values {
		if err := b.write(ctx, notifications.SettingsCategory, k, v); err != nil {
			return fmt.Errorf("seed setting %s: %w", k, err)
		}
	}
	return nil
}

func openBackend(ctx context.Context, cfg appConfig, log *slog.Logger, opts ...config.Option) (*backend, error) {
	b := &backend{}
	err := b.openStorage(ctx, cfg, log, opts...)
	if err == nil && cfg.Settings == "redis" {
		err = b.openRedisSettings(ctx, opts...)
	}
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	return b, nil
}

func (b *backend) openStorage(ctx context.Context, cfg appConfig, log *slog.Logger, opts ...config.Option) error {
	switch cfg.Backend {
	case backendMemory, "":
		settings := notifications.NewMemorySettings(nil)
		b.store = notifications.NewMemoryStorage()
		b.settings = settings
		b.write = func(_ context.Context, category, key, value string) error {
			settings.Set(category, key, value)
			return nil
		}

	case backendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.SQLite, log)
		if err != nil {
			return err
		}
		b.onClose(db.Close)
		store := sqlitestore.New(db)
		b.store, b.settings, b.templates, b.directory = store, store, store, store
		b.write = store.SetSetting
		b.probes = append(b.probes, httpserver.Probe{Name: "sqlite", Check: db.PingContext})

	case backendPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg, opts...); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		b.onClose(func() error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, pgstore.Migrations(), pgCfg.MigrationsTable, log); err != nil {
			return err
		}
		store := pgstore.New(pool)
		b.store, b.settings, b.templates, b.directory = store, store, store, store
		b.write = store.SetSetting
		b.probes = append(b.probes, httpserver.Probe{Name: "postgres", Check: pg.Healthcheck(pool)})

	case backendMongo:
		if cfg.Settings != "redis" {
			return fmt.Errorf("%s backend keeps no settings, set SETTINGS_BACKEND=redis", backendMongo)
		}
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg, opts...); err != nil {
			return err
		}
		db, err := mongo.Database(ctx, mongoCfg)
		if err != nil {
			return err
		}
		client := db.Client()
		b.onClose(func() error { return client.Disconnect(context.Background()) })
		store := mongostore.New(db.Collection("notifications"))
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		b.store = store
		b.probes = append(b.probes, httpserver.Probe{Name: "mongo", Check: mongo.Healthcheck(client)})

	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	return nil
}

func (b *backend) openRedisSettings(ctx context.Context, opts ...config.Option) error {
	var redisCfg redis.Config
	if err := config.Load(&redisCfg, opts...); err != nil {
		return err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	b.onClose(client.Close)
	settings := redisstore.NewSettings(client, redisstore.WithKeyPrefix(redisCfg.SettingsPrefix))
	b.settings = settings
	b.write = settings.Set
	b.probes = append(b.probes, httpserver.Probe{Name: "redis", Check: redis.Healthcheck(client)})
	return nil
}

// components are the notification services assembled over a backend.
type components struct {
	gate      *notifications.Gate
	feed      *notifications.LiveFeed
	transport *notifications.EmailTransport
	orch      *notifications.Orchestrator
}

func assemble(b *backend, cfg notifications.Config, log *slog.Logger) (*components, error) {
	locale, err := cfg.Language()
	if err != nil {
		return nil, err
	}
	sealer, err := cfg.Sealer()
	if err != nil {
		return nil, err
	}

	gateOpts := []notifications.GateOption{notifications.WithGateLogger(log)}
	if sealer != nil {
		gateOpts = append(gateOpts, notifications.WithSealer(sealer))
	}

	c := &components{}
	c.gate = notifications.NewGate(b.settings, gateOpts...)
	c.feed = notifications.NewLiveFeed(
		notifications.WithFeedBuffer(cfg.FeedBuffer),
		notifications.WithMaxFeeds(cfg.MaxFeeds),
		notifications.WithFeedLogger(log),
	)
	c.transport = notifications.NewEmailTransport(c.gate,
		notifications.WithTransportLogger(log),
		notifications.WithSendTimeout(cfg.EmailSendTimeout),
	)

	resolver, err := notifications.NewTemplateResolver(b.templates, notifications.WithResolverLogger(log))
	if err != nil {
		return nil, err
	}
	dispatchers := notifications.NewDispatchers(c.gate, resolver, c.transport, b.directory, c.feed)
	cfg.Gateways.Apply(&dispatchers, c.gate, log)

	c.orch, err = notifications.NewOrchestrator(b.store, c.gate, dispatchers, c.transport,
		notifications.WithOrchestratorLogger(log),
		notifications.WithLocale(locale),
	)
	if err != nil {
		return nil, err
	}
	log.Info("notification services assembled",
		logger.Component("notifier"),
		slog.String("locale", locale.String()),
		slog.Bool("sealed_settings", sealer != nil),
	)
	return c, nil
}
