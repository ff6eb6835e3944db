// Command notifier runs the notification service: the admin HTTP API, the
// delivery worker pool and the live feed, over the configured storage backend.
package main

import (
	"cmp"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/cafetal/internal/adminapi"
	"github.com/dmitrymomot/cafetal/pkg/clientip"
	"github.com/dmitrymomot/cafetal/pkg/config"
	"github.com/dmitrymomot/cafetal/pkg/httpserver"
	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/queue"
	"github.com/dmitrymomot/cafetal/pkg/ratelimiter"
	"github.com/dmitrymomot/cafetal/pkg/requestid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifier stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	loadOpts := []config.Option{config.WithEnvFiles(cmp.Or(os.Getenv("ENV_FILE"), ".env"))}

	var cfg appConfig
	if err := config.Load(&cfg, loadOpts...); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	b, err := openBackend(ctx, cfg, log, loadOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("closing storage failed", logger.Error(err))
		}
	}()

	if err := b.seed(ctx, cfg.Seed); err != nil {
		return err
	}

	c, err := assemble(b, cfg.Notifications, log)
	if err != nil {
		return err
	}
	defer c.feed.Close()

	// Sending retries initialization.
	if err := c.transport.Initialize(ctx); err != nil {
		log.Warn("email transport not ready", logger.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	apiOpts := []adminapi.Option{
		adminapi.WithLogger(log),
		adminapi.WithLiveFeed(c.feed),
		adminapi.WithProbes(b.probes...),
	}
	if cfg.Limit {
		store := ratelimiter.NewMemoryStore()
		defer store.Close()
		bucket, err := ratelimiter.NewBucket(store, cfg.RateLimit)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, adminapi.WithRateLimit(bucket))
	}
	if cfg.Async {
		pool := queue.NewPool(append(cfg.Queue.Options(), queue.WithPoolLogger(log))...)
		async := notifications.NewAsyncOrchestrator(c.orch, pool, notifications.WithAsyncLogger(log))
		apiOpts = append(apiOpts, adminapi.WithAsync(async))

		g.Go(func() error {
			if err := async.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Queue.ShutdownTimeout)
			defer cancel()
			return async.Stop(stopCtx)
		})
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	api := adminapi.New(c.orch, apiOpts...)
	g.Go(func() error {
		return srv.Run(gctx, api.Routes())
	})

	log.Info("notifier started",
		slog.String("backend", cmp.Or(cfg.Backend, backendMemory)),
		slog.Bool("async", cfg.Async),
	)
	return g.Wait()
}
