// Package httpserver runs an http.Handler with context-bound graceful
// shutdown and provides liveness and readiness handlers.
//
// Run binds the listener first, so a bad address fails synchronously with
// ErrStart, then serves until ctx is cancelled. Request contexts are
// cancelled as soon as shutdown begins, which lets streaming handlers return
// instead of holding the drain open until the shutdown timeout.
//
// # Usage
//
//	r := chi.NewRouter()
//	r.Get("/livez", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Probe{Name: "postgres", Check: pg.Healthcheck(pool)},
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, r) })
//
// # Errors
//
// Run wraps listen and serve errors with ErrStart; Shutdown wraps drain
// errors with ErrShutdown.
package httpserver
