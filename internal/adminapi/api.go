// Package adminapi is the HTTP surface of the notifier: enqueueing
// notifications, reading and acknowledging a recipient's notifications, a
// live feed over server-sent events, the email configuration probe and health
// endpoints. Authentication is handled in front of it.
package adminapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/cafetal/pkg/clientip"
	"github.com/dmitrymomot/cafetal/pkg/httpserver"
	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/ratelimiter"
	"github.com/dmitrymomot/cafetal/pkg/requestid"
)

// MaxListLimit caps the page size a client may request.
const MaxListLimit = 200

// API serves the admin routes.
type API struct {
	orch      *notifications.Orchestrator
	async     *notifications.AsyncOrchestrator
	feed      *notifications.LiveFeed
	probes    []httpserver.Probe
	limiter   *ratelimiter.Bucket
	logger    *slog.Logger
	heartbeat time.Duration
}

// Option configures an API.
type Option func(*API)

// WithAsync enqueues POST /v1/notifications instead of delivering inline.
func WithAsync(a *notifications.AsyncOrchestrator) Option {
	return func(api *API) {
		api.async = a
	}
}

// WithLiveFeed enables the event stream endpoint.
func WithLiveFeed(f *notifications.LiveFeed) Option {
	return func(api *API) {
		api.feed = f
	}
}

// WithProbes adds readiness probes.
func WithProbes(probes ...httpserver.Probe) Option {
	return func(api *API) {
		api.probes = append(api.probes, probes...)
	}
}

// WithRateLimit limits notification submissions per client IP.
func WithRateLimit(b *ratelimiter.Bucket) Option {
	return func(api *API) {
		api.limiter = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(api *API) {
		api.logger = l
	}
}

// WithHeartbeat sets the keep-alive comment interval of event streams.
func WithHeartbeat(d time.Duration) Option {
	return func(api *API) {
		if d > 0 {
			api.heartbeat = d
		}
	}
}

// New creates an API over orch.
func New(orch *notifications.Orchestrator, opts ...Option) *API {
	api := &API{
		orch:      orch,
		logger:    slog.Default(),
		heartbeat: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(api)
	}
	api.logger = api.logger.With(logger.Component("adminapi"))
	return api
}

// Routes returns the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware, middleware.Recoverer)

	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.logger, 2*time.Second, a.probes...))

	r.Route("/v1", func(r chi.Router) {
		r.With(a.rateLimit).Post("/notifications", a.wrap(a.createNotification))
		r.Get("/notifications/{id}", a.wrap(a.getNotification))
		r.Post("/email/test", a.wrap(a.testEmail))

		r.Route("/recipients/{recipientID}/notifications", func(r chi.Router) {
			r.Get("/", a.wrap(a.listNotifications))
			r.Get("/unread-count", a.wrap(a.unreadCount))
			r.Get("/stream", a.wrap(a.stream))
			r.Post("/{id}/read", a.wrap(a.markRead))
		})
	})
	return r
}

// HandlerFunc handles a request and returns the response to render.
type HandlerFunc func(r *http.Request) Response

func (a *API) wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		if resp == nil {
			resp = JSON(http.StatusNoContent, nil)
		}
		if err := resp.Render(w, r); err != nil {
			a.logger.LogAttrs(r.Context(), slog.LevelWarn, "render response failed",
				slog.String("path", r.URL.Path),
				logger.Error(err),
			)
		}
	}
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	key := func(r *http.Request) string { return clientip.FromContext(r.Context()) }
	return ratelimiter.Middleware(a.limiter, key, func(w http.ResponseWriter, r *http.Request, _ ratelimiter.Result) {
		a.logger.LogAttrs(r.Context(), slog.LevelWarn, "notification submissions rate limited")
		if err := Error(errRateLimited).Render(w, r); err != nil {
			a.logger.LogAttrs(r.Context(), slog.LevelWarn, "render response failed", logger.Error(err))
		}
	})(next)
}
