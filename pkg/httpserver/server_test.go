package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/httpserver"
	"github.com/dmitrymomot/cafetal/pkg/logger"
)

func start(t *testing.T, ctx context.Context, srv *httpserver.Server, h http.Handler) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()
	select {
	case <-srv.Ready():
	case err := <-done:
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not start")
	}
	return done
}

func wait(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "run did not finish")
	}
}

func newServer(opts ...httpserver.Option) *httpserver.Server {
	base := []httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(500 * time.Millisecond),
		httpserver.WithLogger(logger.Discard()),
	}
	return httpserver.New(append(base, opts...)...)
}

func TestRun_ServesUntilCancel(t *testing.T) {
	t.Parallel()
	srv := newServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := start(t, ctx, srv, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	resp, err := http.Get("http://" + srv.Addr().String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	wait(t, done)
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestRun_ManualShutdown(t *testing.T) {
	t.Parallel()
	srv := newServer()
	done := start(t, context.Background(), srv, nil)

	require.NoError(t, srv.Shutdown(context.Background()))
	wait(t, done)
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestRun_ShutdownEndsStreams(t *testing.T) {
	t.Parallel()
	srv := newServer()
	ctx, cancel := context.WithCancel(context.Background())

	streaming := make(chan struct{})
	done := start(t, ctx, srv, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(streaming)
		<-r.Context().Done()
	}))

	resp, err := http.Get("http://" + srv.Addr().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	<-streaming

	began := time.Now()
	cancel()
	wait(t, done)
	assert.Less(t, time.Since(began), 500*time.Millisecond)
}

func TestRun_StartErrors(t *testing.T) {
	t.Parallel()

	err := newServer(httpserver.WithAddr(":invalid")).Run(context.Background(), nil)
	require.ErrorIs(t, err, httpserver.ErrStart)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	err = newServer(httpserver.WithAddr(ln.Addr().String())).Run(context.Background(), nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func TestRun_AlreadyRunning(t *testing.T) {
	t.Parallel()
	srv := newServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := start(t, ctx, srv, nil)

	err := srv.Run(ctx, nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
	require.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

	cancel()
	wait(t, done)
}

func TestShutdown_NotStarted(t *testing.T) {
	t.Parallel()
	require.NoError(t, newServer().Shutdown(context.Background()))
	assert.Nil(t, newServer().Addr())
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"empty addr", func() { httpserver.WithAddr("") }},
		{"read timeout", func() { httpserver.WithReadTimeout(0) }},
		{"write timeout", func() { httpserver.WithWriteTimeout(-time.Second) }},
		{"idle timeout", func() { httpserver.WithIdleTimeout(0) }},
		{"shutdown timeout", func() { httpserver.WithShutdownTimeout(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, httpserver.WithLogger(logger.Discard()))
	ctx, cancel := context.WithCancel(context.Background())
	done := start(t, ctx, srv, nil)
	assert.NotNil(t, srv.Addr())
	cancel()
	wait(t, done)
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	ok := httpserver.Probe{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := httpserver.Probe{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}
	slow := httpserver.Probe{Name: "mongo", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	tests := []struct {
		name    string
		handler http.Handler
		code    int
		status  string
		checks  map[string]string
	}{
		{"liveness", httpserver.LivenessHandler(), http.StatusOK, "alive", nil},
		{"ready", httpserver.ReadinessHandler(nil, time.Second, ok), http.StatusOK, "ready", map[string]string{"postgres": "ok"}},
		{
			"not ready",
			httpserver.ReadinessHandler(logger.Discard(), time.Second, ok, down),
			http.StatusServiceUnavailable, "not_ready",
			map[string]string{"postgres": "ok", "redis": "connection refused"},
		},
		{
			"probe timeout",
			httpserver.ReadinessHandler(logger.Discard(), 10*time.Millisecond, slow),
			http.StatusServiceUnavailable, "not_ready",
			map[string]string{"mongo": context.DeadlineExceeded.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.checks, body.Checks)
		})
	}
}
