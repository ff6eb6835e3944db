package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/requestid"
)

// Attempt describes one delivery try, passed to the WithOnAttempt hook.
type Attempt struct {
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Sender delivers JSON payloads. It is safe for concurrent use.
type Sender struct {
	client    *http.Client
	timeout   time.Duration
	retries   int
	backoff   Backoff
	secret    string
	headers   map[string]string
	breaker   *CircuitBreaker
	onAttempt func(Attempt)
	userAgent string
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds each attempt. Default 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many times a temporary failure is retried. Default 3.
func WithRetries(n int) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithBackoff sets the delay between attempts.
func WithBackoff(b Backoff) Option {
	return func(s *Sender) {
		s.backoff = b
	}
}

// WithSecret signs every request with secret.
func WithSecret(secret string) Option {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithHeader adds a static request header.
func WithHeader(key, value string) Option {
	return func(s *Sender) {
		if key != "" {
			s.headers[key] = value
		}
	}
}

// WithCircuitBreaker guards the endpoint with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(s *Sender) {
		s.breaker = cb
	}
}

// WithOnAttempt registers a hook called after every attempt.
func WithOnAttempt(fn func(Attempt)) Option {
	return func(s *Sender) {
		s.onAttempt = fn
	}
}

// NewSender creates a Sender.
func NewSender(opts ...Option) *Sender {
	s := &Sender{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:   10 * time.Second,
		retries:   3,
		backoff:   Backoff{Initial: time.Second, Max: 30 * time.Second, Jitter: 0.1},
		headers:   make(map[string]string),
		userAgent: "cafetal-webhook/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send marshals data and posts it to endpoint.
func (s *Sender) Send(ctx context.Context, endpoint string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validateURL(endpoint); err != nil {
		return err
	}
	if s.breaker != nil && !s.breaker.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries+1; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.backoff.Interval(attempt-1)); err != nil {
				return err
			}
		}

		status, err := s.post(ctx, endpoint, body, attempt)
		if s.breaker != nil {
			if err == nil {
				s.breaker.RecordSuccess()
			} else {
				s.breaker.RecordFailure()
			}
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if permanent(status) {
			return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, s.retries+1, lastErr)
}

func (s *Sender) post(ctx context.Context, endpoint string, body []byte, attempt int) (status int, err error) {
	start := time.Now()
	defer func() {
		if s.onAttempt != nil {
			s.onAttempt(Attempt{Number: attempt, StatusCode: status, Duration: time.Since(start), Err: err})
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.secret != "" {
		sig, err := Sign(s.secret, body, time.Now())
		if err != nil {
			return 0, err
		}
		sig.apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	msg := strings.Join(strings.Fields(string(snippet)), " ")
	if msg == "" {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, msg)
}

// permanent reports 4xx answers that retrying cannot fix.
func permanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

func validateURL(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
