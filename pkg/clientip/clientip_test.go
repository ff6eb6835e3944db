package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/cafetal/pkg/clientip"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "203.0.113.7:5123", "203.0.113.7"},
		{"remote without port", nil, "203.0.113.7", "203.0.113.7"},
		{"cloudflare first", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", "198.51.100.1"},
		{"first valid forwarded", map[string]string{"X-Forwarded-For": "garbage, 198.51.100.3, 10.0.0.2"}, "10.0.0.1:80", "198.51.100.3"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1:80", "198.51.100.4"},
		{"invalid headers fall back", map[string]string{"X-Real-IP": "nope"}, "10.0.0.1:80", "10.0.0.1"},
		{"ipv6 normalized", map[string]string{"X-Real-IP": "2001:DB8::0001"}, "", "2001:db8::1"},
		{"nothing valid", nil, "not-an-ip", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		for k, v := range tt.headers {
			r.Header.Set(k, v)
		}
		assert.Equal(t, tt.want, clientip.FromRequest(r), tt.name)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = clientip.FromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "198.51.100.9", got)

	attr, ok := clientip.LoggerExtractor()(clientip.WithContext(context.Background(), got))
	assert.True(t, ok)
	assert.Equal(t, "198.51.100.9", attr.Value.String())

	_, ok = clientip.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
