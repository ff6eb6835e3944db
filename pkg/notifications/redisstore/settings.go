// Package redisstore serves notification settings from Redis hashes, one
// hash per category. Operators can flip a toggle with a single HSET and the
// next Gate read observes it.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the settings hashes.
const DefaultKeyPrefix = "cafetal:settings:"

// Settings implements notifications.SettingsSource.
type Settings struct {
	client redis.UniversalClient
	prefix string
}

// Option configures Settings.
type Option func(*Settings)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Settings) {
		s.prefix = prefix
	}
}

// NewSettings creates a settings source over client.
func NewSettings(client redis.UniversalClient, opts ...Option) *Settings {
	s := &Settings{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Settings) key(category string) string {
	return s.prefix + category
}

// Lookup reads keys with a single HMGET. Missing fields are absent from the
// result.
func (s *Settings) Lookup(ctx context.Context, category string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.HMGet(ctx, s.key(category), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup settings %s: %w", category, err)
	}
	for i, v := range values {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// Set stores one value.
func (s *Settings) Set(ctx context.Context, category, key, value string) error {
	if err := s.client.HSet(ctx, s.key(category), key, value).Err(); err != nil {
		return fmt.Errorf("set setting %s/%s: %w", category, key, err)
	}
	return nil
}

// Delete removes one value.
func (s *Settings) Delete(ctx context.Context, category, key string) error {
	if err := s.client.HDel(ctx, s.key(category), key).Err(); err != nil {
		return fmt.Errorf("delete setting %s/%s: %w", category, key, err)
	}
	return nil
}
