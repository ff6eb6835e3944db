// Package config loads process configuration from environment variables,
// optionally seeded from dotenv files.
//
// Each package owns a Config struct with env tags (pg.Config, redis.Config,
// queue.Config, notifications.Config, ...) and the binary composes them:
//
//	var cfg struct {
//		PG    pg.Config
//		Queue queue.Config
//	}
//	config.MustLoad(&cfg, config.WithEnvFiles(".env"))
//
// Runtime settings that operators toggle while the service runs (channel
// switches, SMTP credentials) are not process configuration; they are read
// through notifications.Gate instead.
package config
