package main

import (
	"github.com/dmitrymomot/cafetal/pkg/httpserver"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/queue"
	"github.com/dmitrymomot/cafetal/pkg/ratelimiter"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	backendMemory   = "memory"
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
	backendMongo    = "mongo"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Service  string `env:"SERVICE_NAME" envDefault:"cafetal-notifier"`
	Backend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
	SQLite   string `env:"SQLITE_DSN" envDefault:"file:cafetal.db?_pragma=busy_timeout(5000)"`
	Settings string `env:"SETTINGS_BACKEND"` // "redis" or empty for the storage backend
	Async    bool   `env:"NOTIFY_ASYNC" envDefault:"true"`
	Limit    bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// Seed is written to the settings store on start, as key:value pairs.
	Seed map[string]string `env:"NOTIFY_SETTINGS_SEED" envSeparator:"," envKeyValSeparator:":"`

	Notifications notifications.Config
	Queue         queue.Config
	HTTP          httpserver.Config
	RateLimit     ratelimiter.Config
}
