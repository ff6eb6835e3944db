package queue

import "time"

// Config holds the worker pool settings.
type Config struct {
	Workers         int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	QueueSize       int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	JobTimeout      time.Duration `env:"NOTIFY_JOB_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"NOTIFY_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Options converts the config into pool options, skipping zero values.
func (c Config) Options() []PoolOption {
	return []PoolOption{
		WithWorkers(c.Workers),
		WithQueueSize(c.QueueSize),
		WithJobTimeout(c.JobTimeout),
	}
}
