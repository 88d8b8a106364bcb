package queue

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

// Backoff strategy names accepted by Config.Backoff.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Config holds the configuration for the task queue
type Config struct {
	Capacity        int           `env:"QUEUE_CAPACITY" envDefault:"1024"`
	CommandBuffer   int           `env:"QUEUE_COMMAND_BUFFER" envDefault:"1024"`
	Workers         int           `env:"QUEUE_WORKERS" envDefault:"4"`
	TaskTimeout     time.Duration `env:"QUEUE_TASK_TIMEOUT" envDefault:"5m"`
	MaxRetries      int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	Backoff         string        `env:"QUEUE_BACKOFF" envDefault:"exponential"`
	BackoffBase     time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"1s"`
	BackoffFactor   uint32        `env:"QUEUE_BACKOFF_FACTOR" envDefault:"2"`
	BackoffMaxDelay time.Duration `env:"QUEUE_BACKOFF_MAX_DELAY" envDefault:"1m"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse queue config: %w", err)
	}
	return cfg, nil
}

// RetryPolicy builds the policy producers attach to new tasks.
func (c Config) RetryPolicy() (task.RetryPolicy, error) {
	var strategy task.BackoffStrategy
	switch c.Backoff {
	case BackoffFixed:
		strategy = task.Fixed{Delay: c.BackoffBase}
	case BackoffExponential, "":
		strategy = task.Exponential{
			Base:     c.BackoffBase,
			Factor:   c.BackoffFactor,
			MaxDelay: c.BackoffMaxDelay,
		}
	default:
		return task.RetryPolicy{}, fmt.Errorf("%w: %q", ErrUnknownBackoff, c.Backoff)
	}

	p := task.RetryPolicy{MaxRetries: c.MaxRetries, Strategy: strategy}
	if err := p.Validate(); err != nil {
		return task.RetryPolicy{}, err
	}
	return p, nil
}

// NewFromConfig creates a TaskQueue from the provided Config.
// Only non-zero values from the config are applied.
func NewFromConfig(cfg Config, opts ...Option) (*TaskQueue, error) {
	configOpts := make([]Option, 0, len(opts)+1)
	if cfg.CommandBuffer > 0 {
		configOpts = append(configOpts, WithCommandBuffer(cfg.CommandBuffer))
	}
	configOpts = append(configOpts, opts...)

	return New(cfg.Capacity, configOpts...)
}
