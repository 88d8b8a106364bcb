package queue

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
)

const (
	defaultCommandBuffer = 1024
	defaultEventBuffer   = 64
)

// Option is a functional option for configuring a TaskQueue
type Option func(*options)

type options struct {
	logger        *slog.Logger
	clock         clockwork.Clock
	metrics       *Metrics
	commandBuffer int
	eventBuffer   int
}

// WithLogger sets the logger for the queue and its scheduler
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for delays. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetrics records queue activity into the given collectors
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCommandBuffer sets the size of the scheduler mailbox
func WithCommandBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.commandBuffer = n
		}
	}
}

// WithEventBuffer sets the per-subscriber buffer of the lifecycle event feed
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}
