// Package worker keeps every feed collection current in the snapshot store.
package worker

import (
	"time"

	"github.com/okian/cocstats/pkg/logger"
)

// Option applies a configuration option to a Collector.
type Option func(*Collector)

// WithName sets the collector name for identification and logging.
func WithName(name string) Option {
	return func(c *Collector) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger for the collector.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackoff bounds the delay between resubscribe attempts.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Collector) {
		if initial > 0 {
			c.minBackoff = initial
		}
		if maxDelay >= c.minBackoff {
			c.maxBackoff = maxDelay
		}
	}
}
