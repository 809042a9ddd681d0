package state

import (
	"log/slog"

	"github.com/roach88/jsonapistore/internal/inflect"
)

// Option configures a Normalizer or Accessor.
type Option func(*config)

type config struct {
	inflector inflect.Inflector
	logger    *slog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		inflector: inflect.Default(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithInflector sets the pluralization rules used to derive type keys.
func WithInflector(i inflect.Inflector) Option {
	return func(c *config) {
		if i != nil {
			c.inflector = i
		}
	}
}

// WithLogger sets the logger. Operations log at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
