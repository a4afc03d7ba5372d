// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor options and statistics.

package reactor

import (
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/internal/logging"
)

// DefaultMaxEvents bounds how many readiness events one poll returns.
const DefaultMaxEvents = 128

var (
	_ api.Reactor          = (*Reactor)(nil)
	_ api.GracefulShutdown = (*Reactor)(nil)
)

// Stats is a point-in-time view of reactor activity.
type Stats struct {
	Registered int    // handles currently attached
	Arms       uint64 // Register calls carrying a waker
	Wakes      uint64 // wakers invoked (from poll or latched readiness)
	Latched    uint64 // readiness edges that found an empty slot
}

// Option customizes reactor construction.
type Option func(*config)

type config struct {
	log       *logging.Logger
	maxEvents int
}

// WithLogger attaches a structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithMaxEvents overrides DefaultMaxEvents.
func WithMaxEvents(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEvents = n
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{maxEvents: DefaultMaxEvents}
	for _, o := range opts {
		o(c)
	}
	return c
}
