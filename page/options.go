// File: page/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package page

import (
	"github.com/momentics/hioload-page/control"
	"github.com/momentics/hioload-page/internal/logging"
)

// Option customizes Page construction.
type Option func(*Page)

// WithLogger attaches a structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Page) {
		p.log = l
	}
}

// WithCPUPinning pins the n-th spawned thread to the n-th CPU of the
// process affinity set, wrapping around.
func WithCPUPinning(on bool) Option {
	return func(p *Page) {
		p.pinning = on
	}
}

// WithCoreCount overrides the detected core count used by UnusedCoreCount.
func WithCoreCount(n int) Option {
	return func(p *Page) {
		if n > 0 {
			p.cores = n
		}
	}
}

// WithMetrics publishes lifecycle counters into reg.
func WithMetrics(reg *control.MetricsRegistry) Option {
	return func(p *Page) {
		p.metrics = reg
	}
}

// WithConfig applies the page-related fields of cfg.
func WithConfig(cfg *control.Config) Option {
	return func(p *Page) {
		if cfg == nil {
			return
		}
		p.pinning = cfg.CPUPinning
		if cfg.Cores > 0 {
			p.cores = cfg.Cores
		}
	}
}
