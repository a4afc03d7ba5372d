//go:build linux

// File: transport/tcp/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options shared by listeners and connections.

package tcp

import (
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/internal/logging"
	"github.com/momentics/hioload-page/pool"
	"golang.org/x/sys/unix"
)

// Option customizes endpoint construction.
type Option func(*options)

type options struct {
	log     *logging.Logger
	noDelay bool
	backlog int
	chunks  api.ChunkPool
}

// WithLogger attaches a structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithNoDelay disables Nagle's algorithm on connections. With it enabled,
// Flush has nothing to push.
func WithNoDelay(on bool) Option {
	return func(o *options) {
		o.noDelay = on
	}
}

// WithBacklog overrides the listen backlog (default SOMAXCONN).
func WithBacklog(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.backlog = n
		}
	}
}

// WithChunkPool sets the pool Recv reads through; its Size is the chunk size.
func WithChunkPool(p api.ChunkPool) Option {
	return func(o *options) {
		if p != nil {
			o.chunks = p
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		backlog: unix.SOMAXCONN,
		chunks:  pool.Chunks(),
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}
