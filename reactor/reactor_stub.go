//go:build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/hioload-page/api"

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns api.ErrNotSupported on platforms without epoll.
func New(opts ...Option) (*Reactor, error) {
	return nil, api.ErrNotSupported
}

// Register always fails with api.ErrNotSupported.
func (r *Reactor) Register(fd uintptr, w api.Waker) error { return api.ErrNotSupported }

// Deregister always fails with api.ErrNotSupported.
func (r *Reactor) Deregister(fd uintptr) error { return api.ErrNotSupported }

// Stats returns zero counters.
func (r *Reactor) Stats() Stats { return Stats{} }

// Close is a no-op.
func (r *Reactor) Close() error { return nil }

// Shutdown is a no-op.
func (r *Reactor) Shutdown() error { return nil }
