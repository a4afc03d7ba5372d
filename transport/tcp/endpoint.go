//go:build linux

// File: transport/tcp/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared fd ownership, single in-flight operation, and reactor suspension.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/internal/concurrency"
	"github.com/momentics/hioload-page/internal/logging"
	"golang.org/x/sys/unix"
)

// endpoint owns a non-blocking fd and its reactor registration.
type endpoint struct {
	fd      int
	reactor api.Reactor
	log     *logging.Logger

	mu       sync.Mutex
	busy     bool
	closed   bool
	fdClosed bool
	closing  chan struct{}

	suspends atomic.Uint64
}

// attach registers fd with the reactor without arming it.
func (e *endpoint) attach(r api.Reactor, fd int, log *logging.Logger) error {
	e.fd = fd
	e.reactor = r
	e.log = log
	e.closing = make(chan struct{})
	return r.Register(uintptr(fd), nil)
}

// begin claims the endpoint for one operation.
func (e *endpoint) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, api.ErrCancelled, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("%s: %w", op, api.ErrClosed)
	}
	if e.busy {
		return fmt.Errorf("%s: %w", op, api.ErrOperationInProgress)
	}
	e.busy = true
	return nil
}

// end releases the endpoint, closing the fd if Close ran meanwhile.
func (e *endpoint) end() {
	e.mu.Lock()
	e.busy = false
	if e.closed {
		e.closeFDLocked()
	}
	e.mu.Unlock()
}

// suspend arms one waker and parks until it fires, ctx is done, or the
// endpoint closes. Registration happens under mu so a concurrent close
// either precedes it (ErrClosed) or deregisters after it.
func (e *endpoint) suspend(ctx context.Context, op string) error {
	woke, wake := concurrency.Signal()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("%s: %w", op, api.ErrClosed)
	}
	e.suspends.Add(1)
	err := e.reactor.Register(uintptr(e.fd), wake)
	e.mu.Unlock()
	if err != nil {
		return api.NewIOFault(op, err)
	}
	e.log.Trace().Int(`fd`, e.fd).Str(`op`, op).Log(`suspended`)
	select {
	case <-woke:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w: %w", op, api.ErrCancelled, ctx.Err())
	case <-e.closing:
		return fmt.Errorf("%s: %w", op, api.ErrClosed)
	}
}

// withFD runs fn on the fd while holding mu, so Close cannot release the
// descriptor number underneath it.
func (e *endpoint) withFD(fn func(fd int) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrClosed
	}
	return fn(e.fd)
}

// close deregisters exactly once and releases the fd, deferring the
// release while an operation is still inside a syscall.
func (e *endpoint) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.closing)

	var err error
	if derr := e.reactor.Deregister(uintptr(e.fd)); derr != nil && !errors.Is(derr, api.ErrNotRegistered) {
		err = derr
	}
	if !e.busy {
		err = errors.Join(err, e.closeFDLocked())
	}
	return err
}

func (e *endpoint) closeFDLocked() error {
	if e.fdClosed {
		return nil
	}
	e.fdClosed = true
	return unix.Close(e.fd)
}
