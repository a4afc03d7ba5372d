//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - reactor-backed listening socket.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-page/api"
	"golang.org/x/sys/unix"
)

// Listener owns a bound, listening, non-blocking socket and its reactor registration.
type Listener struct {
	endpoint
	opts  *options
	addr  *net.TCPAddr
	seq   atomic.Uint64
	count atomic.Uint64
}

// Bind creates a listening socket on address and registers it with r.
// Any failure is reported wrapped in api.ErrBindFailed.
func Bind(r api.Reactor, address string, opts ...Option) (*Listener, error) {
	o := newOptions(opts)
	fail := func(err error) (*Listener, error) {
		o.log.Warning().Str(`addr`, address).Err(err).Log(`bind failed`)
		return nil, fmt.Errorf("%w: %s: %w", api.ErrBindFailed, address, err)
	}

	sa, family, err := resolve(address)
	if err != nil {
		return fail(err)
	}
	fd, err := newSocket(family)
	if err != nil {
		return fail(err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fail(fmt.Errorf("so_reuseaddr: %w", err))
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return fail(err)
	}
	if err := unix.Listen(fd, o.backlog); err != nil {
		_ = unix.Close(fd)
		return fail(fmt.Errorf("listen: %w", err))
	}

	l := &Listener{opts: o, addr: localAddr(fd)}
	if err := l.attach(r, fd, o.log); err != nil {
		_ = unix.Close(fd)
		return fail(err)
	}
	o.log.Info().Str(`addr`, l.addr.String()).Int(`fd`, fd).Log(`listening`)
	return l, nil
}

// Accept waits for the next inbound connection. id is the listener-scoped
// sequence number of this call (starting at 1) and is returned with
// failures too. Transient EAGAIN suspends; ECONNABORTED and EINTR retry;
// any other errno is returned as *api.IOFault.
func (l *Listener) Accept(ctx context.Context) (id uint64, conn *Conn, err error) {
	id = l.seq.Add(1)
	if err := l.begin(ctx, "accept"); err != nil {
		return id, nil, err
	}
	defer l.end()

	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			c, err := newConn(l.reactor, nfd, l.opts)
			if err != nil {
				return id, nil, err
			}
			l.count.Add(1)
			l.log.Debug().Uint64(`id`, id).Int(`fd`, nfd).Str(`peer`, c.RemoteAddr().String()).Log(`accepted`)
			return id, c, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case api.IsWouldBlock(err):
			if err := l.suspend(ctx, "accept"); err != nil {
				return id, nil, err
			}
		default:
			return id, nil, api.NewIOFault("accept", err)
		}
	}
}

// Addr returns the bound address, including a kernel-chosen port.
func (l *Listener) Addr() *net.TCPAddr {
	return l.addr
}

// FD returns the raw socket handle.
func (l *Listener) FD() uintptr {
	return uintptr(l.fd)
}

// Accepted returns how many connections Accept has produced.
func (l *Listener) Accepted() uint64 {
	return l.count.Load()
}

// Suspensions returns how many times Accept parked on the reactor.
func (l *Listener) Suspensions() uint64 {
	return l.suspends.Load()
}

// Close deregisters the listener and closes its socket. A parked Accept
// returns api.ErrClosed. Idempotent.
func (l *Listener) Close() error {
	return l.close()
}
