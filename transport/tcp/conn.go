//go:build linux

// File: transport/tcp/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor-backed connected socket with suspending send, flush and receive.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-page/api"
	"golang.org/x/sys/unix"
)

// ConnStats counts syscall-level activity on one connection.
type ConnStats struct {
	Reads       uint64 // read syscalls that returned data or EOF
	DataReads   uint64 // reads that returned at least one byte
	Writes      uint64 // write syscalls that accepted bytes
	WouldBlocks uint64 // syscalls that returned EAGAIN
	Suspends    uint64 // reactor registrations, one per park
	BytesIn     uint64
	BytesOut    uint64
}

// Conn owns a connected, non-blocking socket and its reactor registration.
type Conn struct {
	endpoint
	chunks     api.ChunkPool
	noDelay    bool
	local      *net.TCPAddr
	remote     *net.TCPAddr
	peerClosed atomic.Bool

	reads       atomic.Uint64
	dataReads   atomic.Uint64
	writes      atomic.Uint64
	wouldBlocks atomic.Uint64
	bytesIn     atomic.Uint64
	bytesOut    atomic.Uint64
}

// newConn wraps an already connected (or connecting) fd. On failure fd is closed.
func newConn(r api.Reactor, fd int, o *options) (*Conn, error) {
	c := &Conn{chunks: o.chunks, noDelay: o.noDelay}
	if o.noDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			_ = unix.Close(fd)
			return nil, api.NewIOFault("setsockopt", err)
		}
	}
	if err := c.attach(r, fd, o.log); err != nil {
		_ = unix.Close(fd)
		return nil, api.NewIOFault("register", err)
	}
	c.local = localAddr(fd)
	c.remote = remoteAddr(fd)
	return c, nil
}

// Connect opens a client connection to address, suspending while the
// handshake is in progress. Failures are wrapped in api.ErrConnectFailed,
// except cancellation which is reported as api.ErrCancelled.
func Connect(ctx context.Context, r api.Reactor, address string, opts ...Option) (*Conn, error) {
	o := newOptions(opts)
	fail := func(err error) (*Conn, error) {
		o.log.Warning().Str(`addr`, address).Err(err).Log(`connect failed`)
		return nil, fmt.Errorf("%w: %s: %w", api.ErrConnectFailed, address, err)
	}

	sa, family, err := resolve(address)
	if err != nil {
		return fail(err)
	}
	fd, err := newSocket(family)
	if err != nil {
		return fail(err)
	}
	c, err := newConn(r, fd, o)
	if err != nil {
		return fail(err)
	}
	if err := c.begin(ctx, "connect"); err != nil {
		_ = c.Close()
		return nil, err
	}

	err = unix.Connect(fd, sa)
	for errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.EALREADY) {
		if serr := c.suspend(ctx, "connect"); serr != nil {
			c.end()
			_ = c.Close()
			if errors.Is(serr, api.ErrCancelled) {
				return nil, serr
			}
			return fail(serr)
		}
		err = pendingConnectError(fd)
	}
	c.end()
	if err != nil {
		_ = c.Close()
		return fail(err)
	}

	c.local = localAddr(fd)
	c.remote = remoteAddr(fd)
	o.log.Debug().Int(`fd`, fd).Str(`peer`, c.remote.String()).Log(`connected`)
	return c, nil
}

// pendingConnectError inspects a socket after a readiness edge during a
// non-blocking connect. EINPROGRESS means keep waiting.
func pendingConnectError(fd int) error {
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	if _, err := unix.Getpeername(fd); err != nil {
		if errors.Is(err, unix.ENOTCONN) {
			return unix.EINPROGRESS
		}
		return err
	}
	return nil
}

// Send writes all of data, suspending whenever the kernel send buffer is
// full. With flush set it then pushes any segment Nagle is holding back.
func (c *Conn) Send(ctx context.Context, flush bool, data []byte) error {
	if err := c.begin(ctx, "send"); err != nil {
		return err
	}
	defer c.end()

	for len(data) > 0 {
		n, err := unix.SendmsgN(c.fd, data, nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case err == nil:
			c.writes.Add(1)
			c.bytesOut.Add(uint64(n))
			data = data[n:]
		case errors.Is(err, unix.EINTR):
			continue
		case api.IsWouldBlock(err):
			c.wouldBlocks.Add(1)
			if err := c.suspend(ctx, "send"); err != nil {
				return err
			}
		default:
			return api.NewIOFault("send", err)
		}
	}
	if flush {
		return c.flush()
	}
	return nil
}

// Flush pushes any partially filled segment onto the wire. It never
// suspends: the kernel accepts the push request immediately.
func (c *Conn) Flush(ctx context.Context) error {
	if err := c.begin(ctx, "flush"); err != nil {
		return err
	}
	defer c.end()
	return c.flush()
}

// flush toggles TCP_NODELAY, which makes Linux transmit pending data at
// once, then restores Nagle.
func (c *Conn) flush() error {
	if c.noDelay {
		return nil
	}
	if err := unix.SetsockoptInt(c.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return api.NewIOFault("flush", err)
	}
	if err := unix.SetsockoptInt(c.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 0); err != nil {
		return api.NewIOFault("flush", err)
	}
	return nil
}

// Recv appends available bytes to buf. It reads in chunks of the pool's
// size and returns after the first read that yields less than a full
// chunk. Data that is an exact multiple of the chunk size takes one more
// read, which finds nothing (EAGAIN) or the peer's FIN, to complete. Recv
// suspends only while it has appended nothing. A zero-byte read means the
// peer closed: Recv returns nil if it appended anything, io.EOF otherwise.
func (c *Conn) Recv(ctx context.Context, buf *[]byte) error {
	if buf == nil {
		return fmt.Errorf("recv: %w: nil buffer", api.ErrInvalidArgument)
	}
	if err := c.begin(ctx, "recv"); err != nil {
		return err
	}
	defer c.end()

	chunk := c.chunks.GetBuffer()
	defer c.chunks.PutBuffer(chunk)
	size := len(*chunk)

	appended := 0
	for {
		n, err := unix.Read(c.fd, *chunk)
		switch {
		case err == nil:
			c.reads.Add(1)
			if n == 0 {
				c.peerClosed.Store(true)
				if appended == 0 {
					return io.EOF
				}
				return nil
			}
			c.dataReads.Add(1)
			c.bytesIn.Add(uint64(n))
			*buf = append(*buf, (*chunk)[:n]...)
			appended += n
			if n < size {
				return nil
			}
		case errors.Is(err, unix.EINTR):
			continue
		case api.IsWouldBlock(err):
			c.wouldBlocks.Add(1)
			if appended > 0 {
				return nil
			}
			if err := c.suspend(ctx, "recv"); err != nil {
				return err
			}
		default:
			return api.NewIOFault("recv", err)
		}
	}
}

// Buffered returns how many bytes are waiting in the kernel receive queue.
func (c *Conn) Buffered() (int, error) {
	var n int
	err := c.withFD(func(fd int) error {
		var err error
		if n, err = unix.IoctlGetInt(fd, unix.SIOCINQ); err != nil {
			return api.NewIOFault("siocinq", err)
		}
		return nil
	})
	return n, err
}

// PeerClosed reports whether a read has observed the peer's FIN.
func (c *Conn) PeerClosed() bool {
	return c.peerClosed.Load()
}

// Stats returns a snapshot of the connection counters.
func (c *Conn) Stats() ConnStats {
	return ConnStats{
		Reads:       c.reads.Load(),
		DataReads:   c.dataReads.Load(),
		Writes:      c.writes.Load(),
		WouldBlocks: c.wouldBlocks.Load(),
		Suspends:    c.suspends.Load(),
		BytesIn:     c.bytesIn.Load(),
		BytesOut:    c.bytesOut.Load(),
	}
}

// LocalAddr returns the local socket address.
func (c *Conn) LocalAddr() *net.TCPAddr { return c.local }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() *net.TCPAddr { return c.remote }

// FD returns the raw socket handle.
func (c *Conn) FD() uintptr { return uintptr(c.fd) }

// CloseWrite shuts down the sending side, delivering EOF to the peer.
func (c *Conn) CloseWrite() error {
	return c.withFD(func(fd int) error {
		if err := unix.Shutdown(fd, unix.SHUT_WR); err != nil {
			return api.NewIOFault("shutdown", err)
		}
		return nil
	})
}

// Close deregisters the connection and closes its socket. A parked
// operation returns api.ErrClosed. Idempotent.
func (c *Conn) Close() error {
	return c.close()
}
