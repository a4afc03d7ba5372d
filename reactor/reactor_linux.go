//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/internal/logging"
	"golang.org/x/sys/unix"
)

// Reactor is an edge-triggered epoll poller with one waker slot per fd.
// A poll goroutine runs from New until Close.
type Reactor struct {
	epfd   int
	wakefd int // eventfd used to interrupt EpollWait on Close
	log    *logging.Logger

	mu  sync.Mutex
	fds map[int]*registration

	maxEvents int
	batch     *queue.Queue // wakers collected per poll round, poll goroutine only
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	arms    atomic.Uint64
	wakes   atomic.Uint64
	latched atomic.Uint64
}

// registration is the per-fd waker slot plus a readiness latch. An edge
// that arrives while the slot is empty sets ready, and the next Register
// consumes it instead of parking, so no edge is lost between a failed
// syscall and the arming of its waker.
type registration struct {
	mu    sync.Mutex
	waker api.Waker
	ready bool
	dead  bool
}

// New creates the epoll instance and starts the poll goroutine.
func New(opts ...Option) (*Reactor, error) {
	cfg := newConfig(opts)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}

	r := &Reactor{
		epfd:      epfd,
		wakefd:    wakefd,
		log:       cfg.log,
		fds:       make(map[int]*registration),
		maxEvents: cfg.maxEvents,
		batch:     queue.New(),
		done:      make(chan struct{}),
	}
	go r.loop()
	r.log.Debug().Int(`epfd`, epfd).Log(`reactor started`)
	return r, nil
}

// Register attaches fd on first use (read, write and hangup interest,
// edge-triggered) and arms its slot with w, replacing any previous waker.
// If readiness was latched while the slot was empty, w runs immediately
// on the calling goroutine.
func (r *Reactor) Register(fd uintptr, w api.Waker) error {
	if r.closed.Load() {
		return api.ErrClosed
	}
	key := int(fd)

	r.mu.Lock()
	reg, ok := r.fds[key]
	if !ok {
		ev := unix.EpollEvent{
			Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
			Fd:     int32(key),
		}
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, key, &ev); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("epoll ctl add: %w", err)
		}
		reg = &registration{}
		r.fds[key] = reg
	}
	r.mu.Unlock()

	if w == nil {
		return nil
	}
	r.arms.Add(1)
	if reg.arm(w) {
		r.wakes.Add(1)
		w()
	}
	return nil
}

// Deregister detaches fd. Any pending waker is dropped without being called.
func (r *Reactor) Deregister(fd uintptr) error {
	key := int(fd)

	r.mu.Lock()
	reg, ok := r.fds[key]
	if ok {
		delete(r.fds, key)
	}
	r.mu.Unlock()
	if !ok {
		return api.ErrNotRegistered
	}
	reg.kill()

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, key, nil); err != nil && !errors.Is(err, unix.EBADF) && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Stats returns current counters.
func (r *Reactor) Stats() Stats {
	r.mu.Lock()
	n := len(r.fds)
	r.mu.Unlock()
	return Stats{
		Registered: n,
		Arms:       r.arms.Load(),
		Wakes:      r.wakes.Load(),
		Latched:    r.latched.Load(),
	}
}

// Close stops the poll goroutine and releases the epoll instance. Pending
// wakers are dropped. Safe to call more than once.
func (r *Reactor) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		var one [8]byte
		binary.NativeEndian.PutUint64(one[:], 1)
		if _, werr := unix.Write(r.wakefd, one[:]); werr != nil && !errors.Is(werr, unix.EAGAIN) {
			err = fmt.Errorf("eventfd write: %w", werr)
			return
		}
		<-r.done

		r.mu.Lock()
		for fd, reg := range r.fds {
			reg.kill()
			delete(r.fds, fd)
		}
		r.mu.Unlock()

		err = errors.Join(unix.Close(r.wakefd), unix.Close(r.epfd))
		r.log.Debug().Log(`reactor closed`)
	})
	return err
}

// Shutdown implements api.GracefulShutdown.
func (r *Reactor) Shutdown() error {
	return r.Close()
}

func (r *Reactor) loop() {
	defer close(r.done)
	events := make([]unix.EpollEvent, r.maxEvents)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			r.log.Err().Err(err).Log(`epoll wait failed, reactor stopping`)
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == r.wakefd {
				r.drainWake()
				continue
			}
			r.mu.Lock()
			reg := r.fds[fd]
			r.mu.Unlock()
			if reg == nil {
				continue
			}
			if w := reg.fire(); w != nil {
				r.batch.Add(w)
			} else {
				r.latched.Add(1)
			}
		}
		r.dispatch()
		if r.closed.Load() {
			return
		}
	}
}

// dispatch invokes the wakers collected in this round outside every lock.
func (r *Reactor) dispatch() {
	for r.batch.Length() > 0 {
		w := r.batch.Remove().(api.Waker)
		r.wakes.Add(1)
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Err().Any(`panic`, p).Log(`waker panicked`)
				}
			}()
			w()
		}()
	}
}

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// arm stores w, or reports true when a latched edge must be delivered now.
func (g *registration) arm(w api.Waker) (fireNow bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead {
		return false
	}
	if g.ready {
		g.ready = false
		g.waker = nil
		return true
	}
	g.waker = w
	return false
}

// fire consumes the slot, latching readiness when it is empty.
func (g *registration) fire() api.Waker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead {
		return nil
	}
	w := g.waker
	g.waker = nil
	if w == nil {
		g.ready = true
	}
	return w
}

func (g *registration) kill() {
	g.mu.Lock()
	g.dead = true
	g.waker = nil
	g.ready = false
	g.mu.Unlock()
}
