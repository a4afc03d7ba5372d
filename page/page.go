// File: page/page.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Page: spawn Tasks on dedicated threads, stop all when the first finishes.

package page

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/control"
	"github.com/momentics/hioload-page/internal/concurrency"
	"github.com/momentics/hioload-page/internal/logging"
)

// Task is one independent unit of work. It must return once ctx is done.
type Task func(ctx context.Context) error

// TaskFactory builds a Task on the thread that will run it.
type TaskFactory func() Task

// Page owns the shared running flag, the primary joiner slot and one
// worker per spawned Task.
type Page struct {
	id      uuid.UUID
	log     *logging.Logger
	metrics *control.MetricsRegistry
	pinning bool
	cores   int

	// running is only ever stored, never compare-and-swapped: every party
	// that stops the page writes false and the last write is harmless.
	running atomic.Bool
	primary concurrency.Slot

	mu       sync.Mutex
	joined   bool
	workers  []*worker
	errs     []error
	joinOnce sync.Once
}

type worker struct {
	index   int
	slot    concurrency.Slot // holds the task's cancel until someone consumes it
	done    chan struct{}
	state   atomic.Int32
	outcome atomic.Int32
}

func (w *worker) setState(s TaskState) { w.state.Store(int32(s)) }

// New creates a running Page with no tasks.
func New(opts ...Option) *Page {
	p := &Page{
		id:    uuid.New(),
		cores: concurrency.NumCPUs(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.running.Store(true)
	p.log.Debug().Str(`page`, p.id.String()).Int(`cores`, p.cores).Bool(`pinning`, p.pinning).Log(`page created`)
	return p
}

// ID returns the page identifier used in logs and probes.
func (p *Page) ID() uuid.UUID { return p.id }

// Running reports whether no party has stopped the page yet.
func (p *Page) Running() bool { return p.running.Load() }

// Spawn starts factory's Task on a new OS thread and returns p for chaining.
// After Join has begun no thread is started and api.ErrPageJoined is
// recorded in Err.
func (p *Page) Spawn(factory TaskFactory) *Page {
	p.mu.Lock()
	if p.joined || factory == nil {
		err := fmt.Errorf("spawn: %w", api.ErrPageJoined)
		if factory == nil {
			err = fmt.Errorf("spawn: %w: nil task factory", api.ErrInvalidArgument)
		}
		p.errs = append(p.errs, err)
		p.mu.Unlock()
		p.log.Warning().Str(`page`, p.id.String()).Err(err).Log(`spawn rejected`)
		return p
	}
	w := &worker{index: len(p.workers), done: make(chan struct{})}
	w.setState(StateSpawned)
	w.outcome.Store(int32(StateSpawned))
	ctx, cancel := context.WithCancel(context.Background())
	w.slot.Store(api.Waker(cancel))
	p.workers = append(p.workers, w)
	p.mu.Unlock()

	p.metrics.Add(control.MetricTasksSpawned, 1)
	go p.run(ctx, cancel, w, factory)
	return p
}

// run is the body of one worker thread.
func (p *Page) run(ctx context.Context, cancel context.CancelFunc, w *worker, factory TaskFactory) {
	defer close(w.done)
	defer cancel()

	pin := -1
	if p.pinning {
		pin = w.index
	}
	release, err := concurrency.PinCurrentThread(pin)
	defer release()
	if err != nil {
		p.log.Warning().Str(`page`, p.id.String()).Int(`task`, w.index).Err(err).Log(`cpu pinning failed`)
	}

	if !p.running.Load() {
		w.slot.Take()
		p.finish(w, StateExternalShutdown, nil)
		return
	}

	w.setState(StateRunning)
	p.log.Debug().Str(`page`, p.id.String()).Int(`task`, w.index).Log(`task started`)
	err = execute(ctx, factory)

	// Whoever empties the task slot first decides the outcome: the task
	// itself (natural completion) or the joiner cancelling it.
	if w.slot.Take() != nil {
		p.finish(w, StateNaturalCompletion, err)
		p.running.Store(false)
		if p.primary.Wake() {
			p.metrics.Add(control.MetricWakesDelivered, 1)
		}
		return
	}
	p.finish(w, StateExternalShutdown, err)
}

// execute builds and runs the task, converting a panic into an error.
func execute(ctx context.Context, factory TaskFactory) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	task := factory()
	if task == nil {
		return fmt.Errorf("%w: factory returned nil task", api.ErrInvalidArgument)
	}
	return task(ctx)
}

func (p *Page) finish(w *worker, outcome TaskState, err error) {
	w.outcome.Store(int32(outcome))
	w.setState(outcome)
	switch outcome {
	case StateNaturalCompletion:
		p.metrics.Add(control.MetricNaturalCompletions, 1)
	case StateExternalShutdown:
		p.metrics.Add(control.MetricExternalShutdowns, 1)
	}
	if err != nil && !isCancellation(err) {
		p.metrics.Add(control.MetricTaskErrors, 1)
		p.mu.Lock()
		p.errs = append(p.errs, fmt.Errorf("task %d: %w", w.index, err))
		p.mu.Unlock()
		p.log.Err().Str(`page`, p.id.String()).Int(`task`, w.index).Err(err).Log(`task failed`)
	}
	p.log.Info().Str(`page`, p.id.String()).Int(`task`, w.index).Str(`state`, outcome.String()).Log(`task finished`)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, api.ErrCancelled)
}

// Stop clears the running flag from outside any task and wakes the joiner.
func (p *Page) Stop() {
	p.running.Store(false)
	if p.primary.Wake() {
		p.metrics.Add(control.MetricWakesDelivered, 1)
	}
}

// Join parks until the page stops, cancels every task still running, and
// waits for all threads to exit. Calls after the first return once it has
// finished. A page with no tasks is stopped and returns at once.
func (p *Page) Join() {
	p.joinOnce.Do(p.join)
}

func (p *Page) join() {
	p.mu.Lock()
	p.joined = true
	workers := append([]*worker(nil), p.workers...)
	p.mu.Unlock()

	if len(workers) == 0 {
		p.running.Store(false)
		p.log.Warning().Str(`page`, p.id.String()).Log(`join on page without tasks`)
		return
	}

	woke, wake := concurrency.Signal()
	for p.running.Load() {
		p.primary.Store(wake)
		if !p.running.Load() {
			p.primary.Take()
			break
		}
		<-woke
	}
	p.log.Debug().Str(`page`, p.id.String()).Log(`shutdown observed`)

	for _, w := range workers {
		if w.slot.Wake() {
			p.metrics.Add(control.MetricWakesDelivered, 1)
		}
	}
	for _, w := range workers {
		<-w.done
		w.setState(StateThreadJoined)
	}
	p.metrics.Add(control.MetricPagesJoined, 1)
	p.log.Info().Str(`page`, p.id.String()).Int(`tasks`, len(workers)).Log(`page joined`)
}

// Err returns the joined non-cancellation errors of all tasks and rejected
// spawns, or nil.
func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// UnusedCoreCount returns how many cores are left without a spawned task.
func (p *Page) UnusedCoreCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return concurrency.UnusedCores(p.cores, len(p.workers))
}

// States returns the current lifecycle state of every task, in spawn order.
func (p *Page) States() []TaskState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TaskState, len(p.workers))
	for i, w := range p.workers {
		out[i] = TaskState(w.state.Load())
	}
	return out
}

// Outcomes returns how each task body ended, in spawn order. Tasks that
// have not finished report StateSpawned.
func (p *Page) Outcomes() []TaskState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TaskState, len(p.workers))
	for i, w := range p.workers {
		out[i] = TaskState(w.outcome.Load())
	}
	return out
}

// RegisterProbes publishes page state into dp under "page.<id>.".
func (p *Page) RegisterProbes(dp api.Debug) {
	prefix := "page." + p.id.String() + "."
	dp.RegisterProbe(prefix+"running", func() any { return p.Running() })
	dp.RegisterProbe(prefix+"states", func() any {
		states := p.States()
		out := make([]string, len(states))
		for i, s := range states {
			out[i] = s.String()
		}
		return out
	})
	dp.RegisterProbe(prefix+"unused_cores", func() any { return p.UnusedCoreCount() })
}
