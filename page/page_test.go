// File: page/page_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package page_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/control"
	"github.com/momentics/hioload-page/internal/logging"
	"github.com/momentics/hioload-page/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func returns(err error) page.TaskFactory {
	return func() page.Task {
		return func(context.Context) error { return err }
	}
}

func blocks() page.TaskFactory {
	return func() page.Task {
		return func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
	}
}

func joinWithin(t *testing.T, p *page.Page, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("Join did not return within %v", d)
	}
}

func TestFirstCompletionStopsOthers(t *testing.T) {
	p := page.New().
		Spawn(returns(nil)).
		Spawn(blocks())
	joinWithin(t, p, 5*time.Second)

	assert.False(t, p.Running())
	assert.Equal(t, []page.TaskState{page.StateNaturalCompletion, page.StateExternalShutdown}, p.Outcomes())
	assert.Equal(t, []page.TaskState{page.StateThreadJoined, page.StateThreadJoined}, p.States())
	assert.NoError(t, p.Err())
}

func TestSimultaneousCompletionIsIdempotent(t *testing.T) {
	release := make(chan struct{})
	gate := func() page.Task {
		return func(context.Context) error {
			<-release
			return nil
		}
	}
	p := page.New()
	for i := 0; i < 8; i++ {
		p.Spawn(gate)
	}
	close(release)
	joinWithin(t, p, 5*time.Second)

	natural := 0
	for _, s := range p.Outcomes() {
		require.True(t, s.Terminal())
		if s == page.StateNaturalCompletion {
			natural++
		}
	}
	assert.GreaterOrEqual(t, natural, 1)
	assert.False(t, p.Running())
}

func TestStopFromOutside(t *testing.T) {
	p := page.New().Spawn(blocks()).Spawn(blocks())
	time.AfterFunc(20*time.Millisecond, p.Stop)
	joinWithin(t, p, 5*time.Second)

	assert.Equal(t, []page.TaskState{page.StateExternalShutdown, page.StateExternalShutdown}, p.Outcomes())
	assert.NoError(t, p.Err())
}

func TestJoinWithoutTasksReturns(t *testing.T) {
	p := page.New()
	joinWithin(t, p, time.Second)
	assert.False(t, p.Running())
	assert.Empty(t, p.States())
}

func TestSpawnAfterJoinRejected(t *testing.T) {
	p := page.New().Spawn(returns(nil))
	joinWithin(t, p, 5*time.Second)

	var called atomic.Bool
	p.Spawn(func() page.Task {
		called.Store(true)
		return nil
	})
	assert.ErrorIs(t, p.Err(), api.ErrPageJoined)
	assert.Len(t, p.States(), 1)
	assert.False(t, called.Load())
}

func TestTaskSkippedWhenPageAlreadyStopped(t *testing.T) {
	p := page.New()
	p.Stop()

	var called atomic.Bool
	p.Spawn(func() page.Task {
		called.Store(true)
		return func(context.Context) error { return nil }
	})
	joinWithin(t, p, 5*time.Second)

	assert.False(t, called.Load())
	assert.Equal(t, []page.TaskState{page.StateExternalShutdown}, p.Outcomes())
}

func TestPanicIsRecovered(t *testing.T) {
	p := page.New().
		Spawn(func() page.Task {
			return func(context.Context) error { panic("kaput") }
		}).
		Spawn(blocks())
	joinWithin(t, p, 5*time.Second)

	require.Error(t, p.Err())
	assert.Contains(t, p.Err().Error(), "kaput")
	assert.Equal(t, page.StateNaturalCompletion, p.Outcomes()[0])
}

func TestTaskErrorsCollected(t *testing.T) {
	boom := errors.New("boom")
	p := page.New().Spawn(returns(boom)).Spawn(blocks())
	joinWithin(t, p, 5*time.Second)
	assert.ErrorIs(t, p.Err(), boom)
}

func TestNilFactoryRejected(t *testing.T) {
	p := page.New().Spawn(nil)
	assert.ErrorIs(t, p.Err(), api.ErrInvalidArgument)
	joinWithin(t, p, time.Second)
}

func TestUnusedCoreCount(t *testing.T) {
	p := page.New(page.WithCoreCount(4))
	assert.Equal(t, 4, p.UnusedCoreCount())
	p.Spawn(blocks())
	assert.Equal(t, 3, p.UnusedCoreCount())
	for i := 0; i < 4; i++ {
		p.Spawn(blocks())
	}
	assert.Equal(t, 0, p.UnusedCoreCount())
	p.Stop()
	joinWithin(t, p, 5*time.Second)
}

func TestWithConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Cores = 2
	cfg.CPUPinning = true
	p := page.New(page.WithConfig(cfg)).Spawn(returns(nil))
	assert.Equal(t, 1, p.UnusedCoreCount())
	joinWithin(t, p, 5*time.Second)
	assert.NoError(t, p.Err())
}

func TestConcurrentJoin(t *testing.T) {
	p := page.New().Spawn(blocks())
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Join()
		}()
	}
	p.Stop()
	wg.Wait()
	assert.Equal(t, []page.TaskState{page.StateThreadJoined}, p.States())
}

func TestMetricsAndProbes(t *testing.T) {
	reg := control.NewMetricsRegistry()
	dp := control.NewDebugProbes()
	var out bytes.Buffer
	p := page.New(
		page.WithMetrics(reg),
		page.WithLogger(logging.New(&out, logiface.LevelInformational)),
	).Spawn(returns(nil)).Spawn(blocks())
	p.RegisterProbes(dp)
	joinWithin(t, p, 5*time.Second)

	assert.Equal(t, uint64(2), reg.Counter(control.MetricTasksSpawned))
	assert.Equal(t, uint64(1), reg.Counter(control.MetricNaturalCompletions))
	assert.Equal(t, uint64(1), reg.Counter(control.MetricExternalShutdowns))
	assert.Equal(t, uint64(1), reg.Counter(control.MetricPagesJoined))

	state := dp.DumpState()
	prefix := "page." + p.ID().String() + "."
	assert.Equal(t, false, state[prefix+"running"])
	assert.Equal(t, []string{"thread-joined", "thread-joined"}, state[prefix+"states"])

	assert.Contains(t, out.String(), `"msg":"page joined"`)
	assert.Contains(t, out.String(), p.ID().String())
}

func TestTaskStateString(t *testing.T) {
	assert.Equal(t, "natural-completion", page.StateNaturalCompletion.String())
	assert.Equal(t, "TaskState(42)", page.TaskState(42).String())
	assert.False(t, page.StateRunning.Terminal())
}
