//go:build linux

// File: internal/cli/commands_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/internal/logging"
	"github.com/momentics/hioload-page/page"
	"github.com/momentics/hioload-page/pool"
	"github.com/momentics/hioload-page/reactor"
	"github.com/momentics/hioload-page/transport/tcp"
	"github.com/spf13/cobra"
)

// acceptBackoff is the pause after an accept fault such as EMFILE.
const acceptBackoff = 10 * time.Millisecond

func platformCommands(o *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		newServeCommand(o),
		newDialCommand(o),
		newSelfTestCommand(o),
	}
}

func (o *RootOptions) newReactor() (*reactor.Reactor, error) {
	return reactor.New(
		reactor.WithLogger(o.log),
		reactor.WithMaxEvents(o.cfg.MaxEvents),
	)
}

func (o *RootOptions) tcpOptions() []tcp.Option {
	return []tcp.Option{
		tcp.WithLogger(o.log),
		tcp.WithNoDelay(o.cfg.NoDelay),
		tcp.WithBacklog(o.cfg.Backlog),
		tcp.WithChunkPool(pool.NewBytePool(o.cfg.ChunkSize)),
	}
}

// faultLog throttles repeated endpoint fault lines per (op, errno).
type faultLog struct {
	limiter    *catrate.Limiter
	log        *logging.Logger
	mu         sync.Mutex
	suppressed map[string]int
}

func (o *RootOptions) newFaultLog() *faultLog {
	return &faultLog{
		limiter:    catrate.NewLimiter(map[time.Duration]int{o.cfg.FaultLogWindow: o.cfg.FaultLogBurst}),
		log:        o.log,
		suppressed: make(map[string]int),
	}
}

func (f *faultLog) report(op string, err error) {
	category := op
	var fault *api.IOFault
	if errors.As(err, &fault) {
		category = fault.Op + ":" + fault.Err.Error()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.limiter.Allow(category); !ok {
		f.suppressed[category]++
		return
	}
	f.log.Warning().
		Str(`op`, op).
		Int(`suppressed`, f.suppressed[category]).
		Err(err).
		Log(`endpoint fault`)
	delete(f.suppressed, category)
}

// echo copies everything received on conn back to it until the peer
// closes or ctx ends. It returns the number of bytes echoed.
func echo(ctx context.Context, conn *tcp.Conn) (int, error) {
	var buf []byte
	total := 0
	for {
		buf = buf[:0]
		err := conn.Recv(ctx, &buf)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if err := conn.Send(ctx, true, buf); err != nil {
			return total, err
		}
		total += len(buf)
	}
}

// serveEcho accepts connections until cancelled, echoing each on its own
// goroutine. The listener is closed when the task ends.
func serveEcho(ln *tcp.Listener, log *logging.Logger, faults *faultLog) page.Task {
	return func(ctx context.Context) error {
		var wg sync.WaitGroup
		defer wg.Wait()
		defer ln.Close()
		for {
			id, conn, err := ln.Accept(ctx)
			switch {
			case err == nil:
			case errors.Is(err, api.ErrCancelled), errors.Is(err, api.ErrClosed):
				return err
			default:
				faults.report("accept", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(acceptBackoff):
				}
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				n, err := echo(ctx, conn)
				if err != nil && !errors.Is(err, api.ErrCancelled) {
					faults.report("echo", err)
				}
				log.Debug().Uint64(`conn`, id).Int(`bytes`, n).Log(`connection done`)
			}()
		}
	}
}
