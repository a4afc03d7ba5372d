//go:build linux

// File: internal/cli/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-page/page"
	"github.com/momentics/hioload-page/transport/tcp"
	"github.com/spf13/cobra"
)

func newServeCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run an echo server until interrupted",
		Long: "Runs two page tasks: the echo acceptor and a signal watcher. SIGINT or SIGTERM " +
			"stops the page, SIGHUP reloads the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.newReactor()
			if err != nil {
				return err
			}
			defer r.Close()

			ln, err := tcp.Bind(r, o.cfg.Listen, o.tcpOptions()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())

			p := o.newPage().
				Spawn(func() page.Task { return serveEcho(ln, o.log, o.newFaultLog()) }).
				Spawn(func() page.Task { return o.watchSignals(cmd.Context()) })
			p.Join()
			return p.Err()
		},
	}
}

// watchSignals returns nil, stopping the page, on SIGINT, SIGTERM or when
// parent ends.
func (o *RootOptions) watchSignals(parent context.Context) page.Task {
	return func(ctx context.Context) error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-parent.Done():
				return nil
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					o.reload()
					continue
				}
				o.log.Notice().Str(`signal`, sig.String()).Log(`shutting down`)
				return nil
			}
		}
	}
}
