//go:build linux

// File: internal/cli/dial.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/momentics/hioload-page/page"
	"github.com/momentics/hioload-page/transport/tcp"
	"github.com/spf13/cobra"
)

func newDialCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dial MESSAGE...",
		Short: "Send a message to an echo server and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.newReactor()
			if err != nil {
				return err
			}
			defer r.Close()

			msg := []byte(strings.Join(args, " "))
			var reply []byte
			p := o.newPage().Spawn(func() page.Task {
				return func(ctx context.Context) error {
					conn, err := tcp.Connect(ctx, r, o.cfg.Listen, o.tcpOptions()...)
					if err != nil {
						return err
					}
					defer conn.Close()
					if err := conn.Send(ctx, true, msg); err != nil {
						return err
					}
					for len(reply) < len(msg) {
						if err := conn.Recv(ctx, &reply); err != nil {
							return err
						}
					}
					return nil
				}
			})
			p.Join()
			if err := p.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(reply))
			return nil
		},
	}
}
