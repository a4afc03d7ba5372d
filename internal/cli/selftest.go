//go:build linux

// File: internal/cli/selftest.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-page/page"
	"github.com/momentics/hioload-page/reactor"
	"github.com/momentics/hioload-page/transport/tcp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SelfTestReport is printed as YAML by the selftest command.
type SelfTestReport struct {
	Page        string         `yaml:"page"`
	Address     string         `yaml:"address"`
	Clients     int            `yaml:"clients"`
	PayloadSize int            `yaml:"payload_size"`
	BytesEchoed uint64         `yaml:"bytes_echoed"`
	Outcomes    []string       `yaml:"outcomes"`
	Reactor     reactor.Stats  `yaml:"reactor"`
	Metrics     map[string]any `yaml:"metrics"`
	Probes      map[string]any `yaml:"probes"`
}

func newSelfTestCommand(o *RootOptions) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Round-trip payloads through a local echo server",
		Long: "Runs an echo server task and a driver task on one page. The driver " +
			"connects the configured number of clients, verifies every echo and " +
			"returns, which stops the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size <= 0 {
				return fmt.Errorf("--payload-size must be positive")
			}
			report, err := o.selfTest(size)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().IntVar(&size, "payload-size", 64*1024, "bytes each client sends")
	return cmd
}

func (o *RootOptions) selfTest(size int) (*SelfTestReport, error) {
	r, err := o.newReactor()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ln, err := tcp.Bind(r, o.cfg.Listen, o.tcpOptions()...)
	if err != nil {
		return nil, err
	}
	addr := ln.Addr().String()

	var echoed atomic.Uint64
	p := o.newPage().
		Spawn(func() page.Task { return serveEcho(ln, o.log, o.newFaultLog()) }).
		Spawn(func() page.Task {
			return func(ctx context.Context) error {
				errs := make([]error, o.cfg.Clients)
				var wg sync.WaitGroup
				for i := range errs {
					i := i
					wg.Add(1)
					go func() {
						defer wg.Done()
						n, err := o.roundTrip(ctx, r, addr, i, size)
						echoed.Add(uint64(n))
						if err != nil {
							errs[i] = fmt.Errorf("client %d: %w", i, err)
						}
					}()
				}
				wg.Wait()
				return errors.Join(errs...)
			}
		})
	p.Join()
	if err := p.Err(); err != nil {
		return nil, err
	}

	report := &SelfTestReport{
		Page:        p.ID().String(),
		Address:     addr,
		Clients:     o.cfg.Clients,
		PayloadSize: size,
		BytesEchoed: echoed.Load(),
		Reactor:     r.Stats(),
		Metrics:     o.metrics.GetSnapshot(),
		Probes:      o.probes.DumpState(),
	}
	for _, s := range p.Outcomes() {
		report.Outcomes = append(report.Outcomes, s.String())
	}
	return report, nil
}

// roundTrip sends one patterned payload in chunk-sized pieces, reading
// each piece back before sending the next, and verifies the echo.
func (o *RootOptions) roundTrip(ctx context.Context, r *reactor.Reactor, addr string, client, size int) (int, error) {
	conn, err := tcp.Connect(ctx, r, addr, o.tcpOptions()...)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(client + i)
	}

	var got []byte
	for off := 0; off < size; {
		end := min(off+o.cfg.ChunkSize, size)
		if err := conn.Send(ctx, true, payload[off:end]); err != nil {
			return len(got), err
		}
		for len(got) < end {
			if err := conn.Recv(ctx, &got); err != nil {
				return len(got), err
			}
		}
		off = end
	}
	if !bytes.Equal(got, payload) {
		return len(got), fmt.Errorf("echo mismatch after %d bytes", len(got))
	}
	return len(got), conn.CloseWrite()
}
