//go:build linux

// File: page/page_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package page_test

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/page"
	"github.com/momentics/hioload-page/reactor"
	"github.com/momentics/hioload-page/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoExchangeOverPage(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	ln, err := tcp.Bind(r, "127.0.0.1:21135")
	require.NoError(t, err)

	var serverGot, clientGot []byte
	server := func() page.Task {
		return func(ctx context.Context) error {
			defer ln.Close()
			_, conn, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.Recv(ctx, &serverGot); err != nil {
				return err
			}
			if err := conn.Send(ctx, true, []byte{1, 2, 3, 4}); err != nil {
				return err
			}
			// hold the connection until the client is done with it
			var rest []byte
			_ = conn.Recv(ctx, &rest)
			return nil
		}
	}
	client := func() page.Task {
		return func(ctx context.Context) error {
			conn, err := tcp.Connect(ctx, r, "127.0.0.1:21135")
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.Send(ctx, true, []byte{42}); err != nil {
				return err
			}
			for len(clientGot) < 4 {
				if err := conn.Recv(ctx, &clientGot); err != nil {
					return err
				}
			}
			return nil
		}
	}

	p := page.New().Spawn(server).Spawn(client)
	joinWithin(t, p, 10*time.Second)

	require.NoError(t, p.Err())
	assert.Equal(t, []byte{42}, serverGot)
	assert.Equal(t, []byte{1, 2, 3, 4}, clientGot)
	assert.Equal(t, 0, r.Stats().Registered)
}

func TestJoinCancelsParkedAccept(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	ln, err := tcp.Bind(r, "127.0.0.1:0")
	require.NoError(t, err)

	acceptErr := make(chan error, 1)
	p := page.New().
		Spawn(func() page.Task {
			return func(ctx context.Context) error {
				defer ln.Close()
				_, _, err := ln.Accept(ctx)
				acceptErr <- err
				return err
			}
		}).
		Spawn(func() page.Task {
			return func(context.Context) error {
				// let the acceptor park first
				time.Sleep(50 * time.Millisecond)
				return nil
			}
		})
	joinWithin(t, p, 5*time.Second)

	assert.ErrorIs(t, <-acceptErr, api.ErrCancelled)
	assert.NoError(t, p.Err())
	assert.Equal(t, []page.TaskState{page.StateExternalShutdown, page.StateNaturalCompletion}, p.Outcomes())
	assert.GreaterOrEqual(t, ln.Suspensions(), uint64(1))
	assert.Equal(t, 0, r.Stats().Registered)
}
