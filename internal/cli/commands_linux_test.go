//go:build linux

// File: internal/cli/commands_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-page/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSelfTest(t *testing.T) {
	path := writeConfig(t, "clients: 3\nchunk_size: 4096\n")
	out, err := execute(t, "selftest", "--config", path, "--listen", "127.0.0.1:0", "--log-level", "off", "--payload-size", "20000")
	require.NoError(t, err)

	var report cli.SelfTestReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Clients)
	assert.Equal(t, uint64(3*20000), report.BytesEchoed)
	assert.Equal(t, []string{"external-shutdown-observed", "natural-completion"}, report.Outcomes)
	assert.Equal(t, 0, report.Reactor.Registered)
	assert.Contains(t, report.Probes, "config")
}

// freeAddr returns a loopback address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServeAndDial(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serve := cli.NewRootCommand()
	var serveOut syncBuffer
	serve.SetOut(&serveOut)
	serve.SetErr(&bytes.Buffer{})
	serve.SetArgs([]string{"serve", "--listen", addr, "--log-level", "off"})
	served := make(chan error, 1)
	go func() { served <- serve.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(serveOut.String(), "listening on")
	}, 5*time.Second, 5*time.Millisecond)

	out, err := execute(t, "dial", "--listen", addr, "--log-level", "off", "hello", "page")
	require.NoError(t, err)
	assert.Equal(t, "hello page\n", out)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after context cancellation")
	}
}

func TestDialRefused(t *testing.T) {
	_, err := execute(t, "dial", "--listen", freeAddr(t), "--log-level", "off", "x")
	assert.ErrorContains(t, err, "connect failed")
}
