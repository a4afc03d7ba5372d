// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// control_test.go: config parsing, store listeners, metrics and probes.
package control_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := control.ParseConfig([]byte(`
listen: 0.0.0.0:9000
cpu_pinning: true
cores: 4
fault_log_window: 250ms
`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.True(t, cfg.CPUPinning)
	assert.Equal(t, 4, cfg.Cores)
	assert.Equal(t, 250*time.Millisecond, cfg.FaultLogWindow)
	assert.Equal(t, control.DefaultConfig().ChunkSize, cfg.ChunkSize)
}

func TestParseConfigEmptyIsDefault(t *testing.T) {
	cfg, err := control.ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, control.DefaultConfig(), cfg)
}

func TestParseConfigRejects(t *testing.T) {
	_, err := control.ParseConfig([]byte("listne: x\n"))
	assert.Error(t, err)

	_, err = control.ParseConfig([]byte("backlog: 0\n"))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	var structured *api.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, "backlog", structured.Context["field"])
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clients: 3\n"), 0o600))

	cfg, err := control.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Clients)

	_, err = control.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigStoreApplyNotifies(t *testing.T) {
	cs := control.NewConfigStore()
	var calls int
	cs.OnReload(func() {
		calls++
		// listeners may read the store they were notified by
		_, ok := cs.Get("listen")
		assert.True(t, ok)
	})

	cs.Apply(control.DefaultConfig())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "127.0.0.1:21135", cs.GetSnapshot()["listen"])

	cs.SetConfig(map[string]any{"listen": "[::1]:1"})
	assert.Equal(t, 2, calls)
	v, _ := cs.Get("listen")
	assert.Equal(t, "[::1]:1", v)
}

func TestMetricsRegistry(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Set("bar.status", "ok")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Add(control.MetricWakesDelivered, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(800), reg.Counter(control.MetricWakesDelivered))
	snap := reg.GetSnapshot()
	assert.Equal(t, "ok", snap["bar.status"])
	assert.Equal(t, uint64(800), snap[control.MetricWakesDelivered])
	assert.False(t, reg.Updated().IsZero())

	var nilReg *control.MetricsRegistry
	assert.Zero(t, nilReg.Add("x", 1))
	assert.Zero(t, nilReg.Counter("x"))
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	dp.RegisterProbe("test_probe", func() any { return "ok" })

	state := dp.DumpState()
	assert.Equal(t, "ok", state["test_probe"])
	assert.Positive(t, state["platform.cpus"])

	dp.RemoveProbe("test_probe")
	assert.NotContains(t, dp.DumpState(), "test_probe")
}
