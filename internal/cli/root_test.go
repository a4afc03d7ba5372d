// File: internal/cli/root_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-page/api"
	"github.com/momentics/hioload-page/control"
	"github.com/momentics/hioload-page/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigCommandMergesFileAndFlags(t *testing.T) {
	path := writeConfig(t, "clients: 4\nlisten: 127.0.0.1:9\n")
	out, err := execute(t, "config", "--config", path, "--listen", "127.0.0.1:7", "--log-level", "off")
	require.NoError(t, err)

	var cfg control.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 4, cfg.Clients)
	assert.Equal(t, "127.0.0.1:7", cfg.Listen)
	assert.Equal(t, "off", cfg.LogLevel)
	assert.Equal(t, control.DefaultConfig().FaultLogWindow, cfg.FaultLogWindow)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "config", "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestInvalidConfigFile(t *testing.T) {
	path := writeConfig(t, "backlog: -1\n")
	_, err := execute(t, "config", "--config", path)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = execute(t, "config", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
