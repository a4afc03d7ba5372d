package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/momentics/hioload-page/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf, logiface.LevelInformational)

	l.Info().Str(`op`, `accept`).Int(`fd`, 7).Log(`suspended`)
	l.Debug().Log(`filtered out`)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, `info`, rec[`lvl`])
	assert.Equal(t, `accept`, rec[`op`])
	assert.Equal(t, `suspended`, rec[`msg`])
	assert.Contains(t, rec, `ts`)
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *logging.Logger
	assert.NotPanics(t, func() {
		l.Err().Err(assert.AnError).Log(`nothing happens`)
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]logiface.Level{
		`info`:    logiface.LevelInformational,
		`WARN`:    logiface.LevelWarning,
		`error`:   logiface.LevelError,
		`debug`:   logiface.LevelDebug,
		`off`:     logiface.LevelDisabled,
		``:        logiface.LevelInformational,
		` trace `: logiface.LevelTrace,
	} {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := logging.ParseLevel(`loud`)
	assert.Error(t, err)
}
