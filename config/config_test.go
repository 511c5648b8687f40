package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPollInterval, cfg.EffectiveProbeTimeout())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
pollInterval: 250ms
probeTimeout: 20ms
mailbox:
  kind: mpsc
log:
  level: debug
  development: true
`))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.EffectiveProbeTimeout())
	assert.Equal(t, "mpsc", cfg.Mailbox.Kind)
	assert.Equal(t, uint64(DefaultMailboxCapacity), cfg.Mailbox.Capacity, "unset keys keep their default")
	assert.True(t, cfg.Log.Development)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte(`pollInterval: [`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
pollInterval: 0s
probeTimeout: -1s
mailbox:
  kind: carrier-pigeon
log:
  level: loud
`))
	require.Error(t, err)
	for _, field := range []string{"pollInterval", "probeTimeout", "mailbox kind", "log level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idleTimeout: 1s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.IdleTimeout)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))
}
