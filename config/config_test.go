package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/msmcount/config"
)

const fullYAML = `
num_states: 100
lag: 2
rank: 1
size: 4
max_receive_bytes: 1048576
coordinator:
  rank: 0
  listen: ":7077"
  url: "ws://head:7077/join"
  handshake_timeout: 5s
labels:
  path: traj/rank1.txt
  stride: 10
store:
  path: /tmp/msm
log:
  level: debug
  format: json
metrics_addr: ":9102"
`

func TestParseFull(t *testing.T) {
	cfg, err := config.Parse([]byte(fullYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.NumStates)
	assert.Equal(t, 2, cfg.Lag)
	assert.Equal(t, 1, cfg.Rank)
	assert.Equal(t, 4, cfg.Size)
	assert.Equal(t, int64(1<<20), cfg.MaxReceiveBytes)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.HandshakeTimeout)
	assert.Equal(t, "ws://head:7077/join", cfg.Coordinator.URL)
	assert.Equal(t, 10, cfg.Labels.Stride)
	assert.True(t, cfg.Store.Enabled())
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.False(t, cfg.IsCoordinator())
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte("num_states: 3\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	def := config.Default()
	assert.Equal(t, def.Lag, cfg.Lag)
	assert.Equal(t, def.Coordinator, cfg.Coordinator)
	assert.Equal(t, def.Log, cfg.Log)
	assert.False(t, cfg.Store.Enabled())
	assert.True(t, cfg.IsCoordinator())

	empty, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, def, empty)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := config.Parse([]byte("num_states: 3\nnum_stats: 4\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		c := config.Default()
		c.NumStates = 5
		c.Size = 3
		c.Rank = 0
		return c
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing num_states", func(c *config.Config) { c.NumStates = 0 }},
		{"zero lag", func(c *config.Config) { c.Lag = 0 }},
		{"rank outside size", func(c *config.Config) { c.Rank = 3 }},
		{"coordinator outside size", func(c *config.Config) { c.Coordinator.Rank = 5 }},
		{"zero stride", func(c *config.Config) { c.Labels.Stride = 0 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"bad metrics addr", func(c *config.Config) { c.MetricsAddr = "nope" }},
		{"negative receive limit", func(c *config.Config) { c.MaxReceiveBytes = -1 }},
		{"coordinator without listen", func(c *config.Config) { c.Coordinator.Listen = "" }},
		{"worker without url", func(c *config.Config) { c.Rank = 2 }},
		{"bad url", func(c *config.Config) { c.Rank = 2; c.Coordinator.URL = "::" }},
	}

	base := valid()
	require.NoError(t, base.Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			require.ErrorIs(t, c.Validate(), config.ErrInvalid)
		})
	}
}

func TestLoadFileAndMarshal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	out, err := cfg.Marshal()
	require.NoError(t, err)
	again, err := config.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
