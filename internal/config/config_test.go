package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replaydirector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sequence_dir: /tmp/seq
ticks:
  fast: 20ms
host:
  url: https://localhost:3000
redis:
  addr: localhost:6379
  ttl: 1h
export:
  codec: webm
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/seq", cfg.SequenceDir)
	assert.Equal(t, 20*time.Millisecond, cfg.Ticks.Fast)
	assert.Equal(t, 500*time.Millisecond, cfg.Ticks.Slow)
	assert.Equal(t, "https://localhost:3000", cfg.Host.URL)
	assert.Equal(t, 2*time.Second, cfg.Host.Timeout)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "webm", cfg.Export.Codec)
	assert.Equal(t, 60, cfg.Export.FPS)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  codec: gif\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero set timeout", func(c *Config) { c.SetTimeout = 0 }, "set_timeout"},
		{"negative set timeout", func(c *Config) { c.SetTimeout = -time.Second }, "set_timeout"},
		{"zero host timeout", func(c *Config) { c.Host.Timeout = 0 }, "host timeout"},
		{"zero fps", func(c *Config) { c.Export.FPS = 0 }, "fps"},
		{"empty dir", func(c *Config) { c.SequenceDir = "" }, "sequence_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsZeroTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("set_timeout: 0s\nhost:\n  timeout: 0s\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "set_timeout")
}
