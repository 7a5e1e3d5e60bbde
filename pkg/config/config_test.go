package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"zero ping interval", func(c *Config) { c.Transport.PingInterval = 0 }},
		{"empty highlight url", func(c *Config) { c.Highlight.BaseURL = "" }},
		{"bad similarity threshold", func(c *Config) { c.Highlight.SimilarityThreshold = 1.5 }},
		{"bad default mode", func(c *Config) { c.Stream.DefaultMode = "dvd" }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"rate limiting misconfigured", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.RequestsPerSecond = 0
		}},
		{"tracing without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: ":9999"
transport:
  ping_interval: 15s
highlight:
  base_url: "http://highlight:8081"
stream:
  default_mode: "rtmp"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 15*time.Second, cfg.Transport.PingInterval)
	assert.Equal(t, "http://highlight:8081", cfg.Highlight.BaseURL)
	assert.Equal(t, "rtmp", cfg.Stream.DefaultMode)
	// Untouched sections keep defaults.
	assert.Equal(t, DefaultConfig().Stream.DefaultRTMPURL, cfg.Stream.DefaultRTMPURL)
}

func TestLoad_InvalidYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FACESTREAM_SERVER_ADDRESS", ":7070")
	t.Setenv("FACESTREAM_HIGHLIGHT_URL", "http://env-highlight")
	t.Setenv("FACESTREAM_DEFAULT_RTMP_URL", "rtmp://env-host/live")
	t.Setenv("FACESTREAM_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "http://env-highlight", cfg.Highlight.BaseURL)
	assert.Equal(t, "rtmp://env-host/live", cfg.Stream.DefaultRTMPURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("FACESTREAM_SERVER_ADDRESS", ":7070")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9999\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}
