package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Transport struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		PongTimeout  time.Duration `yaml:"pong_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		AuthToken    string        `yaml:"auth_token"`
	} `yaml:"transport"`

	Highlight struct {
		BaseURL             string  `yaml:"base_url"`
		IngestHost          string  `yaml:"ingest_host"`
		DetectEvery         int     `yaml:"detect_every"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
	} `yaml:"highlight"`

	Stream struct {
		DefaultRTMPURL      string `yaml:"default_rtmp_url"`
		DefaultMode         string `yaml:"default_mode"`
		DefaultHighlighting bool   `yaml:"default_highlighting"`
	} `yaml:"stream"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Transport.PingInterval <= 0 {
		return fmt.Errorf("transport.ping_interval must be > 0")
	}
	if c.Transport.PongTimeout <= 0 {
		return fmt.Errorf("transport.pong_timeout must be > 0")
	}
	if c.Transport.WriteTimeout <= 0 {
		return fmt.Errorf("transport.write_timeout must be > 0")
	}

	if c.Highlight.BaseURL == "" {
		return fmt.Errorf("highlight.base_url must not be empty")
	}
	if c.Highlight.IngestHost == "" {
		return fmt.Errorf("highlight.ingest_host must not be empty")
	}
	if c.Highlight.DetectEvery <= 0 {
		return fmt.Errorf("highlight.detect_every must be > 0")
	}
	if c.Highlight.SimilarityThreshold <= 0 || c.Highlight.SimilarityThreshold > 1 {
		return fmt.Errorf("highlight.similarity_threshold must be in (0, 1]")
	}

	if c.Stream.DefaultRTMPURL == "" {
		return fmt.Errorf("stream.default_rtmp_url must not be empty")
	}
	switch c.Stream.DefaultMode {
	case "rtmp", "hls", "simulation":
	default:
		return fmt.Errorf("stream.default_mode must be rtmp, hls, or simulation")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing is enabled")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1] when tracing is enabled")
		}
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env
// overrides. A missing file is an error; callers decide the fallback.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s not found: %w", configPath, err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Transport.PingInterval = 30 * time.Second
	cfg.Transport.PongTimeout = 60 * time.Second
	cfg.Transport.WriteTimeout = 10 * time.Second

	cfg.Highlight.BaseURL = "http://localhost:8081"
	cfg.Highlight.IngestHost = "localhost"
	cfg.Highlight.DetectEvery = 1
	cfg.Highlight.SimilarityThreshold = 0.3

	cfg.Stream.DefaultRTMPURL = "rtmp://localhost/live/stream"
	cfg.Stream.DefaultMode = "hls"
	cfg.Stream.DefaultHighlighting = true

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.Issuer = "facestream"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

// ApplyEnvOverrides overrides configuration values from FACESTREAM_* env vars.
func (c *Config) ApplyEnvOverrides() {
	if addr := os.Getenv("FACESTREAM_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if url := os.Getenv("FACESTREAM_HIGHLIGHT_URL"); url != "" {
		c.Highlight.BaseURL = url
	}
	if host := os.Getenv("FACESTREAM_HIGHLIGHT_INGEST_HOST"); host != "" {
		c.Highlight.IngestHost = host
	}
	if url := os.Getenv("FACESTREAM_DEFAULT_RTMP_URL"); url != "" {
		c.Stream.DefaultRTMPURL = url
	}
	if level := os.Getenv("FACESTREAM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("FACESTREAM_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
