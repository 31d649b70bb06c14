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

	WebSocket struct {
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		SendBufferSize int           `yaml:"send_buffer_size"`
		MaxMessageSize int64         `yaml:"max_message_size"`
	} `yaml:"websocket"`

	Storage struct {
		// Backend selects the durable store: redis, postgres or memory.
		// Memory is also the automatic fallback when the configured
		// backend cannot be reached at startup.
		Backend   string        `yaml:"backend"`
		OpTimeout time.Duration `yaml:"op_timeout"`

		Redis struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
		} `yaml:"redis"`

		Postgres struct {
			DSN          string `yaml:"dsn"`
			MaxOpenConns int    `yaml:"max_open_conns"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Upload struct {
		Enabled        bool   `yaml:"enabled"`
		Bucket         string `yaml:"bucket"`
		Region         string `yaml:"region"`
		Endpoint       string `yaml:"endpoint"`
		PublicBaseURL  string `yaml:"public_base_url"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"upload"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"http"`

		WebSocket struct {
			MessagesPerSecond float64 `yaml:"messages_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
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

	// WebSocket
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket.ping_interval must be > 0")
	}
	if c.WebSocket.PongTimeout <= 0 {
		return fmt.Errorf("websocket.pong_timeout must be > 0")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket.write_timeout must be > 0")
	}
	if c.WebSocket.SendBufferSize <= 0 {
		return fmt.Errorf("websocket.send_buffer_size must be > 0")
	}
	if c.WebSocket.MaxMessageSize < 0 {
		return fmt.Errorf("websocket.max_message_size must be >= 0")
	}

	// Storage
	switch c.Storage.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("storage.backend must be one of redis, postgres, memory")
	}
	if c.Storage.OpTimeout <= 0 {
		return fmt.Errorf("storage.op_timeout must be > 0")
	}
	if c.Storage.Backend == "redis" {
		if c.Storage.Redis.Address == "" {
			return fmt.Errorf("storage.redis.address must not be empty when storage.backend=redis")
		}
		if c.Storage.Redis.PoolSize <= 0 {
			return fmt.Errorf("storage.redis.pool_size must be > 0 when storage.backend=redis")
		}
	}
	if c.Storage.Backend == "postgres" && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("storage.postgres.dsn must not be empty when storage.backend=postgres")
	}

	// Upload
	if c.Upload.Enabled {
		if c.Upload.Bucket == "" {
			return fmt.Errorf("upload.bucket must not be empty when upload.enabled=true")
		}
		if c.Upload.Region == "" && c.Upload.Endpoint == "" {
			return fmt.Errorf("upload.region or upload.endpoint must be set when upload.enabled=true")
		}
		if c.Upload.MaxUploadBytes <= 0 {
			return fmt.Errorf("upload.max_upload_bytes must be > 0 when upload.enabled=true")
		}
	}

	// Monitoring
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.MessagesPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.websocket.messages_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
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

	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.PongTimeout = 60 * time.Second
	cfg.WebSocket.WriteTimeout = 10 * time.Second
	cfg.WebSocket.SendBufferSize = 64
	cfg.WebSocket.MaxMessageSize = 64 * 1024

	cfg.Storage.Backend = "memory"
	cfg.Storage.OpTimeout = 5 * time.Second
	cfg.Storage.Redis.Address = "localhost:6379"
	cfg.Storage.Redis.DB = 0
	cfg.Storage.Redis.PoolSize = 10
	cfg.Storage.Postgres.MaxOpenConns = 20
	cfg.Storage.Postgres.MaxIdleConns = 5

	cfg.Upload.Enabled = false
	cfg.Upload.Region = "us-east-1"
	cfg.Upload.MaxUploadBytes = 512 * 1024 * 1024

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 100
	cfg.RateLimiting.WebSocket.Burst = 200

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PROCTORHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if backend := os.Getenv("PROCTORHUB_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if addr := os.Getenv("PROCTORHUB_REDIS_ADDRESS"); addr != "" {
		c.Storage.Redis.Address = addr
	}
	if dsn := os.Getenv("PROCTORHUB_POSTGRES_DSN"); dsn != "" {
		c.Storage.Postgres.DSN = dsn
	}
	if bucket := os.Getenv("PROCTORHUB_UPLOAD_BUCKET"); bucket != "" {
		c.Upload.Bucket = bucket
	}
	if level := os.Getenv("PROCTORHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
