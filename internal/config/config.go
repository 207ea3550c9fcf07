// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns the host:port listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures persistence. Driver "memory" runs without a
// database; "postgres" requires a DSN.
type DatabaseConfig struct {
	Driver         string `yaml:"driver"`
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	MaxIdleConns   int    `yaml:"max_idle_conns"`
	MigrationsPath string `yaml:"migrations_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// GatewayConfig configures the remote summary gateway. When BaseURL is empty
// the reconciler reads from local services instead.
type GatewayConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	AllowedHosts []string      `yaml:"allowed_hosts"`
}

// RedisConfig configures the optional snapshot cache. Disabled when Addr is
// empty.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuthConfig configures JWT validation.
type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret"`
	SkipPaths []string `yaml:"skip_paths"`
}

// RateLimitConfig configures per-caller request limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MetricsConfig configures the unified snapshot reconciler.
type MetricsConfig struct {
	SnapshotDeadline time.Duration `yaml:"snapshot_deadline"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "memory",
			MaxOpenConns:   20,
			MaxIdleConns:   5,
			MigrationsPath: "migrations",
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Gateway: GatewayConfig{
			Timeout:      10 * time.Second,
			MaxAttempts:  3,
			RetryBackoff: 250 * time.Millisecond,
		},
		Redis: RedisConfig{TTL: 15 * time.Second},
		Auth: AuthConfig{
			SkipPaths: []string{"/healthz", "/metrics", "/api/v1/register"},
		},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 20, Burst: 40},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		Metrics:   MetricsConfig{SnapshotDeadline: 5 * time.Second},
	}
}

// Load reads configuration from path (optional), then applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment overrides, all prefixed PULSEDESK_.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setList := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			parts := strings.Split(v, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			*dst = out
		}
	}

	setString("PULSEDESK_SERVER_HOST", &c.Server.Host)
	setInt("PULSEDESK_SERVER_PORT", &c.Server.Port)
	setString("PULSEDESK_DB_DRIVER", &c.Database.Driver)
	setString("PULSEDESK_DB_DSN", &c.Database.DSN)
	setString("PULSEDESK_DB_MIGRATIONS", &c.Database.MigrationsPath)
	setString("PULSEDESK_LOG_LEVEL", &c.Logging.Level)
	setString("PULSEDESK_LOG_FORMAT", &c.Logging.Format)
	setString("PULSEDESK_GATEWAY_URL", &c.Gateway.BaseURL)
	setString("PULSEDESK_GATEWAY_API_KEY", &c.Gateway.APIKey)
	setDuration("PULSEDESK_GATEWAY_TIMEOUT", &c.Gateway.Timeout)
	setList("PULSEDESK_GATEWAY_ALLOWED_HOSTS", &c.Gateway.AllowedHosts)
	setString("PULSEDESK_REDIS_ADDR", &c.Redis.Addr)
	setString("PULSEDESK_REDIS_PASSWORD", &c.Redis.Password)
	setString("PULSEDESK_JWT_SECRET", &c.Auth.JWTSecret)
	setList("PULSEDESK_CORS_ORIGINS", &c.CORS.AllowedOrigins)
	setDuration("PULSEDESK_SNAPSHOT_DEADLINE", &c.Metrics.SnapshotDeadline)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("postgres driver requires a DSN")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Metrics.SnapshotDeadline <= 0 {
		return fmt.Errorf("metrics.snapshot_deadline must be positive")
	}
	return nil
}
