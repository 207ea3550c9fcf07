package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidatesWithSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Fatalf("address = %s", cfg.Server.Address())
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"zero deadline", func(c *Config) { c.Metrics.SnapshotDeadline = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = "s3cret"
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
logging:
  level: debug
auth:
  jwt_secret: from-file
metrics:
  snapshot_deadline: 2s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PULSEDESK_LOG_LEVEL", "warn")
	t.Setenv("PULSEDESK_GATEWAY_URL", "https://edge.example.com")
	t.Setenv("PULSEDESK_CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Metrics.SnapshotDeadline != 2*time.Second {
		t.Fatalf("deadline = %v", cfg.Metrics.SnapshotDeadline)
	}
	// Env wins over file.
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level = %s", cfg.Logging.Level)
	}
	if cfg.Gateway.BaseURL != "https://edge.example.com" {
		t.Fatalf("gateway url = %s", cfg.Gateway.BaseURL)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
