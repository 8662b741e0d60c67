package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
upstream:
  base_url: https://brapi.dev
  token: test-token
  plan: free
  timeout: 15s
database:
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
cache:
  redis_url: redis://localhost:6379/0
  ttl:
    quote: 30m
    macro: 24h
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.BaseURL != "https://brapi.dev" {
		t.Errorf("Upstream.BaseURL = %q, want %q", cfg.Upstream.BaseURL, "https://brapi.dev")
	}
	if cfg.Upstream.Token != "test-token" {
		t.Errorf("Upstream.Token = %q, want %q", cfg.Upstream.Token, "test-token")
	}
	if cfg.Upstream.Timeout.Std() != 15*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 15s", cfg.Upstream.Timeout.Std())
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Cache.TTL.Quote.Std() != 30*time.Minute {
		t.Errorf("Cache.TTL.Quote = %v, want 30m", cfg.Cache.TTL.Quote.Std())
	}
	if cfg.Cache.TTL.Macro.Std() != 24*time.Hour {
		t.Errorf("Cache.TTL.Macro = %v, want 24h", cfg.Cache.TTL.Macro.Std())
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	t.Setenv("TEST_UPSTREAM_TOKEN", "tok-abc")

	yaml := `
upstream:
  token: ${TEST_UPSTREAM_TOKEN}
database:
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
	if cfg.Upstream.Token != "tok-abc" {
		t.Errorf("Upstream.Token = %q, want %q", cfg.Upstream.Token, "tok-abc")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
database:
  host: localhost
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Upstream.BaseURL != DefaultBaseURL {
		t.Errorf("Upstream.BaseURL = %q, want default %q", cfg.Upstream.BaseURL, DefaultBaseURL)
	}
	if cfg.Upstream.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Upstream.MaxAttempts = %d, want default %d", cfg.Upstream.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Upstream.Timeout.Std() != DefaultTimeout {
		t.Errorf("Upstream.Timeout = %v, want default %v", cfg.Upstream.Timeout.Std(), DefaultTimeout)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.MaxConns != DefaultMaxConns {
		t.Errorf("Database.MaxConns = %d, want default %d", cfg.Database.MaxConns, DefaultMaxConns)
	}
	if cfg.Cache.TTL.Quote.Std() != DefaultTTLQuote {
		t.Errorf("Cache.TTL.Quote = %v, want default %v", cfg.Cache.TTL.Quote.Std(), DefaultTTLQuote)
	}
	if cfg.Backfill.Concurrency != DefaultBackfillConcurrency {
		t.Errorf("Backfill.Concurrency = %d, want default %d", cfg.Backfill.Concurrency, DefaultBackfillConcurrency)
	}
	if cfg.RateLimit.RequestsPerSecond != DefaultRequestsPerSecond {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want default %v", cfg.RateLimit.RequestsPerSecond, float64(DefaultRequestsPerSecond))
	}
	if cfg.Daemon.UpdateCron != DefaultUpdateCron {
		t.Errorf("Daemon.UpdateCron = %q, want default %q", cfg.Daemon.UpdateCron, DefaultUpdateCron)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{
			Database: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass"},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Upstream.BaseURL = "" },
			wantErr: "upstream.base_url is required",
		},
		{
			name:    "bad plan",
			mutate:  func(c *Config) { c.Upstream.Plan = "gold" },
			wantErr: `upstream.plan must be free or paid, got "gold"`,
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "missing database password",
			mutate:  func(c *Config) { c.Database.Password = "" },
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database.MaxConns = 5
				c.Database.MinConns = 10
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "zero rate budget",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerSecond = -1 },
			wantErr: "rate_limit.requests_per_second must be > 0",
		},
		{
			name:    "zero backfill concurrency",
			mutate:  func(c *Config) { c.Backfill.Concurrency = -1 },
			wantErr: "backfill.concurrency must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	yaml := `
upstream:
  timeout: 250ms
  retry_base_delay: 1s
  retry_max_delay: 1m
`
	path := writeTempFile(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Upstream.Timeout.Std() != 250*time.Millisecond {
		t.Errorf("timeout = %v, want 250ms", cfg.Upstream.Timeout.Std())
	}
	if cfg.Upstream.RetryMaxDelay.Std() != time.Minute {
		t.Errorf("retry_max_delay = %v, want 1m", cfg.Upstream.RetryMaxDelay.Std())
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
