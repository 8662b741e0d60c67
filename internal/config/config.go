package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for a syncer instance.
type Config struct {
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Database  DBConfig        `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// UpstreamConfig holds upstream API settings.
type UpstreamConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Token          string   `yaml:"token"` // Bearer token, required by gated endpoints only
	Plan           string   `yaml:"plan"`  // free | paid; free forbids batching and premium modules
	Timeout        Duration `yaml:"timeout"`
	MaxAttempts    int      `yaml:"max_attempts"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  Duration `yaml:"retry_max_delay"`
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CacheConfig holds the cache backend and per-resource TTLs.
type CacheConfig struct {
	RedisURL string    `yaml:"redis_url"` // empty = in-memory cache
	TTL      TTLConfig `yaml:"ttl"`
}

// TTLConfig holds per-resource-class cache TTLs.
type TTLConfig struct {
	Quote    Duration `yaml:"quote"`
	Crypto   Duration `yaml:"crypto"`
	Currency Duration `yaml:"currency"`
	Macro    Duration `yaml:"macro"`
	Listing  Duration `yaml:"listing"`
}

// RateLimitConfig holds the default budget and per-resource overrides.
type RateLimitConfig struct {
	RequestsPerSecond float64                   `yaml:"requests_per_second"`
	Burst             int                       `yaml:"burst"`
	Resources         map[string]ResourceBudget `yaml:"resources"`
}

// ResourceBudget overrides the budget for one resource class.
type ResourceBudget struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// BackfillConfig holds time-series synchronizer settings.
type BackfillConfig struct {
	Concurrency int    `yaml:"concurrency"`
	Range       string `yaml:"range"`
	Interval    string `yaml:"interval"`
}

// CatalogConfig holds catalog synchronizer settings.
type CatalogConfig struct {
	PageSize       int      `yaml:"page_size"`
	Types          []string `yaml:"types"`
	SkipEnrichment bool     `yaml:"skip_enrichment"`
}

// DaemonConfig holds cron specs for daemon mode (with a seconds field).
type DaemonConfig struct {
	CatalogCron string `yaml:"catalog_cron"`
	UpdateCron  string `yaml:"update_cron"`
}
