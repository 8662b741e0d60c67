package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if c.Upstream.Plan != "free" && c.Upstream.Plan != "paid" {
		return fmt.Errorf("upstream.plan must be free or paid, got %q", c.Upstream.Plan)
	}
	if c.Upstream.MaxAttempts < 1 {
		return errors.New("upstream.max_attempts must be >= 1")
	}
	if c.Upstream.RetryBaseDelay > c.Upstream.RetryMaxDelay {
		return fmt.Errorf("upstream.retry_base_delay (%v) cannot exceed retry_max_delay (%v)",
			c.Upstream.RetryBaseDelay.Std(), c.Upstream.RetryMaxDelay.Std())
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("rate_limit.requests_per_second must be > 0")
	}
	if c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be >= 1")
	}

	if c.Backfill.Concurrency < 1 {
		return errors.New("backfill.concurrency must be >= 1")
	}

	if c.Catalog.PageSize < 1 {
		return errors.New("catalog.page_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
