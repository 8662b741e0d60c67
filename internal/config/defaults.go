package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL        = "https://brapi.dev"
	DefaultPlan           = "free"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxAttempts    = 4
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultTTLQuote    = 30 * time.Minute
	DefaultTTLCrypto   = time.Hour
	DefaultTTLCurrency = time.Hour
	DefaultTTLMacro    = 24 * time.Hour
	DefaultTTLListing  = 24 * time.Hour

	DefaultRequestsPerSecond = 3
	DefaultBurst             = 1

	DefaultBackfillConcurrency = 3
	DefaultBackfillRange       = "3mo"
	DefaultBackfillInterval    = "1d"

	DefaultCatalogPageSize = 100

	// Cron specs use the seconds field: weekly catalog sync on Monday 06:00,
	// daily OHLCV update after the B3 close on weekdays.
	DefaultCatalogCron = "0 0 6 * * 1"
	DefaultUpdateCron  = "0 30 21 * * 1-5"
)

func (c *Config) applyDefaults() {
	// Upstream defaults
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultBaseURL
	}
	if c.Upstream.Plan == "" {
		c.Upstream.Plan = DefaultPlan
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = Duration(DefaultTimeout)
	}
	if c.Upstream.MaxAttempts == 0 {
		c.Upstream.MaxAttempts = DefaultMaxAttempts
	}
	if c.Upstream.RetryBaseDelay == 0 {
		c.Upstream.RetryBaseDelay = Duration(DefaultRetryBaseDelay)
	}
	if c.Upstream.RetryMaxDelay == 0 {
		c.Upstream.RetryMaxDelay = Duration(DefaultRetryMaxDelay)
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Cache TTL defaults
	if c.Cache.TTL.Quote == 0 {
		c.Cache.TTL.Quote = Duration(DefaultTTLQuote)
	}
	if c.Cache.TTL.Crypto == 0 {
		c.Cache.TTL.Crypto = Duration(DefaultTTLCrypto)
	}
	if c.Cache.TTL.Currency == 0 {
		c.Cache.TTL.Currency = Duration(DefaultTTLCurrency)
	}
	if c.Cache.TTL.Macro == 0 {
		c.Cache.TTL.Macro = Duration(DefaultTTLMacro)
	}
	if c.Cache.TTL.Listing == 0 {
		c.Cache.TTL.Listing = Duration(DefaultTTLListing)
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultBurst
	}

	// Backfill defaults
	if c.Backfill.Concurrency == 0 {
		c.Backfill.Concurrency = DefaultBackfillConcurrency
	}
	if c.Backfill.Range == "" {
		c.Backfill.Range = DefaultBackfillRange
	}
	if c.Backfill.Interval == "" {
		c.Backfill.Interval = DefaultBackfillInterval
	}

	// Catalog defaults
	if c.Catalog.PageSize == 0 {
		c.Catalog.PageSize = DefaultCatalogPageSize
	}
	if len(c.Catalog.Types) == 0 {
		c.Catalog.Types = []string{"stock", "fund", "bdr"}
	}

	// Daemon defaults
	if c.Daemon.CatalogCron == "" {
		c.Daemon.CatalogCron = DefaultCatalogCron
	}
	if c.Daemon.UpdateCron == "" {
		c.Daemon.UpdateCron = DefaultUpdateCron
	}
}
