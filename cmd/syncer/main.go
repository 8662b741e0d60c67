package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/lcamargo/brmarket-data/internal/cache"
	"github.com/lcamargo/brmarket-data/internal/catalog"
	"github.com/lcamargo/brmarket-data/internal/config"
	"github.com/lcamargo/brmarket-data/internal/ratelimit"
	"github.com/lcamargo/brmarket-data/internal/readsvc"
	"github.com/lcamargo/brmarket-data/internal/series"
	"github.com/lcamargo/brmarket-data/internal/store"
	"github.com/lcamargo/brmarket-data/internal/upstream"
	"github.com/lcamargo/brmarket-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncer.local.yaml", "path to config file")
	mode := flag.String("mode", "update", "catalog | backfill | update | enrich | probe | daemon")
	tickersFlag := flag.String("tickers", "", "comma-separated tickers (default: every known asset)")
	rangeFlag := flag.String("range", "", "history range override (e.g. 3mo, 1y)")
	intervalFlag := flag.String("interval", "", "bar interval override (e.g. 1d)")
	typesFlag := flag.String("types", "", "comma-separated asset types for catalog mode")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncer",
		"version", version.Version,
		"commit", version.Commit,
		"mode", *mode,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"upstream", cfg.Upstream.BaseURL,
		"plan", cfg.Upstream.Plan,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("database connected")

	// Cache backend
	var cacheStore cache.Store
	if cfg.Cache.RedisURL != "" {
		cacheStore, err = cache.NewRedisStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("redis cache connected")
	} else {
		cacheStore = cache.NewMemoryStore()
		logger.Info("using in-memory cache")
	}
	payloadCache := cache.New(cacheStore, logger)
	defer payloadCache.Close()

	// Rate limiter registry
	budgets := make(map[string]ratelimit.Budget, len(cfg.RateLimit.Resources))
	for resource, b := range cfg.RateLimit.Resources {
		budgets[resource] = ratelimit.Budget{RequestsPerSecond: b.RequestsPerSecond, Burst: b.Burst}
	}
	limits := ratelimit.NewRegistry(budgets, ratelimit.Budget{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	// Upstream client
	client := upstream.NewClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.Token,
		upstream.WithPlan(cfg.Upstream.Plan),
		upstream.WithTimeout(cfg.Upstream.Timeout.Std()),
		upstream.WithRetry(cfg.Upstream.MaxAttempts, cfg.Upstream.RetryBaseDelay.Std(), cfg.Upstream.RetryMaxDelay.Std()),
		upstream.WithRateLimiter(limits),
		upstream.WithLogger(logger),
	)

	app := &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		client: client,
		reader: readsvc.New(client, payloadCache, st.AuditSink(), readsvc.TTLs{
			Quote:    cfg.Cache.TTL.Quote.Std(),
			Crypto:   cfg.Cache.TTL.Crypto.Std(),
			Currency: cfg.Cache.TTL.Currency.Std(),
			Macro:    cfg.Cache.TTL.Macro.Std(),
			Listing:  cfg.Cache.TTL.Listing.Std(),
		}, logger),
		tickersFlag:  *tickersFlag,
		rangeFlag:    *rangeFlag,
		intervalFlag: *intervalFlag,
		typesFlag:    *typesFlag,
	}

	if err := app.run(ctx, *mode); err != nil {
		logger.Error("run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	client *upstream.Client
	reader *readsvc.Service

	tickersFlag  string
	rangeFlag    string
	intervalFlag string
	typesFlag    string
}

func (a *app) run(ctx context.Context, mode string) error {
	switch mode {
	case "catalog":
		return a.runCatalog(ctx)
	case "backfill":
		return a.runBackfill(ctx)
	case "update":
		return a.runUpdate(ctx)
	case "enrich":
		return a.runEnrich(ctx)
	case "probe":
		return a.runProbe(ctx)
	case "daemon":
		return a.runDaemon(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (a *app) catalogTypes() []string {
	if a.typesFlag != "" {
		return splitCSV(a.typesFlag)
	}
	return a.cfg.Catalog.Types
}

func (a *app) runCatalog(ctx context.Context) error {
	sync := catalog.New(a.client, a.store,
		catalog.WithPageSize(a.cfg.Catalog.PageSize),
		catalog.WithTypes(a.catalogTypes()),
		catalog.WithSkipEnrichment(a.cfg.Catalog.SkipEnrichment),
		catalog.WithAuditSink(a.store.AuditSink()),
		catalog.WithLogger(a.logger),
	)
	stats, err := sync.Sync(ctx)
	printJSON(stats)
	return err
}

func (a *app) seriesService() *series.Service {
	rng := a.cfg.Backfill.Range
	if a.rangeFlag != "" {
		rng = a.rangeFlag
	}
	interval := a.cfg.Backfill.Interval
	if a.intervalFlag != "" {
		interval = a.intervalFlag
	}
	return series.New(a.client, a.store,
		series.WithConcurrency(a.cfg.Backfill.Concurrency),
		series.WithWindow(rng, interval),
		series.WithAuditSink(a.store.AuditSink()),
		series.WithLogger(a.logger),
	)
}

// resolveTickers prefers the -tickers flag, falling back to every asset
// the catalog has stored.
func (a *app) resolveTickers(ctx context.Context) ([]string, error) {
	if a.tickersFlag != "" {
		return splitCSV(a.tickersFlag), nil
	}
	tickers, err := a.store.ListTickers(ctx, a.catalogTypes())
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no assets in store; run -mode catalog first or pass -tickers")
	}
	return tickers, nil
}

func (a *app) runBackfill(ctx context.Context) error {
	tickers, err := a.resolveTickers(ctx)
	if err != nil {
		return err
	}
	stats, err := a.seriesService().Backfill(ctx, tickers)
	printJSON(stats)
	return err
}

func (a *app) runUpdate(ctx context.Context) error {
	tickers, err := a.resolveTickers(ctx)
	if err != nil {
		return err
	}
	stats, err := a.seriesService().UpdateLatest(ctx, tickers)
	printJSON(stats)
	return err
}

func (a *app) runEnrich(ctx context.Context) error {
	tickers, err := a.resolveTickers(ctx)
	if err != nil {
		return err
	}
	svc := a.seriesService()
	for _, ticker := range tickers {
		result, err := svc.FetchAndEnrich(ctx, ticker, a.rangeFlag, a.intervalFlag)
		if err != nil {
			a.logger.Error("enrich failed", "ticker", ticker, "error", err)
			continue
		}
		printJSON(result)
	}
	return ctx.Err()
}

// runProbe asks every availability endpoint what the provider can serve.
func (a *app) runProbe(ctx context.Context) error {
	probes := []struct {
		name string
		call func(context.Context, string) ([]byte, bool, error)
	}{
		{"available", a.reader.Available},
		{"crypto_available", a.reader.CryptoAvailable},
		{"currency_available", a.reader.CurrencyAvailable},
		{"inflation_available", a.reader.InflationAvailable},
		{"prime_rate_available", a.reader.PrimeRateAvailable},
	}
	for _, p := range probes {
		payload, cached, err := p.call(ctx, "")
		if err != nil {
			a.logger.Error("probe failed", "endpoint", p.name, "error", err)
			continue
		}
		a.logger.Info("probe ok", "endpoint", p.name, "cached", cached, "bytes", len(payload))
	}
	return ctx.Err()
}

// runDaemon schedules the recurring jobs and blocks until shutdown.
func (a *app) runDaemon(ctx context.Context) error {
	scheduler := cron.New(cron.WithSeconds())

	_, err := scheduler.AddFunc(a.cfg.Daemon.CatalogCron, func() {
		if err := a.runCatalog(ctx); err != nil {
			a.logger.Error("scheduled catalog sync failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule catalog job: %w", err)
	}

	_, err = scheduler.AddFunc(a.cfg.Daemon.UpdateCron, func() {
		if err := a.runUpdate(ctx); err != nil {
			a.logger.Error("scheduled update failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule update job: %w", err)
	}

	scheduler.Start()
	a.logger.Info("daemon running",
		"catalog_cron", a.cfg.Daemon.CatalogCron,
		"update_cron", a.cfg.Daemon.UpdateCron,
	)

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		a.logger.Warn("daemon stop timed out")
	}
	a.logger.Info("daemon stopped")
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Println(string(b))
}
