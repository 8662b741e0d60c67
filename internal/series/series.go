// Package series fetches historical price data from the provider and
// keeps the OHLCV, dividend and trailing-financials tables current.
// Tickers are processed concurrently with a bounded worker count and a
// short per-ticker retry, so one bad symbol never sinks a run.
package series

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lcamargo/brmarket-data/internal/audit"
	"github.com/lcamargo/brmarket-data/internal/model"
	"github.com/lcamargo/brmarket-data/internal/upstream"
)

// Quoter is the slice of the upstream client the service needs.
type Quoter interface {
	Quote(ctx context.Context, tickers []string, opts upstream.QuoteOptions) (*upstream.QuoteResponse, error)
}

// SeriesStore persists fetched history.
type SeriesStore interface {
	UpsertBars(ctx context.Context, bars []model.Bar) (int64, error)
	UpsertDividends(ctx context.Context, divs []model.Dividend) (int64, error)
	UpsertFinancialsTTM(ctx context.Context, f model.FinancialsTTM) error
}

// Service drives historical data runs.
type Service struct {
	client Quoter
	store  SeriesStore
	logger *slog.Logger
	sink   audit.Sink

	concurrency     int
	defaultRange    string
	defaultInterval string

	attempts  int
	jitterMin time.Duration
	jitterMax time.Duration

	runID uuid.UUID
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds how many tickers are fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithWindow sets the default range and interval for backfills.
func WithWindow(rng, interval string) Option {
	return func(s *Service) {
		if rng != "" {
			s.defaultRange = rng
		}
		if interval != "" {
			s.defaultInterval = interval
		}
	}
}

// WithTickerRetry tunes the per-ticker retry loop.
func WithTickerRetry(attempts int, jitterMin, jitterMax time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if jitterMin > 0 {
			s.jitterMin = jitterMin
		}
		if jitterMax > jitterMin {
			s.jitterMax = jitterMax
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAuditSink mirrors every upstream call of a run to the sink.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// New creates a Service.
func New(client Quoter, store SeriesStore, opts ...Option) *Service {
	s := &Service{
		client:          client,
		store:           store,
		logger:          slog.Default(),
		sink:            audit.Nop(),
		concurrency:     3,
		defaultRange:    "3mo",
		defaultInterval: "1d",
		attempts:        3,
		jitterMin:       200 * time.Millisecond,
		jitterMax:       600 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backfill loads the configured window of history for every ticker.
func (s *Service) Backfill(ctx context.Context, tickers []string) (model.SeriesStats, error) {
	return s.run(ctx, tickers, s.defaultRange, s.defaultInterval)
}

// UpdateLatest refreshes the most recent sessions for every ticker.
// The short window overlaps already stored days, and the upserts make
// the overlap harmless.
func (s *Service) UpdateLatest(ctx context.Context, tickers []string) (model.SeriesStats, error) {
	return s.run(ctx, tickers, "5d", "1d")
}

func (s *Service) run(ctx context.Context, tickers []string, rng, interval string) (model.SeriesStats, error) {
	s.runID = uuid.New()
	start := time.Now()
	stats := model.SeriesStats{TotalRequested: len(tickers)}
	var mu sync.Mutex

	s.logger.Info("series run started",
		"tickers", len(tickers),
		"range", rng,
		"interval", interval,
		"concurrency", s.concurrency,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, raw := range tickers {
		ticker := model.NormalizeTicker(raw)
		if ticker == "" {
			continue
		}
		g.Go(func() error {
			written, err := s.syncTicker(gctx, ticker, rng, interval)

			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			switch {
			case err != nil:
				stats.Errors++
			case written > 0:
				stats.Inserted += int(written)
				stats.Updated++
			}
			return nil
		})
	}

	// Workers report failures through stats, not the group.
	_ = g.Wait()

	s.logger.Info("series run complete",
		"processed", stats.Processed,
		"rows", stats.Inserted,
		"tickers_written", stats.Updated,
		"errors", stats.Errors,
		"duration", time.Since(start),
	)
	return stats, ctx.Err()
}

// syncTicker fetches one ticker's history and upserts its bars. Unknown
// tickers are skipped without counting as failures.
func (s *Service) syncTicker(ctx context.Context, ticker, rng, interval string) (int64, error) {
	resp, err := s.fetchWithRetry(ctx, ticker, upstream.QuoteOptions{Range: rng, Interval: interval})
	s.recordFetch(ctx, ticker, rng, interval, resp, err)
	if err != nil {
		if upstream.IsNotFound(err) {
			s.logger.Info("ticker unknown upstream, skipping", "ticker", ticker)
			return 0, nil
		}
		s.logger.Error("ticker sync failed", "ticker", ticker, "error", err)
		return 0, err
	}
	if len(resp.Results) == 0 {
		return 0, nil
	}

	bars := barsFromResult(ticker, resp.Results[0])
	if len(bars) == 0 {
		return 0, nil
	}

	written, err := s.store.UpsertBars(ctx, bars)
	if err != nil {
		s.logger.Error("bar upsert failed", "ticker", ticker, "error", err)
		return written, err
	}
	return written, nil
}

// fetchWithRetry wraps the quote call with a small extra retry for the
// flaky tail the client's own retry budget did not absorb. Terminal
// statuses are returned immediately.
func (s *Service) fetchWithRetry(ctx context.Context, ticker string, opts upstream.QuoteOptions) (*upstream.QuoteResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		resp, err := s.client.Quote(ctx, []string{ticker}, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return nil, err
		}
		if attempt == s.attempts {
			break
		}

		wait := s.jitterMin + time.Duration(rand.Int63n(int64(s.jitterMax-s.jitterMin)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// recordFetch mirrors one ticker's history fetch outcome to the audit
// sink.
func (s *Service) recordFetch(ctx context.Context, ticker, rng, interval string, resp *upstream.QuoteResponse, err error) {
	rec := model.AuditRecord{
		RunID:    s.runID,
		Endpoint: "quote",
		Tickers:  ticker,
	}
	params, merr := json.Marshal(map[string]string{
		"range":    rng,
		"interval": interval,
	})
	if merr == nil {
		rec.Params = params
	}
	if err != nil {
		rec.StatusCode = upstream.StatusOf(err)
		rec.Error = err.Error()
	} else {
		rec.StatusCode = 200
		rec.Response = model.TruncateResponse(resp.Raw())
	}
	s.sink.Record(ctx, rec)
}

// barsFromResult converts historical points, dropping any with an
// unreadable date.
func barsFromResult(ticker string, q upstream.QuoteResult) []model.Bar {
	bars := make([]model.Bar, 0, len(q.HistoricalDataPrice))
	for _, p := range q.HistoricalDataPrice {
		ts, ok := model.ParseTimestamp(p.Date)
		if !ok {
			continue
		}
		bars = append(bars, model.Bar{
			Ticker:   ticker,
			Date:     model.TradingDate(ts),
			Open:     p.Open,
			High:     p.High,
			Low:      p.Low,
			Close:    p.Close,
			Volume:   p.Volume,
			AdjClose: p.AdjClose,
			Raw:      p.Raw,
		})
	}
	return bars
}
