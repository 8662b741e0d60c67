// Package catalog walks the provider's paginated asset listing and
// reconciles it with the assets table. Listing data is sparse, so known
// fields are merged into existing rows without erasing anything already
// learned, and thin rows are optionally enriched with a detail lookup.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lcamargo/brmarket-data/internal/audit"
	"github.com/lcamargo/brmarket-data/internal/model"
	"github.com/lcamargo/brmarket-data/internal/upstream"
)

// Lister is the slice of the upstream client the synchronizer needs.
type Lister interface {
	QuoteList(ctx context.Context, opts upstream.ListOptions) (*upstream.ListResponse, error)
	Quote(ctx context.Context, tickers []string, opts upstream.QuoteOptions) (*upstream.QuoteResponse, error)
}

// AssetStore persists reconciled assets.
type AssetStore interface {
	GetAsset(ctx context.Context, ticker string) (model.Asset, bool, error)
	UpsertAsset(ctx context.Context, a model.Asset) (inserted bool, err error)
}

// Synchronizer drives one catalog sync run.
type Synchronizer struct {
	client Lister
	store  AssetStore
	logger *slog.Logger
	sink   audit.Sink

	pageSize       int
	types          []string
	skipEnrichment bool
	throttleWait   time.Duration

	runID uuid.UUID
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithTypes sets the asset types to walk. Each type gets its own page walk.
func WithTypes(types []string) Option {
	return func(s *Synchronizer) { s.types = types }
}

// WithSkipEnrichment disables the per-asset detail lookup.
func WithSkipEnrichment(skip bool) Option {
	return func(s *Synchronizer) { s.skipEnrichment = skip }
}

// WithThrottleWait sets how long to wait before retrying a page that was
// rejected with 429.
func WithThrottleWait(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.throttleWait = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithAuditSink mirrors every upstream call of the run to the sink.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Synchronizer) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// New creates a Synchronizer.
func New(client Lister, store AssetStore, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		client:       client,
		store:        store,
		logger:       slog.Default(),
		sink:         audit.Nop(),
		pageSize:     100,
		types:        []string{"stock", "fund", "bdr"},
		throttleWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync walks every configured asset type page by page in order. Pages
// rejected with 429 are retried in place after a pause; any other
// upstream error aborts the run, keeping the progress committed so far.
func (s *Synchronizer) Sync(ctx context.Context) (model.CatalogStats, error) {
	runID := uuid.New()
	s.runID = runID
	start := time.Now()
	var stats model.CatalogStats

	s.logger.Info("catalog sync started",
		"run_id", runID,
		"types", s.types,
		"page_size", s.pageSize,
	)

	for _, assetType := range s.types {
		if err := s.syncType(ctx, assetType, &stats); err != nil {
			s.logger.Error("catalog sync aborted",
				"run_id", runID,
				"type", assetType,
				"error", err,
				"stats", stats,
			)
			return stats, fmt.Errorf("sync type %s: %w", assetType, err)
		}
	}

	s.logger.Info("catalog sync complete",
		"run_id", runID,
		"processed", stats.Processed,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"errors", stats.Errors,
		"pages", stats.Pages,
		"duration", time.Since(start),
	)
	return stats, nil
}

func (s *Synchronizer) syncType(ctx context.Context, assetType string, stats *model.CatalogStats) error {
	page := 1
	for {
		resp, err := s.fetchPage(ctx, assetType, page)
		if err != nil {
			return err
		}
		stats.Pages++

		entries := resp.Entries()
		for _, entry := range entries {
			s.reconcile(ctx, entry, assetType, stats)
		}

		// An empty page means the walk is done even when the provider
		// claims more pages exist.
		if len(entries) == 0 || !resp.HasMore() {
			return nil
		}
		page++
	}
}

// fetchPage requests one listing page, waiting out 429 responses and
// retrying the same page until it succeeds or the context ends. Every
// attempt is mirrored to the audit sink.
func (s *Synchronizer) fetchPage(ctx context.Context, assetType string, page int) (*upstream.ListResponse, error) {
	for {
		resp, err := s.client.QuoteList(ctx, upstream.ListOptions{
			Type:     assetType,
			Page:     page,
			PageSize: s.pageSize,
		})
		s.recordPage(ctx, assetType, page, resp, err)
		if err == nil {
			return resp, nil
		}
		if upstream.StatusOf(err) != 429 {
			return nil, err
		}

		s.logger.Warn("listing page throttled, waiting",
			"type", assetType,
			"page", page,
			"wait", s.throttleWait,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.throttleWait):
		}
	}
}

// reconcile merges one listing entry into the assets table. Store
// failures are isolated to the record: counted, logged and skipped so
// one bad row never aborts the walk.
func (s *Synchronizer) reconcile(ctx context.Context, entry upstream.ListEntry, assetType string, stats *model.CatalogStats) {
	ticker := model.NormalizeTicker(entry.Symbol)
	if ticker == "" {
		return
	}
	stats.Processed++

	candidate := assetFromEntry(entry, ticker, assetType)

	existing, found, err := s.store.GetAsset(ctx, ticker)
	if err != nil {
		stats.Errors++
		s.logger.Error("asset load failed", "ticker", ticker, "error", err)
		return
	}

	asset := existing
	if !found {
		asset = model.Asset{Ticker: ticker}
	}
	changed := asset.Merge(candidate)

	if found && !changed {
		return
	}

	if !s.skipEnrichment && asset.NeedsEnrichment() {
		s.enrich(ctx, &asset, stats)
	}

	inserted, err := s.store.UpsertAsset(ctx, asset)
	if err != nil {
		stats.Errors++
		s.logger.Error("asset upsert failed", "ticker", ticker, "error", err)
		return
	}
	if inserted {
		stats.Inserted++
	} else {
		stats.Updated++
	}
}

func assetFromEntry(entry upstream.ListEntry, ticker, requestedType string) model.Asset {
	a := model.Asset{
		Ticker: ticker,
		Type:   model.NormalizeAssetType(requestedType),
		Raw:    entry.Raw,
	}
	if entry.Item == nil {
		return a
	}
	a.Name = entry.Item.DisplayName()
	a.Sector = entry.Item.SectorName()
	a.ISIN = entry.Item.ISIN
	a.LogoURL = entry.Item.Logo()
	if entry.Item.Type != "" {
		a.Type = model.NormalizeAssetType(entry.Item.Type)
	}
	return a
}

// enrich fills missing fields from a detail lookup. Enrichment failures
// are counted but never abort the run.
func (s *Synchronizer) enrich(ctx context.Context, asset *model.Asset, stats *model.CatalogStats) {
	resp, err := s.client.Quote(ctx, []string{asset.Ticker}, upstream.QuoteOptions{})
	s.recordQuote(ctx, asset.Ticker, resp, err)
	if err != nil {
		stats.Errors++
		s.logger.Warn("asset enrichment failed",
			"ticker", asset.Ticker,
			"error", err,
		)
		return
	}
	if len(resp.Results) == 0 {
		return
	}

	q := resp.Results[0]
	asset.Merge(model.Asset{
		Ticker:  asset.Ticker,
		Name:    q.Name(),
		Type:    model.NormalizeAssetType(q.Type),
		Sector:  q.Sector,
		ISIN:    q.Isin(),
		LogoURL: q.Logo(),
	})
}

// recordPage mirrors one listing page fetch to the audit sink.
func (s *Synchronizer) recordPage(ctx context.Context, assetType string, page int, resp *upstream.ListResponse, err error) {
	rec := model.AuditRecord{
		RunID:    s.runID,
		Endpoint: "quote_list",
	}
	params, merr := json.Marshal(map[string]string{
		"type":     assetType,
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(s.pageSize),
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

// recordQuote mirrors one enrichment detail lookup to the audit sink.
func (s *Synchronizer) recordQuote(ctx context.Context, ticker string, resp *upstream.QuoteResponse, err error) {
	rec := model.AuditRecord{
		RunID:    s.runID,
		Endpoint: "quote",
		Tickers:  ticker,
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
