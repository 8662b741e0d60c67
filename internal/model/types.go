package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Catalog Types
// -----------------------------------------------------------------------------

// Asset is a catalog entry for a tradeable instrument.
type Asset struct {
	Ticker    string          // Primary key, case-normalized upper (e.g., "PETR4")
	Name      string          // Display name
	Type      string          // Canonical class: stock|fund|bdr|etf|index
	Sector    string          // Economic sector
	Segment   string          // Detailed segment
	ISIN      string          // ISIN code
	LogoURL   string          // Logo URL
	Raw       json.RawMessage // Raw provider payload snapshot
	CreatedAt time.Time       // First sighting
	UpdatedAt time.Time       // Last sync pass that touched the row
}

// Merge fills a's empty fields from in and overwrites populated fields when
// in supplies a non-empty value. A populated field is never blanked by an
// empty incoming value. Returns true if any field changed.
func (a *Asset) Merge(in Asset) bool {
	changed := false
	set := func(dst *string, src string) {
		if src != "" && *dst != src {
			*dst = src
			changed = true
		}
	}
	set(&a.Name, in.Name)
	set(&a.Type, in.Type)
	set(&a.Sector, in.Sector)
	set(&a.Segment, in.Segment)
	set(&a.ISIN, in.ISIN)
	set(&a.LogoURL, in.LogoURL)
	if len(in.Raw) > 0 && string(in.Raw) != string(a.Raw) {
		a.Raw = in.Raw
		changed = true
	}
	return changed
}

// NeedsEnrichment reports whether the asset is too thin to be useful and
// should get a follow-up detail call during catalog sync.
func (a *Asset) NeedsEnrichment() bool {
	if a.Name == "" {
		return true
	}
	return a.Sector == "" && a.LogoURL == ""
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Bar is one OHLCV candle, unique per (ticker, trading date).
type Bar struct {
	Ticker   string    // Asset ticker
	Date     time.Time // Trading date (midnight UTC)
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	Volume   *float64
	AdjClose *float64
	Raw      json.RawMessage // Raw provider point
}

// Dividend is one cash event, unique per (ticker, ex-date).
type Dividend struct {
	Ticker      string    // Asset ticker
	ExDate      time.Time // Ex-dividend date (midnight UTC)
	PaymentDate *time.Time
	Amount      *float64
	Currency    string
	Type        string // dividend | jcp | ...
	Raw         json.RawMessage
}

// FinancialsTTM holds the latest trailing-twelve-month financial payload for
// a ticker. Single current-state row, overwritten wholesale on refresh.
type FinancialsTTM struct {
	Ticker    string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// -----------------------------------------------------------------------------
// Observability Types
// -----------------------------------------------------------------------------

// AuditRecord captures one upstream interaction. Append-only.
type AuditRecord struct {
	RunID      uuid.UUID       // Groups records belonging to one sync run
	Endpoint   string          // Logical endpoint name (quote, quote_list, ...)
	Tickers    string          // Comma-joined subject tickers, if any
	Params     json.RawMessage // Request parameters
	Cached     bool            // Served from cache
	StatusCode int             // HTTP status (or 0 for transport failure)
	Error      string          // Error text, empty on success
	Response   []byte          // Truncated response body
	CreatedAt  time.Time
}

// MaxAuditResponseBytes bounds the response snapshot stored per audit record.
const MaxAuditResponseBytes = 4096

// TruncateResponse clips a response body for audit storage.
func TruncateResponse(body []byte) []byte {
	if len(body) <= MaxAuditResponseBytes {
		return body
	}
	return body[:MaxAuditResponseBytes]
}

// -----------------------------------------------------------------------------
// Sync Statistics
// -----------------------------------------------------------------------------

// CatalogStats summarizes one catalog synchronization run.
type CatalogStats struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
	Pages     int `json:"pages"`
}

// Add accumulates other into s.
func (s *CatalogStats) Add(other CatalogStats) {
	s.Processed += other.Processed
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Errors += other.Errors
	s.Pages += other.Pages
}

// SeriesStats summarizes one backfill or update run.
type SeriesStats struct {
	Processed      int `json:"processed"`
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	Errors         int `json:"errors"`
	TotalRequested int `json:"total_requested"`
}

// EnrichResult summarizes a single-ticker enrichment pass.
type EnrichResult struct {
	Symbol       string `json:"symbol"`
	BarsUpserted int    `json:"ohlcv_rows_upserted"`
	Dividends    int    `json:"dividends_rows_upserted"`
	TTMUpdated   bool   `json:"ttm_updated"`
}
