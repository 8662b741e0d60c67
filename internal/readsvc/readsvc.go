// Package readsvc serves raw provider payloads through the cache. Every
// read, hit or miss, is mirrored to the audit sink with its outcome, so
// the api_calls trail shows exactly what upstream traffic a consumer
// generated.
package readsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lcamargo/brmarket-data/internal/audit"
	"github.com/lcamargo/brmarket-data/internal/cache"
	"github.com/lcamargo/brmarket-data/internal/model"
	"github.com/lcamargo/brmarket-data/internal/upstream"
)

// Fetcher is the slice of the upstream client the read service needs.
type Fetcher interface {
	Quote(ctx context.Context, tickers []string, opts upstream.QuoteOptions) (*upstream.QuoteResponse, error)
	Crypto(ctx context.Context, coins []string, currency string) (*upstream.CryptoResponse, error)
	Currency(ctx context.Context, pairs []string) (*upstream.CurrencyResponse, error)
	Inflation(ctx context.Context, country string) (*upstream.InflationResponse, error)
	PrimeRate(ctx context.Context, country string) (*upstream.PrimeRateResponse, error)
	Available(ctx context.Context, search string) (*upstream.AvailableResponse, error)
	CryptoAvailable(ctx context.Context, search string) (*upstream.AvailableResponse, error)
	CurrencyAvailable(ctx context.Context, search string) (*upstream.AvailableResponse, error)
	InflationAvailable(ctx context.Context, search string) (*upstream.AvailableResponse, error)
	PrimeRateAvailable(ctx context.Context, search string) (*upstream.AvailableResponse, error)
}

// TTLs carries the per-endpoint cache lifetimes.
type TTLs struct {
	Quote    time.Duration
	Crypto   time.Duration
	Currency time.Duration
	Macro    time.Duration
	Listing  time.Duration
}

// DefaultTTLs mirror the config defaults.
var DefaultTTLs = TTLs{
	Quote:    30 * time.Minute,
	Crypto:   time.Hour,
	Currency: time.Hour,
	Macro:    24 * time.Hour,
	Listing:  24 * time.Hour,
}

// Service is the cache-through payload reader.
type Service struct {
	client Fetcher
	cache  *cache.Cache
	sink   audit.Sink
	ttls   TTLs
	logger *slog.Logger
	runID  uuid.UUID
}

// New creates a Service. A nil sink disables audit mirroring.
func New(client Fetcher, c *cache.Cache, sink audit.Sink, ttls TTLs, logger *slog.Logger) *Service {
	if sink == nil {
		sink = audit.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttls == (TTLs{}) {
		ttls = DefaultTTLs
	}
	return &Service{
		client: client,
		cache:  c,
		sink:   sink,
		ttls:   ttls,
		logger: logger,
		runID:  uuid.New(),
	}
}

type rawResponse interface {
	Raw() []byte
}

// read resolves one endpoint through the cache and mirrors the outcome.
func (s *Service) read(ctx context.Context, endpoint, subject string, params map[string]string, ttl time.Duration, fetch func(ctx context.Context) (rawResponse, error)) ([]byte, bool, error) {
	key := cache.Key(endpoint, subject, params)

	payload, cached, err := s.cache.GetOrFetch(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		resp, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Raw(), nil
	})

	rec := model.AuditRecord{
		RunID:    s.runID,
		Endpoint: endpoint,
		Tickers:  subject,
		Cached:   cached,
	}
	if p, merr := json.Marshal(params); merr == nil {
		rec.Params = p
	}
	if err != nil {
		rec.StatusCode = upstream.StatusOf(err)
		rec.Error = err.Error()
	} else {
		rec.StatusCode = 200
		rec.Response = model.TruncateResponse(payload)
	}
	s.sink.Record(ctx, rec)

	return payload, cached, err
}

// Quote returns the raw quote payload for the given tickers.
func (s *Service) Quote(ctx context.Context, tickers []string, opts upstream.QuoteOptions) ([]byte, bool, error) {
	subject := strings.Join(normalizeAll(tickers), ",")
	params := map[string]string{}
	if opts.Range != "" {
		params["range"] = opts.Range
	}
	if opts.Interval != "" {
		params["interval"] = opts.Interval
	}
	if opts.Dividends {
		params["dividends"] = "true"
	}
	if opts.Fundamental {
		params["fundamental"] = "true"
	}
	if len(opts.Modules) > 0 {
		params["modules"] = strings.Join(opts.Modules, ",")
	}
	return s.read(ctx, "quote", subject, params, s.ttls.Quote, func(ctx context.Context) (rawResponse, error) {
		return s.client.Quote(ctx, tickers, opts)
	})
}

// Crypto returns the raw crypto payload for the given coins.
func (s *Service) Crypto(ctx context.Context, coins []string, currency string) ([]byte, bool, error) {
	subject := strings.Join(normalizeAll(coins), ",")
	params := map[string]string{"currency": currency}
	return s.read(ctx, "crypto", subject, params, s.ttls.Crypto, func(ctx context.Context) (rawResponse, error) {
		return s.client.Crypto(ctx, coins, currency)
	})
}

// Currency returns the raw payload for the given currency pairs.
func (s *Service) Currency(ctx context.Context, pairs []string) ([]byte, bool, error) {
	subject := strings.Join(normalizeAll(pairs), ",")
	return s.read(ctx, "currency", subject, nil, s.ttls.Currency, func(ctx context.Context) (rawResponse, error) {
		return s.client.Currency(ctx, pairs)
	})
}

// Inflation returns the raw inflation series for a country.
func (s *Service) Inflation(ctx context.Context, country string) ([]byte, bool, error) {
	return s.read(ctx, "inflation", country, nil, s.ttls.Macro, func(ctx context.Context) (rawResponse, error) {
		return s.client.Inflation(ctx, country)
	})
}

// PrimeRate returns the raw prime-rate series for a country.
func (s *Service) PrimeRate(ctx context.Context, country string) ([]byte, bool, error) {
	return s.read(ctx, "prime_rate", country, nil, s.ttls.Macro, func(ctx context.Context) (rawResponse, error) {
		return s.client.PrimeRate(ctx, country)
	})
}

// Available returns what the provider can serve, per probe endpoint.
func (s *Service) Available(ctx context.Context, search string) ([]byte, bool, error) {
	return s.probe(ctx, "available", search, s.client.Available)
}

func (s *Service) CryptoAvailable(ctx context.Context, search string) ([]byte, bool, error) {
	return s.probe(ctx, "crypto_available", search, s.client.CryptoAvailable)
}

func (s *Service) CurrencyAvailable(ctx context.Context, search string) ([]byte, bool, error) {
	return s.probe(ctx, "currency_available", search, s.client.CurrencyAvailable)
}

func (s *Service) InflationAvailable(ctx context.Context, search string) ([]byte, bool, error) {
	return s.probe(ctx, "inflation_available", search, s.client.InflationAvailable)
}

func (s *Service) PrimeRateAvailable(ctx context.Context, search string) ([]byte, bool, error) {
	return s.probe(ctx, "prime_rate_available", search, s.client.PrimeRateAvailable)
}

func (s *Service) probe(ctx context.Context, endpoint, search string, call func(context.Context, string) (*upstream.AvailableResponse, error)) ([]byte, bool, error) {
	var params map[string]string
	if search != "" {
		params = map[string]string{"search": search}
	}
	return s.read(ctx, endpoint, "", params, s.ttls.Listing, func(ctx context.Context) (rawResponse, error) {
		return call(ctx, search)
	})
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := model.NormalizeTicker(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
