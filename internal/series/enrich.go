package series

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lcamargo/brmarket-data/internal/model"
	"github.com/lcamargo/brmarket-data/internal/upstream"
)

// FetchAndEnrich pulls history, dividend events and trailing financials
// for one ticker in a single quote call and upserts everything. When the
// plan rejects the premium modules, the call is repeated once without
// them so price history still lands.
func (s *Service) FetchAndEnrich(ctx context.Context, ticker, rng, interval string) (model.EnrichResult, error) {
	s.runID = uuid.New()
	ticker = model.NormalizeTicker(ticker)
	result := model.EnrichResult{Symbol: ticker}
	if ticker == "" {
		return result, fmt.Errorf("empty ticker")
	}
	if rng == "" {
		rng = s.defaultRange
	}
	if interval == "" {
		interval = s.defaultInterval
	}

	opts := upstream.QuoteOptions{
		Range:       rng,
		Interval:    interval,
		Dividends:   true,
		Fundamental: true,
		Modules:     []string{"financialData"},
	}

	resp, err := s.fetchWithRetry(ctx, ticker, opts)
	s.recordFetch(ctx, ticker, rng, interval, resp, err)
	if upstream.IsUnauthorized(err) {
		s.logger.Warn("premium modules rejected, refetching without them", "ticker", ticker)
		opts.Fundamental = false
		opts.Modules = nil
		resp, err = s.fetchWithRetry(ctx, ticker, opts)
		s.recordFetch(ctx, ticker, rng, interval, resp, err)
	}
	if err != nil {
		return result, fmt.Errorf("enrich %s: %w", ticker, err)
	}
	if len(resp.Results) == 0 {
		return result, nil
	}
	q := resp.Results[0]

	bars := barsFromResult(ticker, q)
	if len(bars) > 0 {
		written, err := s.store.UpsertBars(ctx, bars)
		if err != nil {
			return result, fmt.Errorf("enrich %s: %w", ticker, err)
		}
		result.BarsUpserted = int(written)
	}

	divs := dividendsFromResult(ticker, q)
	if len(divs) > 0 {
		written, err := s.store.UpsertDividends(ctx, divs)
		if err != nil {
			return result, fmt.Errorf("enrich %s: %w", ticker, err)
		}
		result.Dividends = int(written)
	}

	if len(q.FinancialData) > 0 {
		err := s.store.UpsertFinancialsTTM(ctx, model.FinancialsTTM{
			Ticker: ticker,
			Data:   q.FinancialData,
		})
		if err != nil {
			return result, fmt.Errorf("enrich %s: %w", ticker, err)
		}
		result.TTMUpdated = true
	}

	s.logger.Info("ticker enriched",
		"ticker", ticker,
		"bars", result.BarsUpserted,
		"dividends", result.Dividends,
		"ttm", result.TTMUpdated,
	)
	return result, nil
}

// dividendsFromResult converts cash events, dropping any without a
// readable ex-date.
func dividendsFromResult(ticker string, q upstream.QuoteResult) []model.Dividend {
	if q.DividendsData == nil {
		return nil
	}
	divs := make([]model.Dividend, 0, len(q.DividendsData.CashDividends))
	for _, cd := range q.DividendsData.CashDividends {
		exDate, ok := model.ParseTimestamp(cd.LastDatePrior)
		if !ok {
			continue
		}
		var payment *time.Time
		if ts, ok := model.ParseTimestamp(cd.PaymentDate); ok {
			day := model.TradingDate(ts)
			payment = &day
		}
		divs = append(divs, model.Dividend{
			Ticker:      ticker,
			ExDate:      model.TradingDate(exDate),
			PaymentDate: payment,
			Amount:      cd.Rate,
			Type:        cd.Label,
			Raw:         cd.Raw,
		})
	}
	return divs
}
