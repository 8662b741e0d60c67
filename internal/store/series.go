package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lcamargo/brmarket-data/internal/model"
)

// UpsertBars writes OHLCV bars keyed on (ticker, date). Existing rows
// are overwritten so corrected history from upstream wins.
func (s *Store) UpsertBars(ctx context.Context, bars []model.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(`
			INSERT INTO quote_ohlcv (ticker, date, open, high, low, close, volume, adj_close, raw)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (ticker, date) DO UPDATE SET
				open      = EXCLUDED.open,
				high      = EXCLUDED.high,
				low       = EXCLUDED.low,
				close     = EXCLUDED.close,
				volume    = EXCLUDED.volume,
				adj_close = EXCLUDED.adj_close,
				raw       = EXCLUDED.raw
		`, b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.AdjClose, b.Raw)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var written int64
	for range bars {
		ct, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert bars: %w", err)
		}
		written += ct.RowsAffected()
	}
	return written, nil
}

// UpsertDividends writes dividend rows keyed on (ticker, ex_date).
func (s *Store) UpsertDividends(ctx context.Context, divs []model.Dividend) (int64, error) {
	if len(divs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, d := range divs {
		batch.Queue(`
			INSERT INTO dividends (ticker, ex_date, payment_date, amount, currency, type, raw)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (ticker, ex_date) DO UPDATE SET
				payment_date = EXCLUDED.payment_date,
				amount       = EXCLUDED.amount,
				currency     = EXCLUDED.currency,
				type         = EXCLUDED.type,
				raw          = EXCLUDED.raw
		`, d.Ticker, d.ExDate, d.PaymentDate, d.Amount, d.Currency, d.Type, d.Raw)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var written int64
	for range divs {
		ct, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert dividends: %w", err)
		}
		written += ct.RowsAffected()
	}
	return written, nil
}

// UpsertFinancialsTTM replaces the trailing-twelve-month financials
// document for one ticker.
func (s *Store) UpsertFinancialsTTM(ctx context.Context, f model.FinancialsTTM) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO financials_ttm (ticker, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ticker) DO UPDATE SET
			data       = EXCLUDED.data,
			updated_at = now()
	`, f.Ticker, f.Data)
	if err != nil {
		return fmt.Errorf("upsert financials %s: %w", f.Ticker, err)
	}
	return nil
}
