package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lcamargo/brmarket-data/internal/model"
)

// GetAsset loads one asset by ticker. The second return reports whether
// the asset exists.
func (s *Store) GetAsset(ctx context.Context, ticker string) (model.Asset, bool, error) {
	var a model.Asset
	err := s.pool.QueryRow(ctx, `
		SELECT ticker, name, type, sector, segment, isin, logo_url, raw, created_at, updated_at
		FROM assets
		WHERE ticker = $1
	`, model.NormalizeTicker(ticker)).Scan(
		&a.Ticker, &a.Name, &a.Type, &a.Sector, &a.Segment,
		&a.ISIN, &a.LogoURL, &a.Raw, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Asset{}, false, nil
	}
	if err != nil {
		return model.Asset{}, false, fmt.Errorf("get asset %s: %w", ticker, err)
	}
	return a, true, nil
}

// UpsertAsset inserts or updates one asset keyed on ticker. The inserted
// return is true for a brand new row and false for an update.
func (s *Store) UpsertAsset(ctx context.Context, a model.Asset) (inserted bool, err error) {
	// xmax = 0 only holds for rows created by this statement, which
	// distinguishes inserts from conflict updates in one round trip.
	err = s.pool.QueryRow(ctx, `
		INSERT INTO assets (ticker, name, type, sector, segment, isin, logo_url, raw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (ticker) DO UPDATE SET
			name       = EXCLUDED.name,
			type       = EXCLUDED.type,
			sector     = EXCLUDED.sector,
			segment    = EXCLUDED.segment,
			isin       = EXCLUDED.isin,
			logo_url   = EXCLUDED.logo_url,
			raw        = EXCLUDED.raw,
			updated_at = now()
		RETURNING (xmax = 0)
	`, a.Ticker, a.Name, a.Type, a.Sector, a.Segment, a.ISIN, a.LogoURL, a.Raw).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert asset %s: %w", a.Ticker, err)
	}
	return inserted, nil
}

// ListTickers returns the tickers of all known assets, optionally
// filtered by asset type, ordered alphabetically.
func (s *Store) ListTickers(ctx context.Context, types []string) ([]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(types) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT ticker FROM assets ORDER BY ticker`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT ticker FROM assets WHERE type = ANY($1) ORDER BY ticker`, types)
	}
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return tickers, nil
}
