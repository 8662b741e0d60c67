package upstream

import (
	"context"
	"fmt"
	"net/url"
)

// Inflation fetches the inflation series for a country.
func (c *Client) Inflation(ctx context.Context, country string) (*InflationResponse, error) {
	query := url.Values{}
	query.Set("country", country)

	var resp InflationResponse
	if err := c.get(ctx, "macro", "/api/v2/inflation", query, false, &resp); err != nil {
		return nil, fmt.Errorf("get inflation: %w", err)
	}
	return &resp, nil
}

// PrimeRate fetches the prime rate (SELIC) series for a country.
func (c *Client) PrimeRate(ctx context.Context, country string) (*PrimeRateResponse, error) {
	query := url.Values{}
	query.Set("country", country)

	var resp PrimeRateResponse
	if err := c.get(ctx, "macro", "/api/v2/prime-rate", query, false, &resp); err != nil {
		return nil, fmt.Errorf("get prime rate: %w", err)
	}
	return &resp, nil
}
