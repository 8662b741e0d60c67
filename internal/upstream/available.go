package upstream

import (
	"context"
	"fmt"
	"net/url"
)

// availabilityProbe hits one of the token-gated /available endpoints.
func (c *Client) availabilityProbe(ctx context.Context, resource, path, search string) (*AvailableResponse, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}

	var resp AvailableResponse
	if err := c.get(ctx, resource, path, query, true, &resp); err != nil {
		return nil, fmt.Errorf("get %s: %w", resource, err)
	}
	return &resp, nil
}

// CryptoAvailable probes supported crypto coins.
func (c *Client) CryptoAvailable(ctx context.Context, search string) (*AvailableResponse, error) {
	return c.availabilityProbe(ctx, "crypto_available", "/api/v2/crypto/available", search)
}

// CurrencyAvailable probes supported currency pairs.
func (c *Client) CurrencyAvailable(ctx context.Context, search string) (*AvailableResponse, error) {
	return c.availabilityProbe(ctx, "currency_available", "/api/v2/currency/available", search)
}

// InflationAvailable probes countries with inflation series.
func (c *Client) InflationAvailable(ctx context.Context, search string) (*AvailableResponse, error) {
	return c.availabilityProbe(ctx, "inflation_available", "/api/v2/inflation/available", search)
}

// PrimeRateAvailable probes countries with prime rate series.
func (c *Client) PrimeRateAvailable(ctx context.Context, search string) (*AvailableResponse, error) {
	return c.availabilityProbe(ctx, "prime_rate_available", "/api/v2/prime-rate/available", search)
}
