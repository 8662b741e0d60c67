package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Crypto fetches crypto quotes in the given fiat currency. Token-gated.
func (c *Client) Crypto(ctx context.Context, coins []string, currency string) (*CryptoResponse, error) {
	query := url.Values{}
	query.Set("coin", strings.Join(coins, ","))
	query.Set("currency", currency)

	var resp CryptoResponse
	if err := c.get(ctx, "crypto", "/api/v2/crypto", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get crypto: %w", err)
	}
	return &resp, nil
}

// Currency fetches conversion rates for currency pairs like "USD-BRL".
func (c *Client) Currency(ctx context.Context, pairs []string) (*CurrencyResponse, error) {
	query := url.Values{}
	query.Set("currency", strings.Join(pairs, ","))

	var resp CurrencyResponse
	if err := c.get(ctx, "currency", "/api/v2/currency", query, false, &resp); err != nil {
		return nil, fmt.Errorf("get currency: %w", err)
	}
	return &resp, nil
}
