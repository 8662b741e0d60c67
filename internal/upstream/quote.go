package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/lcamargo/brmarket-data/internal/model"
)

// QuoteOptions configures a quote request.
type QuoteOptions struct {
	Range       string
	Interval    string
	Dividends   bool
	Fundamental bool
	Modules     []string
}

// buildQuoteQuery translates options into query parameters, applying plan
// tier restrictions: the free plan never sends fundamental/modules.
func (c *Client) buildQuoteQuery(opts QuoteOptions) url.Values {
	query := url.Values{}
	if opts.Range != "" {
		query.Set("range", opts.Range)
	}
	if opts.Interval != "" {
		query.Set("interval", opts.Interval)
	}
	if opts.Dividends {
		query.Set("dividends", "true")
	}
	if !c.PlanFree() {
		if opts.Fundamental {
			query.Set("fundamental", "true")
		}
		if len(opts.Modules) > 0 {
			query.Set("modules", strings.Join(opts.Modules, ","))
		}
	}
	return query
}

// Quote fetches quotes for one or more tickers. Under the free plan batch
// requests are forbidden, so multi-ticker calls fan out one request per
// ticker and the responses are merged: entity arrays concatenate in input
// order and the first-seen value wins for shared metadata keys.
func (c *Client) Quote(ctx context.Context, tickers []string, opts QuoteOptions) (*QuoteResponse, error) {
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if nt := model.NormalizeTicker(t); nt != "" {
			normalized = append(normalized, nt)
		}
	}
	if len(normalized) == 0 {
		return &QuoteResponse{}, nil
	}

	query := c.buildQuoteQuery(opts)

	if !c.PlanFree() || len(normalized) == 1 {
		return c.fetchQuote(ctx, strings.Join(normalized, ","), query)
	}

	// Free plan: one ticker per request, merged.
	merged := &QuoteResponse{}
	for _, ticker := range normalized {
		resp, err := c.fetchQuote(ctx, ticker, query)
		if err != nil {
			return nil, err
		}
		merged.Results = append(merged.Results, resp.Results...)
		if merged.RequestedAt == "" {
			merged.RequestedAt = resp.RequestedAt
		}
		if merged.UsedRange == "" {
			merged.UsedRange = resp.UsedRange
		}
		if merged.UsedInterval == "" {
			merged.UsedInterval = resp.UsedInterval
		}
		if merged.Took == "" {
			merged.Took = resp.Took
		}
	}
	return merged, nil
}

func (c *Client) fetchQuote(ctx context.Context, tickers string, query url.Values) (*QuoteResponse, error) {
	var resp QuoteResponse
	if err := c.get(ctx, "quote", "/api/quote/"+tickers, query, false, &resp); err != nil {
		return nil, fmt.Errorf("get quote %s: %w", tickers, err)
	}
	return &resp, nil
}
