package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// QuoteList fetches one page of the catalog listing. Token-gated.
func (c *Client) QuoteList(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	query := url.Values{}
	if opts.Type != "" {
		query.Set("type", opts.Type)
	}
	if opts.Sector != "" {
		query.Set("sector", opts.Sector)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.SortBy != "" {
		query.Set("sortBy", opts.SortBy)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(opts.PageSize))
	}

	var resp ListResponse
	if err := c.get(ctx, "quote_list", "/api/quote/list", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get quote list: %w", err)
	}
	return &resp, nil
}

// Available probes the plain ticker availability endpoint.
func (c *Client) Available(ctx context.Context, search string) (*AvailableResponse, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}

	var resp AvailableResponse
	if err := c.get(ctx, "available", "/api/available", query, false, &resp); err != nil {
		return nil, fmt.Errorf("get available: %w", err)
	}
	return &resp, nil
}
