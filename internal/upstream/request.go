package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// ErrMissingToken signals that a token-gated endpoint was called without a
// configured credential. This is a configuration error, never retried.
var ErrMissingToken = errors.New("upstream: api token not configured for this endpoint")

// APIError represents a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsNotFound reports whether err is a terminal 404 from the upstream,
// which batch callers treat as skip-and-continue, not failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401/403 plan-restriction or
// authorization rejection.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// StatusOf extracts the HTTP status from err, or 0 when the failure never
// produced a response.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// doRequest performs a single HTTP GET against the upstream.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with a rate-limiter permit per attempt and
// exponential backoff with jitter between attempts. Transport failures and
// retryable statuses are retried up to the attempt ceiling; everything else
// is terminal.
func (c *Client) doWithRetry(ctx context.Context, resource, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBaseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			// Jitter: backoff * (0.5 to 1.5), capped.
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			if jitter > c.retryMaxDelay {
				jitter = c.retryMaxDelay
			}
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
			if backoff > c.retryMaxDelay {
				backoff = c.retryMaxDelay
			}
		}

		if err := c.limits.Acquire(ctx, resource); err != nil {
			return nil, err
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.IsRetryable() {
				return nil, err
			}
		}
		// Non-APIError failures are transport-level and retryable.
	}

	return nil, fmt.Errorf("max attempts exceeded: %w", lastErr)
}

// rawCapturer lets response types keep the raw payload alongside the
// decoded form, so callers can cache or audit the exact upstream bytes.
type rawCapturer interface {
	SetRaw([]byte)
}

// payload is embedded by response types to capture the raw body.
type payload struct {
	raw []byte
}

// SetRaw stores the exact upstream response body.
func (p *payload) SetRaw(b []byte) { p.raw = b }

// Raw returns the exact upstream response body.
func (p *payload) Raw() []byte { return p.raw }

// get performs a rate-limited GET with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, resource, path string, query url.Values, requireToken bool, result any) error {
	if requireToken && c.token == "" {
		return ErrMissingToken
	}

	body, err := c.doWithRetry(ctx, resource, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rc, ok := result.(rawCapturer); ok {
		rc.SetRaw(body)
	}

	return nil
}
