package upstream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lcamargo/brmarket-data/internal/ratelimit"
)

// Plan tiers. The free plan forbids batched multi-ticker quotes and the
// fundamental/modules parameters.
const (
	PlanFree = "free"
	PlanPaid = "paid"
)

// Client provides access to the upstream market data REST API.
type Client struct {
	baseURL    string
	token      string
	plan       string
	httpClient *http.Client
	logger     *slog.Logger
	limits     *ratelimit.Registry

	maxAttempts    int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new upstream API client. token may be empty; only
// token-gated endpoints will then fail, with ErrMissingToken.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: trimBaseURL(baseURL),
		token:   token,
		plan:    PlanFree,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:         slog.Default(),
		limits:         ratelimit.NewRegistry(nil, ratelimit.DefaultBudget),
		maxAttempts:    4,
		retryBaseDelay: 500 * time.Millisecond,
		retryMaxDelay:  5 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func trimBaseURL(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets the attempt ceiling and backoff bounds.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithPlan sets the active plan tier.
func WithPlan(plan string) ClientOption {
	return func(c *Client) {
		if plan != "" {
			c.plan = plan
		}
	}
}

// WithRateLimiter sets the shared per-resource rate limiter registry.
func WithRateLimiter(reg *ratelimit.Registry) ClientOption {
	return func(c *Client) {
		if reg != nil {
			c.limits = reg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// PlanFree reports whether the client operates under the free plan.
func (c *Client) PlanFree() bool {
	return c.plan == PlanFree
}
