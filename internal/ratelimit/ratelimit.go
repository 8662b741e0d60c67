// Package ratelimit provides per-resource request budgets for upstream calls.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Budget is one resource class's request budget.
type Budget struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultBudget keeps the free upstream plan safe: ~3 req/s, burst 1.
var DefaultBudget = Budget{RequestsPerSecond: 3, Burst: 1}

// Registry hands out one independent token bucket per named resource class
// so a slow macro endpoint cannot starve quote fetches. Buckets are created
// on first use and shared by all concurrent callers.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	budgets  map[string]Budget
	fallback Budget
}

// NewRegistry creates a Registry. budgets maps resource names to explicit
// budgets; resources not listed get the fallback.
func NewRegistry(budgets map[string]Budget, fallback Budget) *Registry {
	if fallback.RequestsPerSecond <= 0 {
		fallback = DefaultBudget
	}
	if fallback.Burst <= 0 {
		fallback.Burst = 1
	}
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		budgets:  budgets,
		fallback: fallback,
	}
}

// Acquire blocks until a token is available for the resource's bucket.
// It only fails when ctx is cancelled.
func (r *Registry) Acquire(ctx context.Context, resource string) error {
	return r.limiter(resource).Wait(ctx)
}

// limiter returns (creating if needed) the bucket for a resource.
func (r *Registry) limiter(resource string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[resource]; ok {
		return l
	}

	b := r.fallback
	if explicit, ok := r.budgets[resource]; ok {
		if explicit.RequestsPerSecond > 0 {
			b.RequestsPerSecond = explicit.RequestsPerSecond
		}
		if explicit.Burst > 0 {
			b.Burst = explicit.Burst
		}
	}

	l := rate.NewLimiter(rate.Limit(b.RequestsPerSecond), b.Burst)
	r.limiters[resource] = l
	return l
}
