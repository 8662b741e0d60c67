// Package cache implements the read-through payload cache that sits
// between the read services and the upstream client. Entries are raw
// response bodies keyed by endpoint, subject and canonical parameters.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Store is the backing storage for cached payloads. Get reports a miss
// with ok=false; expired entries are misses.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// FetchFunc produces the payload on a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache wraps a Store with read-through semantics.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New creates a read-through cache over the given store.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// GetOrFetch returns the cached payload for key when present, otherwise
// invokes fetch and stores its result under key with the given ttl.
// The returned cached flag reports whether the payload came from the
// store. A failed fetch is returned as-is and nothing is cached, so the
// next caller retries upstream. Store errors degrade to misses: the
// cache never turns a healthy upstream into a failure.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (payload []byte, cached bool, err error) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		return value, true, nil
	}

	payload, err = fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return payload, false, nil
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}
