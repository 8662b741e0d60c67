package store

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lcamargo/brmarket-data/internal/config"
)

// Store wraps the connection pool with the persistence operations the
// sync pipelines need.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Open connects to the database described by cfg and returns a Store.
func Open(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool, logger), nil
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
