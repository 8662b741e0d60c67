package store

import (
	"context"
	"fmt"

	"github.com/lcamargo/brmarket-data/internal/audit"
	"github.com/lcamargo/brmarket-data/internal/model"
)

// InsertAuditRecord appends one row to the api_calls trail.
func (s *Store) InsertAuditRecord(ctx context.Context, rec model.AuditRecord) error {
	rec.Response = model.TruncateResponse(rec.Response)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_calls (run_id, endpoint, tickers, params, cached, status_code, error, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, rec.RunID, rec.Endpoint, rec.Tickers, rec.Params, rec.Cached, rec.StatusCode, rec.Error, rec.Response)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// AuditSink returns an audit.Sink backed by the api_calls table. Insert
// failures are logged and swallowed so observability never takes down a
// sync run.
func (s *Store) AuditSink() audit.Sink {
	return audit.SinkFunc(func(ctx context.Context, rec model.AuditRecord) {
		if err := s.InsertAuditRecord(ctx, rec); err != nil {
			s.logger.Warn("audit record dropped", "endpoint", rec.Endpoint, "error", err)
		}
	})
}
