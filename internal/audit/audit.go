// Package audit provides the append-only observability sink that mirrors
// every upstream interaction (success, cache hit, or failure).
package audit

import (
	"context"
	"sync"

	"github.com/lcamargo/brmarket-data/internal/model"
)

// Sink receives one record per upstream interaction. Implementations must
// be safe for concurrent use and must never fail the caller: recording is
// best-effort and errors are handled inside the sink.
type Sink interface {
	Record(ctx context.Context, rec model.AuditRecord)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(ctx context.Context, rec model.AuditRecord)

func (f SinkFunc) Record(ctx context.Context, rec model.AuditRecord) {
	f(ctx, rec)
}

// Nop discards all records.
func Nop() Sink {
	return SinkFunc(func(context.Context, model.AuditRecord) {})
}

// Memory collects records in memory. Used in tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	records []model.AuditRecord
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, rec model.AuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Records returns a copy of everything recorded so far.
func (m *Memory) Records() []model.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditRecord, len(m.records))
	copy(out, m.records)
	return out
}
