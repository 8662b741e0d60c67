// Package store persists assets, OHLCV bars, dividends, trailing
// financials and the API audit trail in PostgreSQL. Writes are upserts
// keyed on the natural identity of each row, so every sync operation is
// safe to re-run.
package store
