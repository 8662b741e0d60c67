// Package upstream implements the client for the brapi-style market data
// API: per-resource request builders layered on a retrying transport and a
// shared per-resource rate limiter.
//
// Error taxonomy: missing credentials for token-gated endpoints surface as
// ErrMissingToken before any network activity; transport failures and
// HTTP 429/500/502/503/504 are retried with exponential backoff and jitter
// up to the attempt ceiling; all other statuses are terminal and returned
// as *APIError immediately.
package upstream
