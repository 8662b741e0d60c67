// Package model defines the persisted entities and sync statistics shared
// by the synchronizers, the storage layer, and the audit sink.
package model
