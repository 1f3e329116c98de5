// Package store provides the substrate's on-disk persistence: an
// exclusive directory lock, atomic JSON file writes, and the sentinel
// error kinds every component maps onto.
package store

import "errors"

// Error kinds. Components wrap these with fmt.Errorf("...: %w", Err...)
// so callers can still errors.Is against the kind.
var (
	ErrNotFound           = errors.New("not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrPersistence        = errors.New("persistence failure")
	ErrCorruptState       = errors.New("corrupt on-disk state")
	ErrPatternMismatch    = errors.New("pattern/context mismatch")
	ErrDirectoryLocked    = errors.New("data directory locked by another process")
	ErrCancelled          = errors.New("operation cancelled")
)
