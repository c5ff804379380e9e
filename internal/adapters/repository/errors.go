package repository

import "errors"

// Sentinel kinds for store errors. Every failure matches ErrStorage; the
// narrower kinds tell a missing file from a corrupt one.
var (
	ErrStorage = errors.New("storage error")
	ErrMissing = errors.New("document missing")
	ErrCorrupt = errors.New("document corrupt")
)
