package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidJudge carries the exact message clients match on.
	ErrInvalidJudge = errors.New("Invalid judge") //nolint:staticcheck // ST1005: wire message
	ErrUnavailable  = errors.New("service unavailable")
)
