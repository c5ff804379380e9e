package rehearsal

import "time"

// Probe identity used to check that unknown judges are refused.
const (
	intruderJudge = "rehearsal-intruder"
	invalidJudge  = "Invalid judge"
)

// Score ranges.
const (
	minScore   = 1.0
	scoreRange = 9.0
)

// Runner configuration constants.
const (
	streamOpenTimeout = 5 * time.Second
	maxErrorBody      = 4 << 10
)
