package scoring

import "errors"

// ErrInvalidJudge is returned when a score names a judge outside the
// configured set.
var ErrInvalidJudge = errors.New("invalid judge")
