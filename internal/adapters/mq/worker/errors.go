package worker

import "errors"

// ErrStopped is returned for jobs submitted after the writer shut down.
var ErrStopped = errors.New("writer stopped")
