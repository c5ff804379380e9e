package broadcast

import "errors"

var (
	// ErrClosed is returned by Subscribe once the hub has been closed.
	ErrClosed = errors.New("broadcast hub closed")
	// ErrInvalidEvent marks an event name that cannot be framed.
	ErrInvalidEvent = errors.New("invalid event name")
)
