package broadcast

import "github.com/okian/tally/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets how many frames each subscriber may have pending.
// A subscriber whose buffer is full when an event arrives is unsubscribed,
// which closes its channel and ends that viewer's event stream; browsers
// reconnect and resume from the next event.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
