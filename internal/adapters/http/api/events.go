package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/pkg/logger"
)

var keepAliveComment = []byte(": keep-alive\n\n")

// StreamHandler serves the live event stream.
type StreamHandler struct {
	deps      Dependencies
	keepAlive time.Duration
	clock     clockwork.Clock
	logger    logger.Logger
}

// NewStreamHandler creates a new event stream handler. keepAlive of zero
// disables comment lines on idle streams.
func NewStreamHandler(deps Dependencies, keepAlive time.Duration, clock clockwork.Clock, l logger.Logger) *StreamHandler {
	return &StreamHandler{deps: deps, keepAlive: keepAlive, clock: clock, logger: l}
}

// HandleEvents handles GET /api/events requests. The connection stays open
// until the client leaves, a write fails, or the hub drops the subscription.
func (h *StreamHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := h.deps.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrUnavailable)
		return
	}
	defer h.deps.Unsubscribe(sub.Handle())

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut long-lived streams.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn(ctx, "failed to clear write deadline", logger.Error(err))
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, "\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn(ctx, "event stream cannot flush", logger.Error(err))
		return
	}

	h.logger.Debug(ctx, "event stream opened",
		logger.String("handle", string(sub.Handle())),
		logger.String("remote", r.RemoteAddr),
	)

	var tick <-chan time.Time
	if h.keepAlive > 0 {
		ticker := h.clock.NewTicker(h.keepAlive)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	frames := sub.Frames()
	for {
		var chunk []byte
		select {
		case <-ctx.Done():
			h.logger.Debug(ctx, "event stream closed by client", logger.String("handle", string(sub.Handle())))
			return
		case f, ok := <-frames:
			if !ok {
				h.logger.Debug(ctx, "event stream ended by hub", logger.String("handle", string(sub.Handle())))
				return
			}
			chunk = f
		case <-tick:
			chunk = keepAliveComment
		}

		if _, err := w.Write(chunk); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
