// Package broadcast fans encoded events out to every live event stream.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/adapters/mq/queue"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const defaultBufferSize = 64

// Handle identifies one subscription.
type Handle string

// Subscription is the hub side of one connected viewer.
type Subscription struct {
	handle Handle
	q      *queue.InMemoryQueue
}

// Handle returns the token used to unsubscribe.
func (s *Subscription) Handle() Handle { return s.handle }

// Frames returns the stream of encoded events. It is closed when the
// subscription is removed.
func (s *Subscription) Frames() <-chan queue.Frame { return s.q.Dequeue() }

// Hub keeps the set of live subscribers. The set is copy-on-write:
// mutations replace the slice under mu, Broadcast walks whatever slice it
// loaded and never holds the lock while delivering.
type Hub struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool

	bufferSize int
	logger     logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		bufferSize: defaultBufferSize,
		logger:     logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber. It only receives events broadcast
// after this call returns.
func (h *Hub) Subscribe() (*Subscription, error) {
	sub := &Subscription{
		handle: Handle(uuid.NewString()),
		q:      queue.NewInMemoryQueue(queue.WithCapacity(h.bufferSize)),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	next := make([]*Subscription, len(h.subs), len(h.subs)+1)
	copy(next, h.subs)
	h.subs = append(next, sub)
	count := len(h.subs)
	h.mu.Unlock()

	metrics.RecordSubscriberConnected()
	metrics.UpdateActiveSubscribers(count)
	h.logger.Debug(context.Background(), "subscriber added",
		logger.String("handle", string(sub.handle)),
		logger.Int("subscribers", count),
	)
	return sub, nil
}

// Unsubscribe removes the subscriber and closes its channel. It reports
// whether the handle was registered; removing it twice is harmless.
func (h *Hub) Unsubscribe(handle Handle) bool {
	h.mu.Lock()
	idx := -1
	for i, s := range h.subs {
		if s.handle == handle {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return false
	}
	removed := h.subs[idx]
	next := make([]*Subscription, 0, len(h.subs)-1)
	next = append(next, h.subs[:idx]...)
	next = append(next, h.subs[idx+1:]...)
	h.subs = next
	count := len(next)
	h.mu.Unlock()

	_ = removed.q.Close()
	metrics.UpdateActiveSubscribers(count)
	h.logger.Debug(context.Background(), "subscriber removed",
		logger.String("handle", string(handle)),
		logger.Int("subscribers", count),
	)
	return true
}

// Broadcast encodes the event once and offers it to every subscriber in
// registration order. Subscribers whose queue refuses the frame are dropped.
// It returns how many subscribers received the frame.
func (h *Hub) Broadcast(ctx context.Context, event string, payload any) int {
	frame, err := Encode(event, payload)
	if err != nil {
		metrics.RecordErrorByComponent("broadcast", "encode")
		h.logger.Error(ctx, "dropping undeliverable event",
			logger.String("event", event),
			logger.Error(err),
		)
		return 0
	}

	h.mu.Lock()
	snapshot := h.subs
	h.mu.Unlock()

	// A cancelled caller must not look like a stalled subscriber.
	deliverCtx := context.WithoutCancel(ctx)

	delivered := 0
	var failed []Handle
	for _, sub := range snapshot {
		if sub.q.Enqueue(deliverCtx, frame) {
			delivered++
			continue
		}
		failed = append(failed, sub.handle)
	}

	for _, handle := range failed {
		if h.Unsubscribe(handle) {
			metrics.RecordSubscriberDropped()
			h.logger.Warn(ctx, "dropped subscriber after failed delivery",
				logger.String("handle", string(handle)),
				logger.String("event", event),
			)
		}
	}

	metrics.RecordBroadcast(event, delivered)
	h.logger.Debug(ctx, "broadcast",
		logger.String("event", event),
		logger.Int("delivered", delivered),
		logger.Int("dropped", len(failed)),
	)
	return delivered
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber, ending their streams, and refuses new
// subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.q.Close()
	}
	metrics.UpdateActiveSubscribers(0)
	h.logger.Info(context.Background(), "broadcast hub closed", logger.Int("subscribers", len(subs)))
}
