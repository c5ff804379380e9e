// Package queue provides the bounded per-subscriber frame queue that sits
// between the broadcast hub and one event stream connection.
//
// Enqueue never blocks: a subscriber that stops reading fills its own
// buffer and is refused, while every other subscriber keeps receiving.
package queue

import (
	"context"
	"sync"
)

const (
	defaultCapacity = 64
)

// Frame is one encoded event stream message.
type Frame []byte

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. Returns false if the queue is full, closed, or
	// ctx is done.
	Enqueue(ctx context.Context, f Frame) bool

	// Dequeue returns the receive side. It is closed by Close.
	Dequeue() <-chan Frame

	// Len returns the number of buffered frames.
	Len() int

	// Close stops the queue. Buffered frames remain readable.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)
	return q
}

// Enqueue adds a frame without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}
	select {
	case q.frames <- f:
		return true
	default:
		return false
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Frame {
	return q.frames
}

// Len returns the number of buffered frames.
func (q *InMemoryQueue) Len() int {
	return len(q.frames)
}

// Capacity returns the buffer size.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close closes the queue. Calling it again is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
