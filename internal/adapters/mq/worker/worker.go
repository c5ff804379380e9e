package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const (
	defaultBacklog = 128
)

// Job is one unit of work executed by the writer goroutine.
type Job = func(ctx context.Context) error

// Executor runs jobs. The scoring service depends on this, not on Writer.
type Executor interface {
	Do(ctx context.Context, fn Job) error
}

type request struct {
	ctx      context.Context
	fn       Job
	done     chan error
	enqueued time.Time
}

// Writer executes submitted jobs strictly one after another in FIFO order.
type Writer struct {
	name    string
	backlog int
	jobs    chan request

	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

var _ Executor = (*Writer)(nil)

// NewWriter creates a writer. Call Run to start processing.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		name:     "writer",
		backlog:  defaultBacklog,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	w.jobs = make(chan request, w.backlog)
	return w
}

// Run processes jobs until ctx is cancelled or Shutdown is called. Jobs
// still queued at that point fail with ErrStopped.
func (w *Writer) Run(ctx context.Context) {
	w.started.Store(true)
	defer close(w.done)
	defer w.reject()

	w.logger.Debug(ctx, "writer started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req := <-w.jobs:
			metrics.UpdateWriterBacklog(len(w.jobs))
			w.execute(req)
		}
	}
}

func (w *Writer) execute(req request) {
	if err := req.ctx.Err(); err != nil {
		req.done <- err
		return
	}
	start := time.Now()
	err := req.fn(req.ctx)
	metrics.RecordWriterJobLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		w.logger.Debug(req.ctx, "job failed",
			logger.Duration("queued", start.Sub(req.enqueued)),
			logger.Error(err),
		)
	}
	req.done <- err
}

func (w *Writer) reject() {
	for {
		select {
		case req := <-w.jobs:
			req.done <- ErrStopped
		default:
			metrics.UpdateWriterBacklog(0)
			return
		}
	}
}

// Do queues fn and waits for its result. If ctx ends while fn is still
// queued, fn is skipped; once fn has started it runs to completion.
func (w *Writer) Do(ctx context.Context, fn Job) error {
	select {
	case <-w.shutdown:
		return ErrStopped
	default:
	}

	req := request{ctx: ctx, fn: fn, done: make(chan error, 1), enqueued: time.Now()}
	select {
	case w.jobs <- req:
		metrics.UpdateWriterBacklog(len(w.jobs))
	case <-w.shutdown:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Shutdown stops accepting jobs and waits for the current one to finish.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	if !w.started.Load() {
		return nil
	}
	select {
	case <-w.done:
		w.logger.Debug(ctx, "writer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "writer shutdown timed out")
		return ctx.Err()
	}
}
