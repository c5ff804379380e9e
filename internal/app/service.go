// Package service wires the document store, broadcast hub and scoring
// operations together and exposes them to the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/tally/internal/adapters/broadcast"
	"github.com/okian/tally/internal/adapters/mq/worker"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const (
	defaultDataFile         = "data.json"
	defaultSubscriberBuffer = 64
	writerShutdownTimeout   = 5 * time.Second
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the scoring backend.
type Service struct {
	mu sync.RWMutex

	// Configuration
	dataFile         string
	judges           []string
	subscriberBuffer int
	serializeWrites  bool
	initDataFile     bool

	// Core components
	store   repository.Store
	hub     *broadcast.Hub
	writer  *worker.Writer
	scoring *scoring.Service

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataFile:         defaultDataFile,
		judges:           scoring.DefaultJudges,
		subscriberBuffer: defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components. The data file must exist unless
// WithInitDataFile was set.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoring service...")

	if s.store == nil {
		fs := repository.NewFileStore(s.dataFile, repository.WithLogger(s.logger.Named("store")))
		if s.initDataFile {
			if _, err := fs.Ensure(ctx); err != nil {
				return err
			}
		}
		s.store = fs
	}

	s.hub = broadcast.NewHub(
		broadcast.WithBufferSize(s.subscriberBuffer),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)

	opts := []scoring.Option{
		scoring.WithJudges(s.judges...),
		scoring.WithLogger(s.logger.Named("scoring")),
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.serializeWrites {
		s.writer = worker.NewWriter(worker.WithName("writer"), worker.WithLogger(s.logger))
		go s.writer.Run(runCtx)
		opts = append(opts, scoring.WithExecutor(s.writer))
	}
	s.scoring = scoring.NewService(s.store, s.hub, opts...)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "scoring service started",
		logger.String("dataFile", s.dataFile),
		logger.Any("judges", s.scoring.Judges()),
		logger.Int("subscriberBuffer", s.subscriberBuffer),
		logger.Bool("serializeWrites", s.serializeWrites),
	)
	return nil
}

// Stop ends every event stream and stops the writer.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	s.hub.Close()
	if s.writer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, writerShutdownTimeout)
		if err := s.writer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "writer did not stop cleanly", logger.Error(err))
		}
		cancel()
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

func (s *Service) components() (*scoring.Service, *broadcast.Hub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.scoring, s.hub, nil
}

// Data returns the whole document.
func (s *Service) Data(ctx context.Context) (model.Document, error) {
	sc, _, err := s.components()
	if err != nil {
		return model.Document{}, err
	}
	return sc.Snapshot(ctx)
}

// SetScore records a judge's score for a team.
func (s *Service) SetScore(ctx context.Context, judgeID, teamID string, entry model.ScoreEntry) error {
	sc, _, err := s.components()
	if err != nil {
		return err
	}
	return sc.SetScore(ctx, judgeID, teamID, entry)
}

// SetRevealed sets or clears the reveal flag.
func (s *Service) SetRevealed(ctx context.Context, revealed bool) error {
	sc, _, err := s.components()
	if err != nil {
		return err
	}
	return sc.SetRevealed(ctx, revealed)
}

// IsJudge reports whether id may submit scores.
func (s *Service) IsJudge(id string) bool {
	sc, _, err := s.components()
	if err != nil {
		return false
	}
	return sc.IsJudge(id)
}

// Subscribe registers a viewer for live events.
func (s *Service) Subscribe() (*broadcast.Subscription, error) {
	_, hub, err := s.components()
	if err != nil {
		return nil, err
	}
	return hub.Subscribe()
}

// Unsubscribe removes a viewer. Unknown handles are ignored.
func (s *Service) Unsubscribe(handle broadcast.Handle) {
	_, hub, err := s.components()
	if err != nil {
		return
	}
	hub.Unsubscribe(handle)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"dataFile":         s.dataFile,
		"subscriberBuffer": s.subscriberBuffer,
		"serializeWrites":  s.serializeWrites,
	}
	if s.started {
		subscribers := s.hub.Count()
		stats["judges"] = s.scoring.Judges()
		stats["subscribers"] = subscribers
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		metrics.UpdateActiveSubscribers(subscribers)
	}
	return stats
}
