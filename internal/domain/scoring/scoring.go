// Package scoring implements the operations that change the shared
// document: recording a judge's score and flipping the reveal flag.
//
// Every mutation loads the whole document, changes it, saves it, and only
// then announces the change to viewers. Without an Executor, two mutations
// that overlap in time can each load the same version and the later save
// wins; the earlier change is lost from the file even though its event was
// already broadcast. The scoring flow of a live event tolerates this.
package scoring

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Mutation kinds used for metrics and logs.
const (
	KindScore  = "score"
	KindReveal = "reveal"
	KindReset  = "reset"
)

// DefaultJudges is the judge set used when none is configured.
var DefaultJudges = []string{"aleksej", "egor"} //nolint:gochecknoglobals // read-only defaults

// Store loads and saves the whole document.
type Store interface {
	Load(ctx context.Context) (model.Document, error)
	Save(ctx context.Context, doc model.Document) error
}

// Broadcaster announces a change to connected viewers.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any) int
}

// Executor runs a mutation, possibly on another goroutine, and returns its error.
type Executor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

func (inline) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Service applies mutations to the document.
type Service struct {
	store      Store
	hub        Broadcaster
	exec       Executor
	judges     map[string]struct{}
	judgeOrder []string
	logger     logger.Logger
}

// NewService creates a scoring service over store that announces changes on hub.
func NewService(store Store, hub Broadcaster, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hub:    hub,
		exec:   inline{},
		logger: logger.Get().Named("scoring"),
	}
	WithJudges(DefaultJudges...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsJudge reports whether id may submit scores.
func (s *Service) IsJudge(id string) bool {
	_, ok := s.judges[id]
	return ok
}

// Judges returns the configured judges in configuration order.
func (s *Service) Judges() []string {
	return slices.Clone(s.judgeOrder)
}

// Snapshot returns the current document.
func (s *Service) Snapshot(ctx context.Context) (model.Document, error) {
	return s.store.Load(ctx)
}

// SetScore stores the entry a judge gave a team, replacing any earlier one,
// and announces scores_updated. Unknown judges are rejected before the
// document is touched.
func (s *Service) SetScore(ctx context.Context, judgeID, teamID string, entry model.ScoreEntry) error {
	if !s.IsJudge(judgeID) {
		metrics.RecordMutation(KindScore, metrics.OutcomeRejected)
		s.logger.Warn(ctx, "score rejected",
			logger.String("judge", judgeID),
			logger.String("team", teamID),
		)
		return fmt.Errorf("%w: %q", ErrInvalidJudge, judgeID)
	}

	return s.mutate(ctx, KindScore, func(doc *model.Document) (string, any) {
		doc.SetScore(judgeID, teamID, entry)
		return model.EventScoresUpdated, model.ScoresUpdated{JudgeID: judgeID, TeamID: teamID}
	}, logger.String("judge", judgeID), logger.String("team", teamID))
}

// SetRevealed sets the reveal flag and announces reveal or reset. The event
// is sent even when the flag already had that value.
func (s *Service) SetRevealed(ctx context.Context, revealed bool) error {
	kind, event := KindReset, model.EventReset
	if revealed {
		kind, event = KindReveal, model.EventReveal
	}
	return s.mutate(ctx, kind, func(doc *model.Document) (string, any) {
		doc.Revealed = revealed
		return event, model.Empty{}
	})
}

func (s *Service) mutate(ctx context.Context, kind string, apply func(*model.Document) (string, any), fields ...logger.Field) error {
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		doc, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		event, payload := apply(&doc)
		if err := s.store.Save(ctx, doc); err != nil {
			return err
		}
		delivered := s.hub.Broadcast(ctx, event, payload)
		s.logger.Info(ctx, "document updated", append(fields,
			logger.String("kind", kind),
			logger.Int("delivered", delivered),
		)...)
		return nil
	})
	if err != nil {
		metrics.RecordMutation(kind, metrics.OutcomeFailed)
		s.logger.Error(ctx, "mutation failed", append(fields, logger.String("kind", kind), logger.Error(err))...)
		return fmt.Errorf("%s: %w", kind, err)
	}
	metrics.RecordMutation(kind, metrics.OutcomeOK)
	return nil
}
