package rehearsal

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// Generate builds one submission per judge and team. The same seed gives
// the same scores; the run id keeps comments unique across runs.
func Generate(ctx context.Context, cfg *Config, stats *Stats) []Submission {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // test data, not security sensitive
	runID := uuid.NewString()[:8]

	subs := make([]Submission, 0, len(cfg.Judges)*cfg.Teams)
	for _, judge := range cfg.Judges {
		for t := 1; t <= cfg.Teams; t++ {
			subs = append(subs, Submission{
				JudgeID: judge,
				TeamID:  TeamID(t),
				Entry: model.ScoreEntry{
					Business:     score(rng),
					Innovation:   score(rng),
					Readiness:    score(rng),
					Presentation: score(rng),
					Comment:      fmt.Sprintf("rehearsal %s by %s", runID, judge),
				},
			})
		}
	}

	stats.ScoresGenerated = len(subs)
	logger.Get().Info(ctx, "generated scores",
		logger.Int("judges", len(cfg.Judges)),
		logger.Int("teams", cfg.Teams),
		logger.Int("scores", len(subs)),
		logger.Int64("seed", cfg.Seed),
		logger.String("run", runID),
	)
	return subs
}

// TeamID names the n-th rehearsal team.
func TeamID(n int) string {
	return fmt.Sprintf("rehearsal-team-%02d", n)
}

// score returns a value in [1, 10] with one decimal.
func score(rng *rand.Rand) float64 {
	return math.Round((minScore+rng.Float64()*scoreRange)*10) / 10
}
