package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/pkg/logger"
)

const maxScoreBody = 64 << 10

// ScoresHandler accepts judge submissions.
type ScoresHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies, l logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, logger: l}
}

// HandlePostScore handles POST /api/scores/{judgeId}/{teamId} requests.
// The judge is checked before the body is read, so an unknown judge always
// gets "Invalid judge" whatever was sent.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	judgeID := r.PathValue("judgeId")
	teamID := r.PathValue("teamId")

	if !h.deps.IsJudge(judgeID) {
		writeError(w, http.StatusBadRequest, ErrInvalidJudge)
		return
	}

	entry, err := decodeScore(http.MaxBytesReader(w, r.Body, maxScoreBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.deps.SetScore(r.Context(), judgeID, teamID, entry); err != nil {
		if errors.Is(err, scoring.ErrInvalidJudge) {
			writeError(w, http.StatusBadRequest, ErrInvalidJudge)
			return
		}
		h.logger.Error(r.Context(), "failed to save score",
			logger.String("judge", judgeID),
			logger.String("team", teamID),
			logger.Error(err),
		)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decodeScore reads a score body. An empty body yields a zero entry.
func decodeScore(body io.Reader) (model.ScoreEntry, error) {
	var entry model.ScoreEntry
	raw, err := io.ReadAll(body)
	if err != nil {
		return entry, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return entry, nil
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("%w: invalid score body: %w", ErrBadRequest, err)
	}
	return entry, nil
}
