package api

import (
	"net/http"

	"github.com/okian/tally/pkg/logger"
)

// RevealHandler flips the reveal flag.
type RevealHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRevealHandler creates a new reveal handler.
func NewRevealHandler(deps Dependencies, l logger.Logger) *RevealHandler {
	return &RevealHandler{deps: deps, logger: l}
}

// HandleReveal handles POST /api/reveal requests.
func (h *RevealHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, true)
}

// HandleReset handles POST /api/reset requests.
func (h *RevealHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, false)
}

func (h *RevealHandler) set(w http.ResponseWriter, r *http.Request, revealed bool) {
	if err := h.deps.SetRevealed(r.Context(), revealed); err != nil {
		h.logger.Error(r.Context(), "failed to update reveal flag",
			logger.Bool("revealed", revealed),
			logger.Error(err),
		)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
