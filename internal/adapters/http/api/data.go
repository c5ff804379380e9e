package api

import (
	"net/http"

	"github.com/okian/tally/pkg/logger"
)

// DataHandler serves the whole document.
type DataHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps Dependencies, l logger.Logger) *DataHandler {
	return &DataHandler{deps: deps, logger: l}
}

// HandleGetData handles GET /api/data requests.
func (h *DataHandler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	doc, err := h.deps.Data(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to read document", logger.Error(err))
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
