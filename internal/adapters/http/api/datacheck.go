package api

import (
	"net/http"
	"time"

	"github.com/okian/sideline/internal/domain/types"
)

type dataCheckResponse struct {
	Changed   bool   `json:"changed"`
	Digest    string `json:"digest"`
	Timestamp string `json:"timestamp"`
}

// DataCheckHandler serves the cheap change probe clients poll between
// pushes. It returns the current digest and whether it differs from the
// one the client last saw.
type DataCheckHandler struct {
	deps Dependencies
}

// NewDataCheckHandler creates a new data-check handler.
func NewDataCheckHandler(deps Dependencies) *DataCheckHandler {
	return &DataCheckHandler{deps: deps}
}

// HandleDataCheck handles GET /api/data-check requests. A missing or empty
// lastUpdate parameter establishes the client's baseline: the response
// carries the current digest with changed=false.
func (h *DataCheckHandler) HandleDataCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	key, err := interestKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	lastDigest := types.Digest(r.URL.Query().Get("lastUpdate"))
	changed, digest, err := h.deps.Check(r.Context(), key, lastDigest)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, dataCheckResponse{
		Changed:   changed,
		Digest:    string(digest),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
