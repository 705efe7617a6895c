package api

import (
	"net/http"
	"time"

	"github.com/okian/sideline/internal/domain/model"
)

type snapshotResponse struct {
	Snapshot  *model.EventSnapshot `json:"snapshot"`
	Digest    string               `json:"digest"`
	Timestamp string               `json:"timestamp"`
}

// SnapshotHandler serves the current snapshot for one interest key.
type SnapshotHandler struct {
	deps Dependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps Dependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleSnapshot handles GET /api/snapshot requests.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	key, err := interestKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	snapshot, digest, err := h.deps.Snapshot(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:  snapshot,
		Digest:    string(digest),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
