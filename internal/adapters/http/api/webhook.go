package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/sideline/pkg/metrics"
)

// Header carrying the shared push secret.
const pushSecretHeader = "X-Push-Secret"

// pushRequest mirrors the payload upstream notification services send.
// Probe deliveries verify the endpoint is alive without naming an event;
// they arrive as an empty body, an empty object, or an explicit probe flag.
type pushRequest struct {
	EventKey string `json:"eventKey"`
	Probe    bool   `json:"probe"`
}

type pushResponse struct {
	Triggered int `json:"triggered"`
}

// PushHandler handles webhook push notifications.
type PushHandler struct {
	deps   Dependencies
	secret string
}

// NewPushHandler creates a new push handler. An empty secret disables
// authentication.
func NewPushHandler(deps Dependencies, secret string) *PushHandler {
	return &PushHandler{deps: deps, secret: secret}
}

// HandlePush handles POST /api/push requests.
func (h *PushHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	if h.secret != "" {
		header := r.Header.Get(pushSecretHeader)
		if subtle.ConstantTimeCompare([]byte(header), []byte(h.secret)) != 1 {
			metrics.RecordPushRejected("unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized", errors.New("invalid push secret"))
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.RecordPushRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("unreadable push payload"))
		return
	}

	// A payload with no content is a connectivity probe, acknowledged
	// without triggering a re-check.
	if len(bytes.TrimSpace(body)) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		metrics.RecordPushRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("malformed push payload"))
		return
	}
	if len(fields) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req pushRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.RecordPushRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("malformed push payload"))
		return
	}

	if req.Probe {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if strings.TrimSpace(req.EventKey) == "" {
		metrics.RecordPushRejected("missing_event_key")
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing eventKey"))
		return
	}

	triggered := h.deps.TriggerEvent(r.Context(), strings.ToLower(strings.TrimSpace(req.EventKey)))
	writeJSON(w, http.StatusOK, pushResponse{Triggered: triggered})
}
