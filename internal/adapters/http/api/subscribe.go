package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/okian/sideline/internal/domain/types"
)

// SubscribeHandler handles long-lived event-stream subscriptions.
type SubscribeHandler struct {
	deps Dependencies
}

// NewSubscribeHandler creates a new subscribe handler.
func NewSubscribeHandler(deps Dependencies) *SubscribeHandler {
	return &SubscribeHandler{deps: deps}
}

// HandleSubscribe handles GET /api/subscribe requests. The response is a
// server-sent event stream that stays open until the registry rotates or
// evicts the subscription, or the client disconnects.
func (h *SubscribeHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	key, err := interestKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported",
			errors.New("response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	transport := newSSETransport(w, flusher)
	sub, err := h.deps.Attach(r.Context(), transport, key)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
		return
	}

	// The handler must outlive every write to w. It returns only after the
	// transport is closed, either by the registry or via Detach below.
	select {
	case <-r.Context().Done():
		h.deps.Detach(sub.ID)
	case <-transport.done:
	}
}

// sseTransport delivers frames as server-sent events. Writes are serialized
// under a mutex; after Close no write can touch the response writer again.
type sseTransport struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newSSETransport(w http.ResponseWriter, flusher http.Flusher) *sseTransport {
	return &sseTransport{w: w, flusher: flusher, done: make(chan struct{})}
}

// Send writes one frame as an SSE event named after the frame kind.
func (t *sseTransport) Send(frame types.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(t.w, "event: %s\ndata: %s\n\n", frame.Kind, payload); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	t.flusher.Flush()
	return nil
}

// Close releases the handler goroutine. Safe to call more than once.
func (t *sseTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}
