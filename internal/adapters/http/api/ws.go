package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
)

// Write deadline for outbound websocket frames.
const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients subscribe cross-origin from event dashboards.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler handles websocket subscriptions, the second subscription
// surface next to the SSE stream.
type WSHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(deps Dependencies) *WSHandler {
	return &WSHandler{deps: deps, logger: logger.Get().Named("ws")}
}

// HandleWS handles GET /api/ws requests.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	key, err := interestKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	transport := &wsTransport{conn: conn}
	sub, err := h.deps.Attach(r.Context(), transport, key)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket attach failed",
			logger.String("key", key.String()), logger.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unavailable"),
			time.Now().Add(wsWriteTimeout))
		_ = conn.Close()
		return
	}

	// Drain inbound messages to detect client disconnects. Subscribers
	// never send payloads the server acts on.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.deps.Detach(sub.ID)
}

// wsTransport delivers frames as websocket JSON messages.
type wsTransport struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// Send writes one frame as a JSON message.
func (t *wsTransport) Send(frame types.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return t.conn.WriteJSON(frame)
}

// Close tears the connection down. Safe to call more than once.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
