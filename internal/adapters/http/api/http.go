// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/sideline/internal/adapters/registry"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Attach registers a transport for a key and delivers the connected
	// frame with a baseline digest.
	Attach(ctx context.Context, transport registry.Transport, key types.InterestKey) (*registry.Subscription, error)

	// Detach removes a subscription.
	Detach(id string)

	// TriggerEvent enqueues refreshes for every active key under an event.
	// Returns the number of live subscriptions the push reached.
	TriggerEvent(ctx context.Context, eventKey string) int

	// Snapshot returns the current snapshot and digest for a key.
	Snapshot(ctx context.Context, key types.InterestKey) (*model.EventSnapshot, types.Digest, error)

	// Check compares the current digest against the one a client last saw.
	Check(ctx context.Context, key types.InterestKey, lastDigest types.Digest) (bool, types.Digest, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	subscribeHandler *SubscribeHandler
	wsHandler        *WSHandler
	pushHandler      *PushHandler
	snapshotHandler  *SnapshotHandler
	dataCheckHandler *DataCheckHandler
	statsHandler     *StatsHandler
	healthHandler    *HealthHandler
}

// NewServer creates a new API server with all handlers. pushSecret may be
// empty, which leaves the push endpoint open.
func NewServer(deps Dependencies, statsProvider StatsProvider, pushSecret string) *Server {
	return &Server{
		subscribeHandler: NewSubscribeHandler(deps),
		wsHandler:        NewWSHandler(deps),
		pushHandler:      NewPushHandler(deps, pushSecret),
		snapshotHandler:  NewSnapshotHandler(deps),
		dataCheckHandler: NewDataCheckHandler(deps),
		statsHandler:     NewStatsHandler(statsProvider),
		healthHandler:    NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/subscribe", s.subscribeHandler.HandleSubscribe)
	mux.HandleFunc("/api/ws", s.wsHandler.HandleWS)
	mux.HandleFunc("/api/push", MetricsMiddleware(s.pushHandler.HandlePush, "push"))
	mux.HandleFunc("/api/snapshot", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
	mux.HandleFunc("/api/data-check", MetricsMiddleware(s.dataCheckHandler.HandleDataCheck, "data-check"))
}

// interestKeyFromQuery builds the normalized key from the eventKey and
// teamKey query parameters every read endpoint shares.
func interestKeyFromQuery(r *http.Request) (types.InterestKey, error) {
	key := types.NewInterestKey(r.URL.Query().Get("eventKey"), r.URL.Query().Get("teamKey"))
	switch {
	case key.EventKey == "":
		return types.InterestKey{}, errors.New("missing eventKey")
	case key.TeamKey == "":
		return types.InterestKey{}, errors.New("missing teamKey")
	}
	return key, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
