package registry

import (
	"context"
	"time"

	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Run drives the connection lifecycle until ctx is cancelled. One sweep per
// heartbeat interval handles rotation, staleness and heartbeats for every
// subscription.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	r.logger.Info(ctx, "lifecycle started",
		logger.Any("heartbeat_interval", r.heartbeatInterval),
		logger.Any("max_connection_age", r.maxAge),
		logger.Any("stale_after", r.staleAfter))

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one lifecycle pass. Exported so tests can drive the clock
// without running the ticker loop.
func (r *Registry) Sweep(ctx context.Context) {
	now := r.nowFunc()
	for _, sub := range r.snapshotAll() {
		switch {
		case now.Sub(sub.CreatedAt) >= r.maxAge:
			r.rotate(ctx, sub)
		case now.Sub(sub.lastActivity()) >= r.staleAfter:
			r.logger.Warn(ctx, "evicting stale subscription",
				logger.String("id", sub.ID), logger.String("key", sub.Key.String()))
			r.remove(sub.ID, "stale")
		default:
			r.heartbeat(ctx, sub)
		}
	}
}

// rotate tells a long-lived subscriber to reconnect and closes it, before
// an intermediary's idle limit can cut the connection uncleanly. A failed
// reconnect send still removes the subscription: the transport is gone
// either way and the client's own retry takes over.
func (r *Registry) rotate(ctx context.Context, sub *Subscription) {
	if err := sub.send(types.Frame{Kind: types.FrameReconnect, Digest: sub.LastDigest()}); err != nil {
		r.logger.Debug(ctx, "reconnect frame failed",
			logger.String("id", sub.ID), logger.Error(err))
	}
	r.remove(sub.ID, "rotated")
	metrics.RecordSubscriptionRotated()
}

// heartbeat sends a heartbeat frame carrying the key's latest digest so a
// subscriber can passively detect change between notifications.
func (r *Registry) heartbeat(ctx context.Context, sub *Subscription) {
	digest := sub.LastDigest()
	if r.digests != nil {
		if d, ok := r.digests.LatestDigest(ctx, sub.Key); ok {
			digest = d
		}
	}
	if err := sub.send(types.Frame{Kind: types.FrameHeartbeat, Digest: digest}); err != nil {
		r.logger.Debug(ctx, "heartbeat failed, evicting subscription",
			logger.String("id", sub.ID), logger.String("key", sub.Key.String()), logger.Error(err))
		r.remove(sub.ID, "transport")
	}
}

// closeAll tears every subscription down on shutdown.
func (r *Registry) closeAll() {
	for _, sub := range r.snapshotAll() {
		r.remove(sub.ID, "shutdown")
	}
}

func (s *Subscription) lastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
