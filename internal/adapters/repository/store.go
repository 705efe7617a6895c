// Package repository keeps the last good snapshot and digest per interest
// key. Retention matters on failed cycles: a fetch failure must not look
// like "nothing changed", so callers keep serving the stored snapshot until
// a cycle succeeds again.
package repository

import (
	"context"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// Store owns the per-key snapshot state. Snapshots are immutable; Put
// replaces, never merges.
type Store interface {
	// Latest returns the most recent good snapshot and its digest.
	Latest(ctx context.Context, key types.InterestKey) (*model.EventSnapshot, types.Digest, bool)

	// Put records the snapshot and digest from a completed cycle.
	Put(ctx context.Context, key types.InterestKey, snapshot *model.EventSnapshot, digest types.Digest)

	// Forget drops all state for a key. Called when the last subscription
	// for the key detaches.
	Forget(ctx context.Context, key types.InterestKey)

	// Count returns the number of keys with stored state.
	Count(ctx context.Context) int
}
