package repository

import (
	"context"
	"sync"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

type entry struct {
	snapshot *model.EventSnapshot
	digest   types.Digest
}

// MemStore implements Store with a mutex-guarded map. State is ephemeral by
// design: nothing here survives a restart.
type MemStore struct {
	mu      sync.RWMutex
	entries map[types.InterestKey]entry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[types.InterestKey]entry)}
}

// Latest returns the most recent good snapshot and its digest for key.
func (s *MemStore) Latest(_ context.Context, key types.InterestKey) (*model.EventSnapshot, types.Digest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, "", false
	}
	return e.snapshot, e.digest, true
}

// Put replaces the stored snapshot and digest for key.
func (s *MemStore) Put(_ context.Context, key types.InterestKey, snapshot *model.EventSnapshot, digest types.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{snapshot: snapshot, digest: digest}
}

// Forget drops all state for key.
func (s *MemStore) Forget(_ context.Context, key types.InterestKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Count returns the number of keys with stored state.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
