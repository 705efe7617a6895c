// Package dedupe coalesces refresh triggers so one interest key never has
// more than one pending cycle in the queue at a time.
package dedupe

import (
	"sync"

	"github.com/okian/sideline/internal/domain/types"
)

// Coalescer records interest keys with an in-flight refresh. A key stays
// recorded from enqueue until its cycle completes; duplicate triggers for a
// recorded key are dropped by the caller.
type Coalescer interface {
	// SeenAndRecord atomically checks if key is pending and records it if
	// not. Returns true if the key was already pending.
	SeenAndRecord(key types.InterestKey) bool

	// Unrecord clears the pending mark, allowing the key to be triggered
	// again. Must be called when a cycle completes or fails to enqueue.
	Unrecord(key types.InterestKey)

	Size() int
}

// inMemoryCoalescer implements Coalescer with a mutex-guarded set. The set
// is naturally bounded by the number of active interest keys; no eviction
// policy is needed.
type inMemoryCoalescer struct {
	mu      sync.Mutex
	pending map[types.InterestKey]struct{}
}

// NewCoalescer creates an empty in-memory coalescer.
func NewCoalescer() Coalescer {
	return &inMemoryCoalescer{pending: make(map[types.InterestKey]struct{})}
}

func (c *inMemoryCoalescer) SeenAndRecord(key types.InterestKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[key]; ok {
		return true
	}
	c.pending[key] = struct{}{}
	return false
}

func (c *inMemoryCoalescer) Unrecord(key types.InterestKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

func (c *inMemoryCoalescer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
