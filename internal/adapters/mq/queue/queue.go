// Package queue defines the contract for enqueuing and consuming refresh
// triggers.
//
// A trigger names an interest key that needs a refresh cycle and the source
// that asked for it. The in-memory bounded queue is the only implementation.
package queue

import (
	"context"
	"sync"

	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Trigger is a request to refresh one interest key.
type Trigger struct {
	Key    types.InterestKey
	Source types.Source
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a trigger to the queue.
	// Returns false if the queue is full or closed and the trigger was dropped.
	Enqueue(ctx context.Context, t Trigger) bool

	// Dequeue returns a channel that receives triggers as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Trigger

	// Len returns the current number of pending triggers.
	Len(ctx context.Context) int

	// Close shuts the queue down. After closing, no new triggers can be
	// enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	triggers chan Trigger
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory trigger queue with configuration
// options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.triggers = make(chan Trigger, q.capacity)
	metrics.UpdateTriggerQueueDepth(0)

	return q
}

// Enqueue adds a trigger to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Trigger) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.triggers <- t:
		metrics.UpdateTriggerQueueDepth(len(q.triggers))
		return true
	case <-ctx.Done():
		return false
	default:
		return false // queue is full
	}
}

// Dequeue returns a channel that receives triggers as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Trigger {
	out := make(chan Trigger)
	go func() {
		defer close(out)
		for t := range q.triggers {
			select {
			case out <- t:
				metrics.UpdateTriggerQueueDepth(len(q.triggers))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of pending triggers.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.triggers)
	metrics.UpdateTriggerQueueDepth(size)
	return size
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.triggers)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
