// Package registry tracks every live subscriber, fans detected changes out
// to them, and runs the connection lifecycle: heartbeats, proactive
// rotation before intermediary idle limits, and stale eviction.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Default lifecycle configuration constants.
const (
	defaultHeartbeatInterval = 20 * time.Second
	defaultMaxAge            = 85 * time.Second
	defaultStaleAfter        = 60 * time.Second
)

// Transport is the borrowed connection handle a subscription delivers
// frames through. The registry never outlives a transport silently: a
// failed Send evicts the subscription.
type Transport interface {
	// Send delivers one frame. An error means the transport is gone.
	Send(frame types.Frame) error

	// Close tears the transport down. Safe to call more than once.
	Close() error
}

// DigestSource exposes the latest known digest for a key, used to fill
// heartbeat frames so subscribers can passively detect change.
type DigestSource interface {
	LatestDigest(ctx context.Context, key types.InterestKey) (types.Digest, bool)
}

// Subscription is one attached subscriber. Owned exclusively by the
// registry; the transport is borrowed.
type Subscription struct {
	ID        string
	Key       types.InterestKey
	CreatedAt time.Time

	transport Transport
	now       func() time.Time

	mu         sync.Mutex
	lastDigest types.Digest
	lastActive time.Time
}

// LastDigest returns the digest last delivered on this subscription.
func (s *Subscription) LastDigest() types.Digest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDigest
}

// send delivers a frame and tracks activity on success.
func (s *Subscription) send(frame types.Frame) error {
	frame.Timestamp = s.now().UnixMilli()
	if err := s.transport.Send(frame); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
	metrics.RecordFrameSent(string(frame.Kind))
	return nil
}

// Registry owns the subscription set. All mutation happens under one lock;
// notification iterates over a copied slice so evictions mid-fan-out never
// corrupt iteration.
type Registry struct {
	mu    sync.RWMutex
	subs  map[string]*Subscription
	byKey map[types.InterestKey]map[string]*Subscription

	digests           DigestSource
	heartbeatInterval time.Duration
	maxAge            time.Duration
	staleAfter        time.Duration
	emptyKeyHook      func(types.InterestKey)
	logger            logger.Logger
	nowFunc           func() time.Time
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithHeartbeatInterval sets the heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.heartbeatInterval = d
		}
	}
}

// WithMaxConnectionAge sets the age after which a subscription is told to
// reconnect and closed, ahead of any intermediary idle limit.
func WithMaxConnectionAge(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// WithStaleAfter sets the no-activity window after which a subscription is
// force-evicted even if its transport never reported closure.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithEmptyKeyHook registers a callback invoked when the last subscription
// for a key goes away, letting the caller drop per-key state.
func WithEmptyKeyHook(hook func(types.InterestKey)) Option {
	return func(r *Registry) { r.emptyKeyHook = hook }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now, for lifecycle tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.nowFunc = now
		}
	}
}

// New constructs a Registry. digests may be nil; heartbeats then carry the
// subscription's last delivered digest instead.
func New(digests DigestSource, opts ...Option) *Registry {
	r := &Registry{
		subs:              make(map[string]*Subscription),
		byKey:             make(map[types.InterestKey]map[string]*Subscription),
		digests:           digests,
		heartbeatInterval: defaultHeartbeatInterval,
		maxAge:            defaultMaxAge,
		staleAfter:        defaultStaleAfter,
		logger:            logger.Get().Named("registry"),
		nowFunc:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers a transport under a key and delivers the connected frame
// carrying the baseline digest. The caller computes the baseline before
// attaching so the first genuine change is never mistaken for the initial
// load. On a failed connected send the subscription is never registered.
func (r *Registry) Attach(transport Transport, key types.InterestKey, baseline types.Digest) (*Subscription, error) {
	now := r.nowFunc()
	sub := &Subscription{
		ID:         uuid.NewString(),
		Key:        key,
		CreatedAt:  now,
		transport:  transport,
		now:        r.nowFunc,
		lastDigest: baseline,
		lastActive: now,
	}

	if err := sub.send(types.Frame{Kind: types.FrameConnected, Digest: baseline}); err != nil {
		_ = transport.Close()
		return nil, err
	}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	if r.byKey[key] == nil {
		r.byKey[key] = make(map[string]*Subscription)
	}
	r.byKey[key][sub.ID] = sub
	count := len(r.byKey[key])
	r.mu.Unlock()

	metrics.RecordSubscriptionAttached()
	metrics.UpdateActiveSubscriptions(key.String(), count)
	return sub, nil
}

// Detach removes a subscription and closes its transport. Unknown ids are
// ignored.
func (r *Registry) Detach(id string) {
	r.remove(id, "detach")
}

// remove unregisters a subscription, closes its transport and fires the
// empty-key hook when the key has no subscribers left.
func (r *Registry) remove(id, reason string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.subs, id)
	keySubs := r.byKey[sub.Key]
	delete(keySubs, id)
	remaining := len(keySubs)
	if remaining == 0 {
		delete(r.byKey, sub.Key)
	}
	r.mu.Unlock()

	_ = sub.transport.Close()
	metrics.UpdateActiveSubscriptions(sub.Key.String(), remaining)
	if reason != "detach" && reason != "rotated" {
		metrics.RecordSubscriptionEvicted(reason)
	}
	if remaining == 0 && r.emptyKeyHook != nil {
		r.emptyKeyHook(sub.Key)
	}
}

// Notify pushes an update frame to every subscription under key whose last
// delivered digest differs. This per-subscription comparison is the sole
// gate against redundant pushes: two racing triggers that produce the same
// digest result in exactly one update per subscriber. Returns the number of
// update frames delivered.
func (r *Registry) Notify(ctx context.Context, key types.InterestKey, digest types.Digest, source types.Source) int {
	subs := r.subscribersFor(key)
	delivered := 0
	for _, sub := range subs {
		sub.mu.Lock()
		unchanged := sub.lastDigest == digest
		sub.mu.Unlock()
		if unchanged {
			continue
		}

		if err := sub.send(types.Frame{Kind: types.FrameUpdate, Digest: digest, Source: source}); err != nil {
			r.logger.Debug(ctx, "push failed, evicting subscription",
				logger.String("id", sub.ID), logger.String("key", key.String()), logger.Error(err))
			r.remove(sub.ID, "transport")
			continue
		}
		sub.mu.Lock()
		sub.lastDigest = digest
		sub.mu.Unlock()
		delivered++
	}
	return delivered
}

// subscribersFor snapshots the subscriber set for a key so callers can
// iterate without holding the registry lock.
func (r *Registry) subscribersFor(key types.InterestKey) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]*Subscription, 0, len(r.byKey[key]))
	for _, sub := range r.byKey[key] {
		subs = append(subs, sub)
	}
	return subs
}

// snapshotAll copies the full subscription set.
func (r *Registry) snapshotAll() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}

// ActiveKeys lists every key with at least one live subscription.
func (r *Registry) ActiveKeys() []types.InterestKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]types.InterestKey, 0, len(r.byKey))
	for key := range r.byKey {
		keys = append(keys, key)
	}
	return keys
}

// KeysForEvent lists active keys belonging to one event, for webhook
// fan-out.
func (r *Registry) KeysForEvent(eventKey string) []types.InterestKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []types.InterestKey
	for key := range r.byKey {
		if key.EventKey == eventKey {
			keys = append(keys, key)
		}
	}
	return keys
}

// CountForKey returns the number of live subscriptions under one key.
func (r *Registry) CountForKey(key types.InterestKey) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey[key])
}

// CountByKey reports live subscription counts grouped by interest key.
func (r *Registry) CountByKey() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, len(r.byKey))
	for key, subs := range r.byKey {
		counts[key.String()] = len(subs)
	}
	return counts
}

// Len returns the total number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
