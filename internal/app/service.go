// Package service provides the core engine that implements the
// dependencies required by the HTTP API: it owns the trigger pipeline,
// the snapshot store and the subscription registry.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	triggerqueue "github.com/okian/sideline/internal/adapters/mq/queue"
	workerpool "github.com/okian/sideline/internal/adapters/mq/worker"
	"github.com/okian/sideline/internal/adapters/registry"
	repository "github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/adapters/sched"
	"github.com/okian/sideline/internal/domain/assemble"
	"github.com/okian/sideline/internal/domain/dedupe"
	"github.com/okian/sideline/internal/domain/digest"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Service wires feeds, assembler, store, registry and the trigger pipeline
// into one engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	assembler    *assemble.Assembler
	store        repository.Store
	coalescer    dedupe.Coalescer
	triggerQueue triggerqueue.Queue
	registry     *registry.Registry
	workerPool   *workerpool.Pool
	poller       *sched.Poller

	// Configuration
	workerCount       int
	queueSize         int
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	maxConnectionAge  time.Duration
	staleAfter        time.Duration

	// Push bookkeeping for the stats endpoint
	pushMu        sync.Mutex
	pushesByKey   map[string]int64
	lastPushTime  map[string]time.Time
	pushSubsByKey map[string]int64
	lastPushSubs  map[string]int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAssembler sets the snapshot assembler. Required.
func WithAssembler(a *assemble.Assembler) Option {
	return func(s *Service) { s.assembler = a }
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending triggers.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPollInterval sets the polling fallback cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithHeartbeatInterval sets the subscriber heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.heartbeatInterval = d
		}
	}
}

// WithMaxConnectionAge sets how long a subscription may live before it is
// rotated.
func WithMaxConnectionAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxConnectionAge = d
		}
	}
}

// WithStaleAfter sets the inactivity window before a subscription is
// evicted.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       4,
		queueSize:         1024,
		pollInterval:      30 * time.Second,
		heartbeatInterval: 20 * time.Second,
		maxConnectionAge:  85 * time.Second,
		staleAfter:        60 * time.Second,
		pushesByKey:       make(map[string]int64),
		lastPushTime:      make(map[string]time.Time),
		pushSubsByKey:     make(map[string]int64),
		lastPushSubs:      make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the components and launches the background loops. The
// loops stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.assembler == nil {
		return fmt.Errorf("%w: assembler is required", ErrNotStarted)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting sync engine...")

	s.store = repository.NewMemStore()
	s.coalescer = dedupe.NewCoalescer()
	s.triggerQueue = triggerqueue.NewInMemoryQueue(
		triggerqueue.WithCapacity(s.queueSize),
	)
	s.registry = registry.New(s,
		registry.WithHeartbeatInterval(s.heartbeatInterval),
		registry.WithMaxConnectionAge(s.maxConnectionAge),
		registry.WithStaleAfter(s.staleAfter),
		registry.WithEmptyKeyHook(s.onKeyEmpty),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.triggerQueue, s)
	s.workerPool.Start(ctx)

	s.poller = sched.New(s.registry, s.TriggerPoll,
		sched.WithInterval(s.pollInterval),
	)
	go s.poller.Run(ctx)
	go s.registry.Run(ctx)

	s.started = true
	s.logger.Info(ctx, "sync engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Any("pollInterval", s.pollInterval),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping sync engine...")

	if q, ok := s.triggerQueue.(*triggerqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "sync engine stopped")
}

// Attach computes a baseline snapshot for key, registers the transport and
// sends the connected frame. When the upstream fetch fails but a last good
// snapshot exists, the stored digest serves as the baseline so a flaky feed
// never blocks reconnects.
func (s *Service) Attach(ctx context.Context, transport registry.Transport, key types.InterestKey) (*registry.Subscription, error) {
	baseline, err := s.refreshSnapshot(ctx, key)
	if err != nil {
		if _, stored, ok := s.store.Latest(ctx, key); ok {
			s.logger.Warn(ctx, "attach falling back to stored snapshot",
				logger.String("key", key.String()), logger.Error(err))
			baseline = stored
		} else {
			return nil, err
		}
	}

	return s.registry.Attach(transport, key, baseline)
}

// Detach removes a subscription.
func (s *Service) Detach(id string) {
	s.registry.Detach(id)
}

// Refresh runs one refresh cycle for a trigger. Implements worker.Refresher.
func (s *Service) Refresh(ctx context.Context, t triggerqueue.Trigger) error {
	defer s.coalescer.Unrecord(t.Key)

	start := time.Now()
	defer func() {
		metrics.RecordRefreshDuration(time.Since(start).Seconds())
	}()

	_, prevDigest, hadPrev := s.store.Latest(ctx, t.Key)

	newDigest, err := s.refreshSnapshot(ctx, t.Key)
	if err != nil {
		// The stored snapshot keeps serving; a failed cycle is not "no
		// change", it is "unknown", and the next trigger retries.
		metrics.RecordRefreshCycle(string(t.Source), "error")
		return fmt.Errorf("refresh %s: %w", t.Key.String(), err)
	}

	if hadPrev && newDigest == prevDigest {
		metrics.RecordRefreshCycle(string(t.Source), "unchanged")
		return nil
	}

	metrics.RecordRefreshCycle(string(t.Source), "changed")
	delivered := s.registry.Notify(ctx, t.Key, newDigest, t.Source)
	s.logger.Debug(ctx, "snapshot changed",
		logger.String("key", t.Key.String()),
		logger.String("digest", string(newDigest)),
		logger.String("source", string(t.Source)),
		logger.Int("delivered", delivered),
	)
	return nil
}

// refreshSnapshot assembles a fresh snapshot for key, stores it and returns
// its digest.
func (s *Service) refreshSnapshot(ctx context.Context, key types.InterestKey) (types.Digest, error) {
	snapshot, err := s.assembler.Assemble(ctx, key)
	if err != nil {
		return "", err
	}
	d := digest.Sum(snapshot)
	s.store.Put(ctx, key, snapshot, d)
	return d, nil
}

// TriggerEvent enqueues a refresh for every active interest key under an
// event. Returns the number of live subscriptions the push reached through
// the keys actually enqueued; keys with a cycle already pending are
// coalesced away and their subscribers are not counted twice.
func (s *Service) TriggerEvent(ctx context.Context, eventKey string) int {
	metrics.RecordPushReceived(eventKey)

	subscribers := 0
	for _, key := range s.registry.KeysForEvent(eventKey) {
		if s.trigger(ctx, key, types.SourceWebhook) {
			subscribers += s.registry.CountForKey(key)
		}
	}
	metrics.RecordPushTriggeredSubscriptions(subscribers)
	s.recordPush(eventKey, subscribers)
	return subscribers
}

// TriggerPoll enqueues a poll-sourced refresh for one key. Implements
// sched.TriggerFunc.
func (s *Service) TriggerPoll(ctx context.Context, key types.InterestKey) bool {
	return s.trigger(ctx, key, types.SourcePoll)
}

// trigger coalesces and enqueues one refresh request.
func (s *Service) trigger(ctx context.Context, key types.InterestKey, source types.Source) bool {
	if s.coalescer.SeenAndRecord(key) {
		return false
	}
	if !s.triggerQueue.Enqueue(ctx, triggerqueue.Trigger{Key: key, Source: source}) {
		s.coalescer.Unrecord(key)
		s.logger.Warn(ctx, "trigger queue full, dropping trigger",
			logger.String("key", key.String()), logger.String("source", string(source)))
		return false
	}
	return true
}

// Snapshot returns the current snapshot for key, assembling one on demand
// when nothing is stored yet. Snapshots are only retained for keys with
// live subscriptions; a client polling many distinct keys cannot grow the
// store.
func (s *Service) Snapshot(ctx context.Context, key types.InterestKey) (*model.EventSnapshot, types.Digest, error) {
	if snapshot, d, ok := s.store.Latest(ctx, key); ok {
		return snapshot, d, nil
	}

	snapshot, err := s.assembler.Assemble(ctx, key)
	if err != nil {
		return nil, "", err
	}
	d := digest.Sum(snapshot)
	if s.registry.CountForKey(key) > 0 {
		s.store.Put(ctx, key, snapshot, d)
	}
	return snapshot, d, nil
}

// Check computes the current digest for key and compares it against the
// digest a client last saw. An empty lastDigest establishes a baseline and
// never reports change. As with Snapshot, keys without live subscriptions
// leave no stored state behind.
func (s *Service) Check(ctx context.Context, key types.InterestKey, lastDigest types.Digest) (bool, types.Digest, error) {
	snapshot, err := s.assembler.Assemble(ctx, key)
	if err != nil {
		return false, "", err
	}
	current := digest.Sum(snapshot)
	if s.registry.CountForKey(key) > 0 {
		s.store.Put(ctx, key, snapshot, current)
	}
	if lastDigest == "" {
		return false, current, nil
	}
	return current != lastDigest, current, nil
}

// LatestDigest returns the stored digest for key. Implements
// registry.DigestSource for heartbeat frames.
func (s *Service) LatestDigest(ctx context.Context, key types.InterestKey) (types.Digest, bool) {
	_, d, ok := s.store.Latest(ctx, key)
	return d, ok
}

// onKeyEmpty drops per-key state once the last subscription detaches.
func (s *Service) onKeyEmpty(key types.InterestKey) {
	s.store.Forget(context.Background(), key)
}

// recordPush tracks webhook pushes per event for the stats endpoint,
// including how many live subscriptions each push reached.
func (s *Service) recordPush(eventKey string, subscribers int) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	s.pushesByKey[eventKey]++
	s.lastPushTime[eventKey] = time.Now()
	s.pushSubsByKey[eventKey] += int64(subscribers)
	s.lastPushSubs[eventKey] = subscribers
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	workerCount := s.workerCount
	s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     started,
		"workerCount": workerCount,
	}

	if !started {
		return stats
	}

	stats["queueDepth"] = s.triggerQueue.Len(ctx)
	stats["pendingRefreshes"] = s.coalescer.Size()
	stats["subscriptions"] = s.registry.CountByKey()
	stats["totalSubscriptions"] = s.registry.Len()
	stats["storedSnapshots"] = s.store.Count(ctx)

	s.pushMu.Lock()
	pushes := make(map[string]interface{}, len(s.pushesByKey))
	for event, count := range s.pushesByKey {
		pushes[event] = map[string]interface{}{
			"count":                  count,
			"lastPush":               s.lastPushTime[event].Format(time.RFC3339),
			"triggeredSubscriptions": s.pushSubsByKey[event],
			"lastTriggered":          s.lastPushSubs[event],
		}
	}
	s.pushMu.Unlock()
	stats["pushes"] = pushes

	return stats
}
