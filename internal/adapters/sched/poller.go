// Package sched provides the polling fallback that keeps snapshots fresh
// when no webhook pushes arrive.
package sched

import (
	"context"
	"time"

	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
)

// Default poller configuration constants.
const (
	defaultPollInterval = 30 * time.Second
)

// KeyLister reports the interest keys that currently have subscribers.
// Keys with no subscribers are never polled.
type KeyLister interface {
	ActiveKeys() []types.InterestKey
}

// TriggerFunc requests a refresh for one key. It reports whether the
// request was accepted; a coalesced or dropped trigger returns false.
type TriggerFunc func(ctx context.Context, key types.InterestKey) bool

// Poller periodically triggers refresh cycles for every active key.
type Poller struct {
	keys     KeyLister
	trigger  TriggerFunc
	interval time.Duration
	logger   logger.Logger
}

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithInterval sets the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Poller.
func New(keys KeyLister, trigger TriggerFunc, opts ...Option) *Poller {
	p := &Poller{
		keys:     keys,
		trigger:  trigger,
		interval: defaultPollInterval,
		logger:   logger.Get().Named("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info(ctx, "poller started", logger.Any("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one polling pass. Exported so tests can drive passes directly.
func (p *Poller) Tick(ctx context.Context) {
	for _, key := range p.keys.ActiveKeys() {
		if !p.trigger(ctx, key) {
			p.logger.Debug(ctx, "poll trigger coalesced", logger.String("key", key.String()))
		}
	}
}
