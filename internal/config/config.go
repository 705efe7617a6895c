// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueFeedURL is the base URL of the venue queue feed.
	QueueFeedURL string `koanf:"queue_feed_url"`

	// QueueFeedKey is the API key sent to the queue feed.
	QueueFeedKey string `koanf:"queue_feed_key"`

	// ResultsFeedURL is the base URL of the results/ranking feed.
	ResultsFeedURL string `koanf:"results_feed_url"`

	// ResultsFeedKey is the API key sent to the results feed.
	ResultsFeedKey string `koanf:"results_feed_key"`

	// PushSecret is the shared secret expected on webhook pushes. Empty
	// disables validation; startup logs this as a deployment risk.
	PushSecret string `koanf:"push_secret"`

	// PollInterval is the fallback re-check cadence for active keys.
	PollInterval time.Duration `koanf:"poll_interval"`

	// HeartbeatInterval is the cadence of heartbeat frames to subscribers.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// MaxConnectionAge bounds a subscription's lifetime. Connections older
	// than this are told to reconnect before an intermediary drops them.
	MaxConnectionAge time.Duration `koanf:"max_connection_age"`

	// StaleAfter evicts subscriptions with no delivery activity for this
	// long, even if the transport never reported closure.
	StaleAfter time.Duration `koanf:"stale_after"`

	// FetchTimeout bounds each upstream feed request.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// TriggerQueueSize bounds the in-memory refresh trigger queue.
	TriggerQueueSize int `koanf:"trigger_queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`
}

// New creates a Config populated with defaults. The max connection age stays
// well under the ~100s idle limit common to CDN intermediaries so rotation
// is always server-initiated.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueFeedURL:      "https://frc.nexus/api/v1/event",
		ResultsFeedURL:    "https://www.thebluealliance.com/api/v3",
		PollInterval:      30 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		MaxConnectionAge:  85 * time.Second,
		StaleAfter:        60 * time.Second,
		FetchTimeout:      10 * time.Second,
		TriggerQueueSize:  1024,
		WorkerCount:       4,
	}
}
