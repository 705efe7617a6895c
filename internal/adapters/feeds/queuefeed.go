// Package feeds provides clients for the two upstream services: the live
// venue-queue feed and the results/ranking feed. Parsing is tolerant of
// seasonal field renames; the rest of the system only sees canonical fields.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/sideline/internal/domain/model"
)

const defaultFetchTimeout = 10 * time.Second

// QueueFeed retrieves raw match-queue state for an event.
type QueueFeed interface {
	// QueueState returns the ordered match list with statuses, rosters and
	// the "now queuing" label. Fails with ErrUnavailable on transient
	// upstream errors.
	QueueState(ctx context.Context, eventKey string) (model.QueueState, error)
}

// HTTPQueueFeed implements QueueFeed against the venue queue HTTP API.
type HTTPQueueFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// QueueOption applies a configuration option to the HTTPQueueFeed.
type QueueOption func(*HTTPQueueFeed)

// WithQueueAPIKey sets the API key sent on every request.
func WithQueueAPIKey(key string) QueueOption {
	return func(f *HTTPQueueFeed) { f.apiKey = key }
}

// WithQueueTimeout bounds each request. Exceeding it fails only that fetch.
func WithQueueTimeout(d time.Duration) QueueOption {
	return func(f *HTTPQueueFeed) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithQueueHTTPClient replaces the underlying HTTP client.
func WithQueueHTTPClient(c *http.Client) QueueOption {
	return func(f *HTTPQueueFeed) {
		if c != nil {
			f.client = c
		}
	}
}

// NewHTTPQueueFeed creates a queue feed client for the given base URL.
func NewHTTPQueueFeed(baseURL string, opts ...QueueOption) *HTTPQueueFeed {
	f := &HTTPQueueFeed{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// QueueState fetches and normalizes the queue feed payload for one event.
func (f *HTTPQueueFeed) QueueState(ctx context.Context, eventKey string) (model.QueueState, error) {
	url := f.baseURL + "/" + eventKey
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.QueueState{}, fmt.Errorf("build queue request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("Nexus-Api-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.QueueState{}, fmt.Errorf("%w: queue feed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.QueueState{}, fmt.Errorf("%w: event %q", ErrNotFound, eventKey)
	case resp.StatusCode != http.StatusOK:
		return model.QueueState{}, fmt.Errorf("%w: queue feed returned %s", ErrUnavailable, resp.Status)
	}

	var raw rawQueueState
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.QueueState{}, fmt.Errorf("%w: queue state: %w", ErrDecode, err)
	}
	return raw.toModel(), nil
}
