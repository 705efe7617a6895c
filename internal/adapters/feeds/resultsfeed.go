package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/sideline/internal/domain/model"
)

// ResultsFeed retrieves completed-match results and team ranking data.
type ResultsFeed interface {
	// Results returns all scored matches for an event.
	Results(ctx context.Context, eventKey string) ([]model.ResultRecord, error)

	// Ranking returns the team's standing at the event, or (nil, nil) when
	// the upstream has no ranking for the pair yet.
	Ranking(ctx context.Context, teamKey, eventKey string) (*model.RankingInfo, error)
}

// HTTPResultsFeed implements ResultsFeed against the results HTTP API.
type HTTPResultsFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ResultsOption applies a configuration option to the HTTPResultsFeed.
type ResultsOption func(*HTTPResultsFeed)

// WithResultsAPIKey sets the API key sent on every request.
func WithResultsAPIKey(key string) ResultsOption {
	return func(f *HTTPResultsFeed) { f.apiKey = key }
}

// WithResultsTimeout bounds each request.
func WithResultsTimeout(d time.Duration) ResultsOption {
	return func(f *HTTPResultsFeed) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithResultsHTTPClient replaces the underlying HTTP client.
func WithResultsHTTPClient(c *http.Client) ResultsOption {
	return func(f *HTTPResultsFeed) {
		if c != nil {
			f.client = c
		}
	}
}

// NewHTTPResultsFeed creates a results feed client for the given base URL.
func NewHTTPResultsFeed(baseURL string, opts ...ResultsOption) *HTTPResultsFeed {
	f := &HTTPResultsFeed{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPResultsFeed) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build results request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-TBA-Auth-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: results feed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: results feed returned %s", ErrUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: results payload: %w", ErrDecode, err)
	}
	return nil
}

// Results fetches and normalizes all scored matches for one event.
func (f *HTTPResultsFeed) Results(ctx context.Context, eventKey string) ([]model.ResultRecord, error) {
	var raw []rawResultMatch
	if err := f.get(ctx, f.baseURL+"/event/"+eventKey+"/matches", &raw); err != nil {
		return nil, err
	}

	records := make([]model.ResultRecord, 0, len(raw))
	for _, m := range raw {
		if rec, ok := m.toModel(); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Ranking fetches the team status payload and extracts the qualification
// ranking. Teams without one (e.g. before the event starts) yield nil.
func (f *HTTPResultsFeed) Ranking(ctx context.Context, teamKey, eventKey string) (*model.RankingInfo, error) {
	url := f.baseURL + "/team/frc" + teamKey + "/event/" + eventKey + "/status"
	var raw rawTeamStatus
	if err := f.get(ctx, url, &raw); err != nil {
		return nil, err
	}
	return raw.toModel(), nil
}
