package feeds

import "errors"

// Sentinel kinds for feed errors.
var (
	// ErrUnavailable marks a transient upstream failure: timeout, 5xx,
	// connection refused. Callers degrade or retain the previous snapshot.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrNotFound marks an unknown event or team at the upstream.
	ErrNotFound = errors.New("not found upstream")

	// ErrDecode marks an upstream payload the adapter could not parse.
	ErrDecode = errors.New("upstream payload decode failed")
)
