// Package types contains common types used across the application
package types

import "strings"

// MatchStatus is the lifecycle state of a match as reported by (or inferred
// from) the queue feed.
type MatchStatus string

// Match lifecycle states, ordered from least to most progressed.
const (
	StatusScheduled MatchStatus = "Scheduled"
	StatusQueued    MatchStatus = "Queued"
	StatusOnField   MatchStatus = "On field"
	StatusCompleted MatchStatus = "Completed"
)

// MatchResult is the outcome of a completed match from the tracked team's
// perspective. Empty means results are not available yet.
type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultTie  MatchResult = "tie"
)

// Side identifies an alliance side.
type Side string

const (
	SideRed  Side = "red"
	SideBlue Side = "blue"
)

// Opposing returns the other side.
func (s Side) Opposing() Side {
	if s == SideRed {
		return SideBlue
	}
	return SideRed
}

// Digest is a fixed-width hex fingerprint of the change-relevant projection
// of a snapshot. Empty means no digest has been computed yet.
type Digest string

// Source tags which trigger path produced an update.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourcePoll    Source = "poll"
)

// FrameKind names the frame types emitted to subscribers.
type FrameKind string

const (
	FrameConnected FrameKind = "connected"
	FrameHeartbeat FrameKind = "heartbeat"
	FrameUpdate    FrameKind = "update"
	FrameReconnect FrameKind = "reconnect"
)

// Frame is one message pushed to a subscriber.
type Frame struct {
	Kind      FrameKind `json:"kind"`
	Digest    Digest    `json:"digest,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

// InterestKey identifies one (event, team) synchronization lineage.
// Always construct through NewInterestKey so keys compare equal regardless
// of upstream casing or the optional "frc" team prefix.
type InterestKey struct {
	EventKey string
	TeamKey  string
}

// NewInterestKey normalizes the raw event and team identifiers: the event
// key is lowercased and the team key loses any "frc" prefix.
func NewInterestKey(eventKey, teamKey string) InterestKey {
	team := strings.TrimSpace(teamKey)
	if strings.HasPrefix(strings.ToLower(team), "frc") {
		team = team[3:]
	}
	return InterestKey{
		EventKey: strings.ToLower(strings.TrimSpace(eventKey)),
		TeamKey:  team,
	}
}

// String renders the key as "event/team", usable as a metric label.
func (k InterestKey) String() string {
	return k.EventKey + "/" + k.TeamKey
}

// Zero reports whether either half of the key is missing.
func (k InterestKey) Zero() bool {
	return k.EventKey == "" || k.TeamKey == ""
}
