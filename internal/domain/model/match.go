// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/sideline/internal/domain/types"
)

// Score is a completed match's score pair from the tracked team's
// perspective.
type Score struct {
	Alliance int `json:"alliance"`
	Opposing int `json:"opposing"`
}

// RankingPoints is the per-match bonus breakdown for qualification matches.
type RankingPoints struct {
	Total     int      `json:"total"`
	Breakdown []string `json:"breakdown"`
}

// MatchRecord is one match on the schedule, merged from the queue feed and,
// once completed, the results feed. At most one record exists per
// (event, phase, sequence); records are built by the assembler and never
// mutated afterwards.
type MatchRecord struct {
	Label         string            `json:"label"` // e.g. "Qualification 12"
	Phase         string            `json:"phase"`
	Sequence      int               `json:"sequence"`
	Status        types.MatchStatus `json:"status"`
	RedTeams      []string          `json:"redTeams"`
	BlueTeams     []string          `json:"blueTeams"`
	Result        types.MatchResult `json:"result,omitempty"`
	Score         *Score            `json:"score,omitempty"`
	RankingPoints *RankingPoints    `json:"rankingPoints,omitempty"`
}

// ID returns the stable match identifier used in the change digest:
// the label with whitespace collapsed to dashes.
func (m MatchRecord) ID() string {
	return strings.Join(strings.Fields(m.Label), "-")
}

// Side returns which alliance the team plays on, or false if the team is not
// in this match.
func (m MatchRecord) Side(team string) (types.Side, bool) {
	for _, t := range m.RedTeams {
		if t == team {
			return types.SideRed, true
		}
	}
	for _, t := range m.BlueTeams {
		if t == team {
			return types.SideBlue, true
		}
	}
	return "", false
}

// IsQualification reports whether the match belongs to the qualification
// phase. Only qualification matches carry ranking points.
func (m MatchRecord) IsQualification() bool {
	return strings.EqualFold(m.Phase, "Qualification")
}

// ParseLabel splits a match label like "Qualification 12" into its phase name
// and numeric sequence. A label without a numeric sequence yields sequence 0.
func ParseLabel(label string) (phase string, sequence int) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return "", 0
	}
	phase = fields[0]
	if len(fields) > 1 {
		sequence, _ = strconv.Atoi(fields[1])
	}
	return phase, sequence
}

// Record is a derived win/loss/tie tally counted from completed matches.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// String renders the record as "W-L-T".
func (r Record) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Ties)
}

// RankingSummary is the team's event standing, merged from the ranking feed
// and locally derived counts.
type RankingSummary struct {
	Rank          int     `json:"rank"`
	NumTeams      int     `json:"numTeams"`
	MatchesPlayed int     `json:"matchesPlayed"`
	RankingPoints float64 `json:"rankingPoints"`
	Record        string  `json:"record"`
}

// EventSnapshot is the canonical merged view of one (event, team) pair.
// A snapshot is created fresh on every assembly cycle and never mutated in
// place.
type EventSnapshot struct {
	Key         types.InterestKey `json:"-"`
	NowQueuing  string            `json:"nowQueuing,omitempty"`
	Matches     []MatchRecord     `json:"matches"`
	Record      Record            `json:"record"`
	Ranking     *RankingSummary   `json:"ranking,omitempty"`
	AssembledAt time.Time         `json:"assembledAt"`
}
