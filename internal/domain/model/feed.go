package model

import "github.com/okian/sideline/internal/domain/types"

// QueueState is the raw venue-queue feed payload for one event.
type QueueState struct {
	NowQueuing string
	Matches    []QueueMatch
}

// QueueMatch is one raw schedule entry from the queue feed.
type QueueMatch struct {
	Label     string
	Status    types.MatchStatus
	RedTeams  []string
	BlueTeams []string
}

// Bonus is a canonical ranking-point bonus achieved by an alliance. The feed
// adapter resolves seasonal upstream field aliases to these values.
type Bonus string

const (
	BonusAuto         Bonus = "auto"
	BonusBarge        Bonus = "barge"
	BonusCoral        Bonus = "coral"
	BonusCoopertition Bonus = "coopertition"
)

// SideResult is one alliance's share of a match result.
type SideResult struct {
	Score   int
	Bonuses []Bonus
}

// ResultRecord is one raw completed-match result from the results feed.
// WinningSide is empty for a declared tie.
type ResultRecord struct {
	PhaseCode   string
	Sequence    int
	Red         SideResult
	Blue        SideResult
	WinningSide types.Side
}

// JoinKey is the lookup key for matching a schedule entry against results:
// phase code and sequence with a separator so e.g. qm1 and qm10 never
// collide.
func (r ResultRecord) JoinKey() string {
	return joinKey(r.PhaseCode, r.Sequence)
}

// Side returns the result fields for one alliance side.
func (r ResultRecord) Side(s types.Side) SideResult {
	if s == types.SideRed {
		return r.Red
	}
	return r.Blue
}

// RankingInfo is the raw ranking feed payload for one team at one event.
type RankingInfo struct {
	Rank          int
	NumTeams      int
	MatchesPlayed int
	RankingPoints float64
	Wins          int
	Losses        int
	Ties          int
}
