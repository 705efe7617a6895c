// Package rankpoints derives the per-match ranking-point breakdown awarded
// to an alliance in qualification play.
package rankpoints

import (
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// Point values fixed by the game manual.
const (
	winPoints   = 3
	tiePoints   = 1
	bonusPoints = 1
)

// bonusLabels maps canonical bonuses to their display names, in award order.
// The order matters only for presentation; the digest sorts independently.
var bonusOrder = []struct {
	bonus model.Bonus
	label string
}{
	{model.BonusAuto, "Auto RP"},
	{model.BonusBarge, "Barge RP"},
	{model.BonusCoral, "Coral RP"},
	{model.BonusCoopertition, "Coopertition RP"},
}

// Derive computes the ranking-point breakdown for one completed match.
// Returns nil for non-qualification matches: only qualification play carries
// ranking points.
func Derive(qualification bool, result types.MatchResult, bonuses []model.Bonus) *model.RankingPoints {
	if !qualification {
		return nil
	}

	achieved := make(map[model.Bonus]bool, len(bonuses))
	for _, b := range bonuses {
		achieved[b] = true
	}

	rp := &model.RankingPoints{Breakdown: []string{}}

	// Auto and Barge bonuses precede the result in the published breakdown
	// order; Coral and Coopertition follow it.
	for _, entry := range bonusOrder[:2] {
		if achieved[entry.bonus] {
			rp.Breakdown = append(rp.Breakdown, entry.label)
			rp.Total += bonusPoints
		}
	}

	switch result {
	case types.ResultWin:
		rp.Breakdown = append(rp.Breakdown, "Win")
		rp.Total += winPoints
	case types.ResultTie:
		rp.Breakdown = append(rp.Breakdown, "Tie")
		rp.Total += tiePoints
	case types.ResultLoss:
		// A loss contributes nothing but the bonuses still count.
	}

	for _, entry := range bonusOrder[2:] {
		if achieved[entry.bonus] {
			rp.Breakdown = append(rp.Breakdown, entry.label)
			rp.Total += bonusPoints
		}
	}

	return rp
}
