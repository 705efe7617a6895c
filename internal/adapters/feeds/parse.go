package feeds

import (
	"strings"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// Raw wire shapes. The upstreams rename optional fields between seasons, so
// anything unstable is decoded loosely and resolved to canonical fields here;
// nothing outside this file sees the upstream vocabulary.

type rawQueueState struct {
	NowQueuing string          `json:"nowQueuing"`
	Matches    []rawQueueMatch `json:"matches"`
}

type rawQueueMatch struct {
	Label     string   `json:"label"`
	Status    string   `json:"status"`
	RedTeams  []string `json:"redTeams"`
	BlueTeams []string `json:"blueTeams"`
}

func (r rawQueueState) toModel() model.QueueState {
	state := model.QueueState{
		NowQueuing: r.NowQueuing,
		Matches:    make([]model.QueueMatch, 0, len(r.Matches)),
	}
	for _, m := range r.Matches {
		state.Matches = append(state.Matches, model.QueueMatch{
			Label:     m.Label,
			Status:    parseStatus(m.Status),
			RedTeams:  m.RedTeams,
			BlueTeams: m.BlueTeams,
		})
	}
	return state
}

// parseStatus normalizes the queue feed's free-form status strings.
func parseStatus(s string) types.MatchStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on field":
		return types.StatusOnField
	case "completed":
		return types.StatusCompleted
	case "queued", "queuing", "now queuing", "queuing soon", "on deck":
		return types.StatusQueued
	default:
		return types.StatusScheduled
	}
}

type rawResultMatch struct {
	Key             string                    `json:"key"`
	CompLevel       string                    `json:"comp_level"`
	MatchNumber     int                       `json:"match_number"`
	Alliances       *rawAlliances             `json:"alliances"`
	WinningAlliance string                    `json:"winning_alliance"`
	ScoreBreakdown  map[string]map[string]any `json:"score_breakdown"`
}

type rawAlliances struct {
	Red  rawAlliance `json:"red"`
	Blue rawAlliance `json:"blue"`
}

type rawAlliance struct {
	Score int `json:"score"`
}

// toModel converts one scored match; matches without alliance data (not yet
// played) are skipped.
func (r rawResultMatch) toModel() (model.ResultRecord, bool) {
	if r.Alliances == nil {
		return model.ResultRecord{}, false
	}
	rec := model.ResultRecord{
		PhaseCode: r.CompLevel,
		Sequence:  r.MatchNumber,
		Red:       model.SideResult{Score: r.Alliances.Red.Score},
		Blue:      model.SideResult{Score: r.Alliances.Blue.Score},
	}
	switch r.WinningAlliance {
	case "red":
		rec.WinningSide = types.SideRed
	case "blue":
		rec.WinningSide = types.SideBlue
	}
	if r.ScoreBreakdown != nil {
		rec.Red.Bonuses = resolveBonuses(r.ScoreBreakdown["red"])
		rec.Blue.Bonuses = resolveBonuses(r.ScoreBreakdown["blue"])
	}
	return rec, true
}

// bonusAliases maps each canonical bonus to its upstream field names, the
// current season's name first, deprecated fallbacks after. The first alias
// present in the payload decides; later aliases are not consulted.
var bonusAliases = []struct {
	bonus   model.Bonus
	aliases []string
}{
	{model.BonusAuto, []string{"autoBonusAchieved"}},
	{model.BonusBarge, []string{"bargeBonusAchieved", "endgameRankingPoint", "bargeRankingPoint"}},
	{model.BonusCoral, []string{"coralBonusAchieved"}},
	{model.BonusCoopertition, []string{"coopertitionBonus", "coopertitionRankingPoint", "coopertitionRP"}},
}

// resolveBonuses extracts achieved bonuses from one side's breakdown.
func resolveBonuses(breakdown map[string]any) []model.Bonus {
	if breakdown == nil {
		return nil
	}
	var bonuses []model.Bonus
	for _, entry := range bonusAliases {
		for _, alias := range entry.aliases {
			v, present := breakdown[alias]
			if !present {
				continue
			}
			if truthy(v) {
				bonuses = append(bonuses, entry.bonus)
			}
			break
		}
	}
	return bonuses
}

// truthy covers the two encodings upstreams use for achievement flags:
// booleans and numeric 0/1.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return false
	}
}

type rawTeamStatus struct {
	Qual *struct {
		NumTeams int `json:"num_teams"`
		Ranking  *struct {
			Rank          int       `json:"rank"`
			MatchesPlayed int       `json:"matches_played"`
			RankingPoints *float64  `json:"ranking_points"`
			ExtraStats    []float64 `json:"extra_stats"`
			SortOrders    []float64 `json:"sort_orders"`
			Record        struct {
				Wins   int `json:"wins"`
				Losses int `json:"losses"`
				Ties   int `json:"ties"`
			} `json:"record"`
		} `json:"ranking"`
	} `json:"qual"`
}

// toModel resolves the ranking payload. Total ranking points have moved
// between three fields across seasons; precedence is ranking_points, then
// extra_stats[0], then sort_orders[0].
func (r rawTeamStatus) toModel() *model.RankingInfo {
	if r.Qual == nil || r.Qual.Ranking == nil {
		return nil
	}
	rk := r.Qual.Ranking

	var totalRP float64
	switch {
	case rk.RankingPoints != nil:
		totalRP = *rk.RankingPoints
	case len(rk.ExtraStats) > 0:
		totalRP = rk.ExtraStats[0]
	case len(rk.SortOrders) > 0:
		totalRP = rk.SortOrders[0]
	}

	return &model.RankingInfo{
		Rank:          rk.Rank,
		NumTeams:      r.Qual.NumTeams,
		MatchesPlayed: rk.MatchesPlayed,
		RankingPoints: totalRP,
		Wins:          rk.Record.Wins,
		Losses:        rk.Record.Losses,
		Ties:          rk.Record.Ties,
	}
}
