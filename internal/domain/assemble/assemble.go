// Package assemble merges the two upstream feeds into the canonical
// per-(event, team) snapshot: ordered match statuses, inferred completions,
// joined results, ranking-point breakdowns and derived standings.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/sideline/internal/adapters/feeds"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/rankpoints"
	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Assembler builds immutable snapshots from the queue and results feeds.
type Assembler struct {
	queue   feeds.QueueFeed
	results feeds.ResultsFeed
	logger  logger.Logger
}

// Option applies a configuration option to the Assembler.
type Option func(*Assembler)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// New constructs an Assembler over the given feeds.
func New(queue feeds.QueueFeed, results feeds.ResultsFeed, opts ...Option) *Assembler {
	a := &Assembler{
		queue:   queue,
		results: results,
		logger:  logger.Get().Named("assemble"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble produces a fresh snapshot for one interest key.
//
// A queue feed failure fails the whole cycle: the caller must retain its
// previous snapshot and must not treat the failure as "nothing changed".
// A results or ranking feed failure only degrades the snapshot: completed
// matches keep their status but carry no result, score or ranking points.
func (a *Assembler) Assemble(ctx context.Context, key types.InterestKey) (*model.EventSnapshot, error) {
	state, err := a.queue.QueueState(ctx, key.EventKey)
	if err != nil {
		metrics.RecordUpstreamFetchError("queue")
		return nil, fmt.Errorf("assemble %s: %w", key, err)
	}

	matches := buildMatches(state.Matches)
	sortMatches(matches)
	inferCompletions(matches)
	matches = filterTeam(matches, key.TeamKey)

	a.joinResults(ctx, key, matches)

	snapshot := &model.EventSnapshot{
		Key:         key,
		NowQueuing:  state.NowQueuing,
		Matches:     matches,
		Record:      countRecord(matches),
		AssembledAt: time.Now().UTC(),
	}
	snapshot.Ranking = a.rankingSummary(ctx, key, snapshot)
	return snapshot, nil
}

func buildMatches(raw []model.QueueMatch) []model.MatchRecord {
	matches := make([]model.MatchRecord, 0, len(raw))
	for _, m := range raw {
		phase, seq := model.ParseLabel(m.Label)
		matches = append(matches, model.MatchRecord{
			Label:     m.Label,
			Phase:     phase,
			Sequence:  seq,
			Status:    m.Status,
			RedTeams:  m.RedTeams,
			BlueTeams: m.BlueTeams,
		})
	}
	return matches
}

// sortMatches orders by phase name lexically, then sequence numerically.
func sortMatches(matches []model.MatchRecord) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Phase != matches[j].Phase {
			return matches[i].Phase < matches[j].Phase
		}
		return matches[i].Sequence < matches[j].Sequence
	})
}

// inferCompletions reclassifies a stale "on field" match as completed once a
// strictly later match is also on the field. The queue feed is eventually
// consistent and sometimes never flips a match's terminal status; a later
// match occupying the field is proof the earlier one finished. With matches
// sorted, every on-field match except the last one is done.
func inferCompletions(matches []model.MatchRecord) {
	lastOnField := -1
	for i := range matches {
		if matches[i].Status == types.StatusOnField {
			lastOnField = i
		}
	}
	for i := 0; i < lastOnField; i++ {
		if matches[i].Status == types.StatusOnField {
			matches[i].Status = types.StatusCompleted
		}
	}
}

func filterTeam(matches []model.MatchRecord, team string) []model.MatchRecord {
	filtered := matches[:0]
	for _, m := range matches {
		if _, ok := m.Side(team); ok {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// joinResults attaches result, score and ranking points to completed
// matches. Results feed failure is soft: the matches stay completed, bare.
func (a *Assembler) joinResults(ctx context.Context, key types.InterestKey, matches []model.MatchRecord) {
	hasCompleted := false
	for _, m := range matches {
		if m.Status == types.StatusCompleted {
			hasCompleted = true
			break
		}
	}
	if !hasCompleted {
		return
	}

	results, err := a.results.Results(ctx, key.EventKey)
	if err != nil {
		metrics.RecordUpstreamFetchError("results")
		a.logger.Warn(ctx, "results feed failed, serving degraded snapshot",
			logger.String("key", key.String()), logger.Error(err))
		return
	}

	byKey := make(map[string]model.ResultRecord, len(results))
	for _, r := range results {
		byKey[r.JoinKey()] = r
	}

	for i := range matches {
		m := &matches[i]
		if m.Status != types.StatusCompleted {
			continue
		}
		rec, ok := byKey[model.JoinKey(model.PhaseCode(m.Phase), m.Sequence)]
		if !ok {
			continue
		}
		side, ok := m.Side(key.TeamKey)
		if !ok {
			continue
		}

		own := rec.Side(side)
		opposing := rec.Side(side.Opposing())
		m.Score = &model.Score{Alliance: own.Score, Opposing: opposing.Score}

		switch rec.WinningSide {
		case side:
			m.Result = types.ResultWin
		case side.Opposing():
			m.Result = types.ResultLoss
		case "":
			m.Result = types.ResultTie
		}

		m.RankingPoints = rankpoints.Derive(m.IsQualification(), m.Result, own.Bonuses)
	}
}

// countRecord tallies wins, losses and ties from completed matches. The
// upstream ranking feed also reports a record but may lag; local counting
// is authoritative for display.
func countRecord(matches []model.MatchRecord) model.Record {
	var rec model.Record
	for _, m := range matches {
		if m.Status != types.StatusCompleted {
			continue
		}
		switch m.Result {
		case types.ResultWin:
			rec.Wins++
		case types.ResultLoss:
			rec.Losses++
		case types.ResultTie:
			rec.Ties++
		}
	}
	return rec
}

// rankingSummary merges the ranking feed with locally derived counts.
// Matches played prefers the local completed count, falling back to the
// feed when no completions are visible yet; the record string is always the
// locally counted one.
func (a *Assembler) rankingSummary(ctx context.Context, key types.InterestKey, snapshot *model.EventSnapshot) *model.RankingSummary {
	info, err := a.results.Ranking(ctx, key.TeamKey, key.EventKey)
	if err != nil {
		if !errors.Is(err, feeds.ErrNotFound) {
			metrics.RecordUpstreamFetchError("ranking")
			a.logger.Warn(ctx, "ranking feed failed, omitting ranking summary",
				logger.String("key", key.String()), logger.Error(err))
		}
		return nil
	}
	if info == nil {
		return nil
	}

	completed := 0
	for _, m := range snapshot.Matches {
		if m.Status == types.StatusCompleted {
			completed++
		}
	}
	matchesPlayed := info.MatchesPlayed
	if completed > 0 {
		matchesPlayed = completed
	}

	return &model.RankingSummary{
		Rank:          info.Rank,
		NumTeams:      info.NumTeams,
		MatchesPlayed: matchesPlayed,
		RankingPoints: info.RankingPoints,
		Record:        snapshot.Record.String(),
	}
}
