package assemble_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/sideline/internal/adapters/feeds"
	"github.com/okian/sideline/internal/domain/assemble"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeQueueFeed struct {
	state model.QueueState
	err   error
}

func (f *fakeQueueFeed) QueueState(_ context.Context, _ string) (model.QueueState, error) {
	return f.state, f.err
}

type fakeResultsFeed struct {
	results    []model.ResultRecord
	resultsErr error
	ranking    *model.RankingInfo
	rankingErr error
}

func (f *fakeResultsFeed) Results(_ context.Context, _ string) ([]model.ResultRecord, error) {
	return f.results, f.resultsErr
}

func (f *fakeResultsFeed) Ranking(_ context.Context, _, _ string) (*model.RankingInfo, error) {
	return f.ranking, f.rankingErr
}

func queueMatch(label string, status types.MatchStatus, red, blue []string) model.QueueMatch {
	return model.QueueMatch{Label: label, Status: status, RedTeams: red, BlueTeams: blue}
}

func TestAssemble(t *testing.T) {
	Convey("Given a tracked team and upstream feeds", t, func() {
		ctx := context.Background()
		key := types.NewInterestKey("2025nyro", "340")
		team := []string{"340", "1", "2"}
		others := []string{"3", "4", "5"}

		Convey("When the queue feed fails", func() {
			a := assemble.New(
				&fakeQueueFeed{err: feeds.ErrUnavailable},
				&fakeResultsFeed{},
			)

			_, err := a.Assemble(ctx, key)

			Convey("Then the whole cycle fails", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, feeds.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When an earlier match is still on field after a later one took it", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Qualification 2", types.StatusOnField, team, others),
						queueMatch("Qualification 1", types.StatusOnField, team, others),
						queueMatch("Qualification 3", types.StatusQueued, team, others),
					},
				}},
				&fakeResultsFeed{},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then the earlier one is inferred completed and order is fixed", func() {
				So(err, ShouldBeNil)
				So(snapshot.Matches, ShouldHaveLength, 3)
				So(snapshot.Matches[0].Label, ShouldEqual, "Qualification 1")
				So(snapshot.Matches[0].Status, ShouldEqual, types.StatusCompleted)
				So(snapshot.Matches[1].Label, ShouldEqual, "Qualification 2")
				So(snapshot.Matches[1].Status, ShouldEqual, types.StatusOnField)
				So(snapshot.Matches[2].Status, ShouldEqual, types.StatusQueued)
			})
		})

		Convey("When the schedule includes matches the team is not in", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Qualification 1", types.StatusScheduled, team, others),
						queueMatch("Qualification 2", types.StatusScheduled, others, []string{"6", "7", "8"}),
					},
				}},
				&fakeResultsFeed{},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then only the team's matches survive", func() {
				So(err, ShouldBeNil)
				So(snapshot.Matches, ShouldHaveLength, 1)
				So(snapshot.Matches[0].Label, ShouldEqual, "Qualification 1")
			})
		})

		Convey("When a completed match has a result", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					NowQueuing: "Qualification 2",
					Matches: []model.QueueMatch{
						queueMatch("Qualification 1", types.StatusCompleted, team, others),
						queueMatch("Qualification 2", types.StatusQueued, others, team),
					},
				}},
				&fakeResultsFeed{
					results: []model.ResultRecord{{
						PhaseCode:   "qm",
						Sequence:    1,
						Red:         model.SideResult{Score: 80, Bonuses: []model.Bonus{model.BonusCoral}},
						Blue:        model.SideResult{Score: 55},
						WinningSide: types.SideRed,
					}},
					ranking: &model.RankingInfo{Rank: 3, NumTeams: 40, MatchesPlayed: 5, RankingPoints: 12},
				},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then result, score and ranking points are joined from the team's side", func() {
				So(err, ShouldBeNil)
				m := snapshot.Matches[0]
				So(m.Result, ShouldEqual, types.ResultWin)
				So(m.Score.Alliance, ShouldEqual, 80)
				So(m.Score.Opposing, ShouldEqual, 55)
				So(m.RankingPoints, ShouldNotBeNil)
				So(m.RankingPoints.Total, ShouldEqual, 4)
				So(m.RankingPoints.Breakdown, ShouldResemble, []string{"Win", "Coral RP"})
			})

			Convey("Then the record counts the win and the ranking merges local counts", func() {
				So(err, ShouldBeNil)
				So(snapshot.Record, ShouldResemble, model.Record{Wins: 1})
				So(snapshot.Ranking, ShouldNotBeNil)
				So(snapshot.Ranking.Rank, ShouldEqual, 3)
				So(snapshot.Ranking.MatchesPlayed, ShouldEqual, 1)
				So(snapshot.Ranking.Record, ShouldEqual, "1-0-0")
				So(snapshot.NowQueuing, ShouldEqual, "Qualification 2")
			})
		})

		Convey("When the team loses or ties", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Qualification 1", types.StatusCompleted, others, team),
						queueMatch("Qualification 2", types.StatusCompleted, team, others),
					},
				}},
				&fakeResultsFeed{
					results: []model.ResultRecord{
						{PhaseCode: "qm", Sequence: 1, Red: model.SideResult{Score: 70}, Blue: model.SideResult{Score: 50}, WinningSide: types.SideRed},
						{PhaseCode: "qm", Sequence: 2, Red: model.SideResult{Score: 60}, Blue: model.SideResult{Score: 60}},
					},
				},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then the perspective flips per side and ties are explicit", func() {
				So(err, ShouldBeNil)
				So(snapshot.Matches[0].Result, ShouldEqual, types.ResultLoss)
				So(snapshot.Matches[0].Score.Alliance, ShouldEqual, 50)
				So(snapshot.Matches[1].Result, ShouldEqual, types.ResultTie)
				So(snapshot.Record, ShouldResemble, model.Record{Losses: 1, Ties: 1})
			})
		})

		Convey("When the results feed fails", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Qualification 1", types.StatusCompleted, team, others),
					},
				}},
				&fakeResultsFeed{resultsErr: feeds.ErrUnavailable, rankingErr: feeds.ErrUnavailable},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then the snapshot degrades instead of failing", func() {
				So(err, ShouldBeNil)
				So(snapshot.Matches[0].Status, ShouldEqual, types.StatusCompleted)
				So(snapshot.Matches[0].Result, ShouldEqual, types.MatchResult(""))
				So(snapshot.Matches[0].Score, ShouldBeNil)
				So(snapshot.Ranking, ShouldBeNil)
			})
		})

		Convey("When a playoff match completes", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Playoff 1", types.StatusCompleted, team, others),
					},
				}},
				&fakeResultsFeed{
					results: []model.ResultRecord{{
						PhaseCode:   "pl",
						Sequence:    1,
						Red:         model.SideResult{Score: 90, Bonuses: []model.Bonus{model.BonusAuto}},
						Blue:        model.SideResult{Score: 30},
						WinningSide: types.SideRed,
					}},
				},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then the result joins but no ranking points are derived", func() {
				So(err, ShouldBeNil)
				So(snapshot.Matches[0].Result, ShouldEqual, types.ResultWin)
				So(snapshot.Matches[0].RankingPoints, ShouldBeNil)
			})
		})

		Convey("When the team has no ranking yet", func() {
			a := assemble.New(
				&fakeQueueFeed{state: model.QueueState{
					Matches: []model.QueueMatch{
						queueMatch("Qualification 1", types.StatusScheduled, team, others),
					},
				}},
				&fakeResultsFeed{rankingErr: feeds.ErrNotFound},
			)

			snapshot, err := a.Assemble(ctx, key)

			Convey("Then the snapshot simply omits the ranking", func() {
				So(err, ShouldBeNil)
				So(snapshot.Ranking, ShouldBeNil)
			})
		})
	})
}
