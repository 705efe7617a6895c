package feeds_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/sideline/internal/adapters/feeds"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHTTPQueueFeed(t *testing.T) {
	Convey("Given a queue feed upstream", t, func() {
		ctx := context.Background()

		Convey("When the upstream returns a full payload", func() {
			var gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("Nexus-Api-Key")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"nowQueuing": "Qualification 13",
					"matches": [
						{"label": "Qualification 11", "status": "On field", "redTeams": ["frc340","frc1511","frc3015"], "blueTeams": ["frc5254","frc191","frc578"]},
						{"label": "Qualification 12", "status": "Now queuing", "redTeams": ["frc254"], "blueTeams": ["frc1678"]},
						{"label": "Qualification 13", "status": "something new", "redTeams": ["frc118"], "blueTeams": ["frc148"]}
					]
				}`))
			}))
			defer srv.Close()

			feed := feeds.NewHTTPQueueFeed(srv.URL, feeds.WithQueueAPIKey("secret"))
			state, err := feed.QueueState(ctx, "2025nyro")

			Convey("Then statuses are normalized and the key header is sent", func() {
				So(err, ShouldBeNil)
				So(gotKey, ShouldEqual, "secret")
				So(state.NowQueuing, ShouldEqual, "Qualification 13")
				So(state.Matches, ShouldHaveLength, 3)
				So(state.Matches[0].Status, ShouldEqual, types.StatusOnField)
				So(state.Matches[1].Status, ShouldEqual, types.StatusQueued)
				So(state.Matches[2].Status, ShouldEqual, types.StatusScheduled)
			})
		})

		Convey("When the event is unknown", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			}))
			defer srv.Close()

			_, err := feeds.NewHTTPQueueFeed(srv.URL).QueueState(ctx, "bogus")

			Convey("Then the error is ErrNotFound", func() {
				So(errors.Is(err, feeds.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the upstream is failing", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			_, err := feeds.NewHTTPQueueFeed(srv.URL).QueueState(ctx, "2025nyro")

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, feeds.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the payload is not JSON", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			}))
			defer srv.Close()

			_, err := feeds.NewHTTPQueueFeed(srv.URL).QueueState(ctx, "2025nyro")

			Convey("Then the error is ErrDecode", func() {
				So(errors.Is(err, feeds.ErrDecode), ShouldBeTrue)
			})
		})
	})
}

func TestHTTPResultsFeedResults(t *testing.T) {
	Convey("Given a results feed upstream", t, func() {
		ctx := context.Background()

		Convey("When matches carry scores and bonus flags", func() {
			var gotPath, gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotKey = r.Header.Get("X-TBA-Auth-Key")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[
					{
						"key": "2025nyro_qm11", "comp_level": "qm", "match_number": 11,
						"winning_alliance": "red",
						"alliances": {"red": {"score": 80}, "blue": {"score": 55}},
						"score_breakdown": {
							"red": {"autoBonusAchieved": true, "coralBonusAchieved": false, "coopertitionBonus": 1},
							"blue": {"endgameRankingPoint": true}
						}
					},
					{"key": "2025nyro_qm12", "comp_level": "qm", "match_number": 12, "alliances": null}
				]`))
			}))
			defer srv.Close()

			feed := feeds.NewHTTPResultsFeed(srv.URL, feeds.WithResultsAPIKey("tba-key"))
			records, err := feed.Results(ctx, "2025nyro")

			Convey("Then only the played match is returned, bonuses resolved", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/event/2025nyro/matches")
				So(gotKey, ShouldEqual, "tba-key")
				So(records, ShouldHaveLength, 1)

				rec := records[0]
				So(rec.JoinKey(), ShouldEqual, "qm_11")
				So(rec.WinningSide, ShouldEqual, types.SideRed)
				So(rec.Red.Score, ShouldEqual, 80)
				So(rec.Blue.Score, ShouldEqual, 55)
				So(rec.Red.Bonuses, ShouldResemble, []model.Bonus{model.BonusAuto, model.BonusCoopertition})
				So(rec.Blue.Bonuses, ShouldResemble, []model.Bonus{model.BonusBarge})
			})
		})

		Convey("When the current alias is present but false and a fallback is true", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[
					{
						"key": "2025nyro_qm1", "comp_level": "qm", "match_number": 1,
						"winning_alliance": "",
						"alliances": {"red": {"score": 40}, "blue": {"score": 40}},
						"score_breakdown": {
							"red": {"bargeBonusAchieved": false, "endgameRankingPoint": true},
							"blue": {}
						}
					}
				]`))
			}))
			defer srv.Close()

			records, err := feeds.NewHTTPResultsFeed(srv.URL).Results(ctx, "2025nyro")

			Convey("Then the first present alias wins and the fallback is ignored", func() {
				So(err, ShouldBeNil)
				So(records[0].Red.Bonuses, ShouldBeEmpty)
				So(records[0].WinningSide, ShouldEqual, types.Side(""))
			})
		})
	})
}

func TestHTTPResultsFeedRanking(t *testing.T) {
	Convey("Given a ranking upstream", t, func() {
		ctx := context.Background()

		Convey("When ranking_points is present", func() {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"qual": {
						"num_teams": 40,
						"ranking": {
							"rank": 3, "matches_played": 8,
							"ranking_points": 24,
							"extra_stats": [99], "sort_orders": [88],
							"record": {"wins": 6, "losses": 2, "ties": 0}
						}
					}
				}`))
			}))
			defer srv.Close()

			info, err := feeds.NewHTTPResultsFeed(srv.URL).Ranking(ctx, "340", "2025nyro")

			Convey("Then ranking_points takes precedence over the stat fallbacks", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/team/frc340/event/2025nyro/status")
				So(info, ShouldNotBeNil)
				So(info.Rank, ShouldEqual, 3)
				So(info.NumTeams, ShouldEqual, 40)
				So(info.RankingPoints, ShouldEqual, 24)
				So(info.Wins, ShouldEqual, 6)
			})
		})

		Convey("When ranking_points is absent but extra_stats has a value", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"qual": {
						"num_teams": 40,
						"ranking": {
							"rank": 5, "matches_played": 6,
							"extra_stats": [18], "sort_orders": [9],
							"record": {"wins": 4, "losses": 2, "ties": 0}
						}
					}
				}`))
			}))
			defer srv.Close()

			info, err := feeds.NewHTTPResultsFeed(srv.URL).Ranking(ctx, "340", "2025nyro")

			Convey("Then extra_stats[0] is used before sort_orders[0]", func() {
				So(err, ShouldBeNil)
				So(info.RankingPoints, ShouldEqual, 18)
			})
		})

		Convey("When the team has no qualification ranking yet", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"qual": null}`))
			}))
			defer srv.Close()

			info, err := feeds.NewHTTPResultsFeed(srv.URL).Ranking(ctx, "340", "2025nyro")

			Convey("Then both the info and the error are nil", func() {
				So(err, ShouldBeNil)
				So(info, ShouldBeNil)
			})
		})
	})
}
