package feedsim_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/okian/sideline/internal/feedsim"
	. "github.com/smartystreets/goconvey/convey"
)

type queuePayload struct {
	NowQueuing string `json:"nowQueuing"`
	Matches    []struct {
		Label    string   `json:"label"`
		Status   string   `json:"status"`
		RedTeams []string `json:"redTeams"`
	} `json:"matches"`
}

func TestSimulator(t *testing.T) {
	Convey("Given a fresh simulator", t, func() {
		sim := feedsim.New("2025test", nil, 6)
		srv := httptest.NewServer(sim.Handler())
		defer srv.Close()

		fetchQueue := func() queuePayload {
			resp, err := srv.Client().Get(srv.URL + "/api/v1/event/2025test")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			var payload queuePayload
			So(json.NewDecoder(resp.Body).Decode(&payload), ShouldBeNil)
			return payload
		}

		Convey("The first match starts on the field with the next one queuing", func() {
			payload := fetchQueue()

			So(payload.Matches, ShouldHaveLength, 6)
			So(payload.Matches[0].Status, ShouldEqual, "On field")
			So(payload.Matches[1].Status, ShouldEqual, "Queued")
			So(payload.NowQueuing, ShouldEqual, "Qualification 2")
			So(payload.Matches[0].RedTeams[0], ShouldStartWith, "frc")
		})

		Convey("When the schedule advances", func() {
			sim.Advance()

			Convey("The queue feed still reports the finished match as on field", func() {
				payload := fetchQueue()

				So(payload.Matches[0].Status, ShouldEqual, "On field")
				So(payload.Matches[1].Status, ShouldEqual, "On field")
				So(payload.NowQueuing, ShouldEqual, "Qualification 3")
			})

			Convey("The results feed scores it", func() {
				resp, err := srv.Client().Get(srv.URL + "/api/v3/event/2025test/matches")
				So(err, ShouldBeNil)
				defer resp.Body.Close()

				var matches []struct {
					Key             string `json:"key"`
					CompLevel       string `json:"comp_level"`
					WinningAlliance string `json:"winning_alliance"`
					Alliances       *struct {
						Red struct {
							Score int `json:"score"`
						} `json:"red"`
					} `json:"alliances"`
				}
				So(json.NewDecoder(resp.Body).Decode(&matches), ShouldBeNil)
				So(matches, ShouldHaveLength, 6)
				So(matches[0].Key, ShouldEqual, "2025test_qm1")
				So(matches[0].CompLevel, ShouldEqual, "qm")
				So(matches[0].Alliances, ShouldNotBeNil)
				So(matches[0].Alliances.Red.Score, ShouldBeGreaterThan, 0)
				So(matches[1].Alliances, ShouldBeNil)
			})

			Convey("The team status reflects the completed match", func() {
				payload := fetchQueue()
				team := payload.Matches[0].RedTeams[0]

				resp, err := srv.Client().Get(srv.URL + "/api/v3/team/" + team + "/event/2025test/status")
				So(err, ShouldBeNil)
				defer resp.Body.Close()

				var status struct {
					Qual struct {
						Ranking struct {
							MatchesPlayed int `json:"matches_played"`
						} `json:"ranking"`
					} `json:"qual"`
				}
				So(json.NewDecoder(resp.Body).Decode(&status), ShouldBeNil)
				So(status.Qual.Ranking.MatchesPlayed, ShouldEqual, 1)
			})
		})

		Convey("An unknown event is not found", func() {
			resp, err := srv.Client().Get(srv.URL + "/api/v1/event/2025other")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, 404)
		})
	})
}
