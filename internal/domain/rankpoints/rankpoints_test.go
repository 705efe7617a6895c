package rankpoints_test

import (
	"testing"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/rankpoints"
	"github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	Convey("Given a qualification match", t, func() {
		Convey("When the alliance wins with one bonus", func() {
			rp := rankpoints.Derive(true, types.ResultWin, []model.Bonus{model.BonusCoral})

			Convey("Then the total is 4 with two breakdown entries", func() {
				So(rp, ShouldNotBeNil)
				So(rp.Total, ShouldEqual, 4)
				So(rp.Breakdown, ShouldResemble, []string{"Win", "Coral RP"})
			})
		})

		Convey("When the alliance wins with no bonuses", func() {
			rp := rankpoints.Derive(true, types.ResultWin, nil)

			So(rp.Total, ShouldEqual, 3)
			So(rp.Breakdown, ShouldResemble, []string{"Win"})
		})

		Convey("When the match is a tie", func() {
			rp := rankpoints.Derive(true, types.ResultTie, nil)

			So(rp.Total, ShouldEqual, 1)
			So(rp.Breakdown, ShouldResemble, []string{"Tie"})
		})

		Convey("When the alliance loses but earns bonuses", func() {
			rp := rankpoints.Derive(true, types.ResultLoss,
				[]model.Bonus{model.BonusAuto, model.BonusBarge})

			Convey("Then only the bonuses count", func() {
				So(rp.Total, ShouldEqual, 2)
				So(rp.Breakdown, ShouldResemble, []string{"Auto RP", "Barge RP"})
			})
		})

		Convey("When the alliance sweeps every bonus and wins", func() {
			rp := rankpoints.Derive(true, types.ResultWin, []model.Bonus{
				model.BonusAuto, model.BonusBarge, model.BonusCoral, model.BonusCoopertition,
			})

			Convey("Then the breakdown keeps the published order around the result", func() {
				So(rp.Total, ShouldEqual, 7)
				So(rp.Breakdown, ShouldResemble,
					[]string{"Auto RP", "Barge RP", "Win", "Coral RP", "Coopertition RP"})
			})
		})

		Convey("When the alliance loses with nothing", func() {
			rp := rankpoints.Derive(true, types.ResultLoss, nil)

			So(rp, ShouldNotBeNil)
			So(rp.Total, ShouldEqual, 0)
			So(rp.Breakdown, ShouldBeEmpty)
		})
	})

	Convey("Given a playoff match", t, func() {
		Convey("Then no ranking points are derived even on a win", func() {
			rp := rankpoints.Derive(false, types.ResultWin, []model.Bonus{model.BonusCoral})
			So(rp, ShouldBeNil)
		})
	})
}
