package types_test

import (
	"testing"

	"github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewInterestKey(t *testing.T) {
	Convey("Given raw event and team identifiers", t, func() {
		Convey("When both are already normalized", func() {
			key := types.NewInterestKey("2025nyro", "340")

			Convey("Then the key keeps them as-is", func() {
				So(key.EventKey, ShouldEqual, "2025nyro")
				So(key.TeamKey, ShouldEqual, "340")
			})
		})

		Convey("When the event key carries upstream casing", func() {
			key := types.NewInterestKey("2025NYRO", "340")

			Convey("Then the event key is lowercased", func() {
				So(key.EventKey, ShouldEqual, "2025nyro")
			})
		})

		Convey("When the team key carries the frc prefix", func() {
			Convey("Then the prefix is stripped regardless of casing", func() {
				So(types.NewInterestKey("2025nyro", "frc340").TeamKey, ShouldEqual, "340")
				So(types.NewInterestKey("2025nyro", "FRC340").TeamKey, ShouldEqual, "340")
			})
		})

		Convey("When identifiers carry surrounding whitespace", func() {
			key := types.NewInterestKey(" 2025nyro ", " frc340 ")

			Convey("Then the whitespace is trimmed", func() {
				So(key.EventKey, ShouldEqual, "2025nyro")
				So(key.TeamKey, ShouldEqual, "340")
			})
		})

		Convey("When keys differ only in normalization", func() {
			a := types.NewInterestKey("2025NYRO", "frc340")
			b := types.NewInterestKey("2025nyro", "340")

			Convey("Then they compare equal", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func TestInterestKeyString(t *testing.T) {
	Convey("Given an interest key", t, func() {
		key := types.NewInterestKey("2025nyro", "340")

		Convey("Then String renders event/team", func() {
			So(key.String(), ShouldEqual, "2025nyro/340")
		})
	})
}

func TestInterestKeyZero(t *testing.T) {
	Convey("Given interest keys with missing halves", t, func() {
		So(types.NewInterestKey("", "340").Zero(), ShouldBeTrue)
		So(types.NewInterestKey("2025nyro", "").Zero(), ShouldBeTrue)
		So(types.NewInterestKey("", "").Zero(), ShouldBeTrue)
		So(types.NewInterestKey("2025nyro", "340").Zero(), ShouldBeFalse)
	})
}

func TestSideOpposing(t *testing.T) {
	Convey("Given alliance sides", t, func() {
		So(types.SideRed.Opposing(), ShouldEqual, types.SideBlue)
		So(types.SideBlue.Opposing(), ShouldEqual, types.SideRed)
	})
}
