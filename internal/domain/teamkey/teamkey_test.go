package teamkey_test

import (
	"errors"
	"testing"

	"github.com/okian/crystalball/internal/domain/teamkey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodeDecode(t *testing.T) {
	Convey("Given team names and windows", t, func() {
		teams := []string{"River", "Boca Juniors", "Newell's Old Boys", "San Lorenzo de Almagro", "Ñ"}
		windows := []teamkey.Window{teamkey.AllTime, teamkey.Year(1990), teamkey.Year(2015), teamkey.Year(0), teamkey.Year(-3)}

		Convey("When encoding then decoding every pair", func() {
			Convey("Then the pair comes back unchanged", func() {
				for _, team := range teams {
					for _, w := range windows {
						key, err := teamkey.Encode(team, w)
						So(err, ShouldBeNil)
						gotTeam, gotWindow, err := teamkey.Decode(key)
						So(err, ShouldBeNil)
						So(gotTeam, ShouldEqual, team)
						So(gotWindow, ShouldResemble, w)
					}
				}
			})
		})

		Convey("When encoding the all-time window", func() {
			key, err := teamkey.Encode("River", teamkey.AllTime)
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "River:all_time")

			Convey("Then decoding keeps the sentinel instead of a year", func() {
				team, w, err := teamkey.Decode(key)
				So(err, ShouldBeNil)
				So(team, ShouldEqual, "River")
				So(w.IsAllTime(), ShouldBeTrue)
				_, isYear := w.Year()
				So(isYear, ShouldBeFalse)
			})
		})

		Convey("When encoding a year window", func() {
			key, err := teamkey.Encode("Boca", teamkey.Year(2010))
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "Boca:2010")
		})
	})
}

func TestInvalidKeys(t *testing.T) {
	Convey("Given malformed input", t, func() {
		Convey("When the team contains the separator", func() {
			_, err := teamkey.Encode("Estudiantes:LP", teamkey.Year(2000))

			Convey("Then encoding fails with InvalidKeyError", func() {
				var keyErr *teamkey.InvalidKeyError
				So(errors.As(err, &keyErr), ShouldBeTrue)
				So(keyErr.Key, ShouldEqual, "Estudiantes:LP")
				So(errors.Is(err, teamkey.ErrInvalidKey), ShouldBeTrue)
			})
		})

		Convey("When the team is empty", func() {
			_, err := teamkey.Encode("", teamkey.AllTime)
			So(errors.Is(err, teamkey.ErrInvalidKey), ShouldBeTrue)
		})

		Convey("When decoding bad keys", func() {
			for _, key := range []string{"", "River", "River:", ":2010", "River:20x0", "River:All_Time", "A:B:2010", "River:+5"} {
				_, _, err := teamkey.Decode(key)
				So(errors.Is(err, teamkey.ErrInvalidKey), ShouldBeTrue)
			}
		})
	})
}

func TestParseWindow(t *testing.T) {
	Convey("Given window selectors", t, func() {
		w, err := teamkey.ParseWindow("all_time")
		So(err, ShouldBeNil)
		So(w, ShouldResemble, teamkey.AllTime)

		w, err = teamkey.ParseWindow("1999")
		So(err, ShouldBeNil)
		y, ok := w.Year()
		So(ok, ShouldBeTrue)
		So(y, ShouldEqual, 1999)
		So(w.String(), ShouldEqual, "1999")

		_, err = teamkey.ParseWindow("recent")
		So(err, ShouldNotBeNil)
	})
}
