package match_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/crystalball/internal/domain/match"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWinner(t *testing.T) {
	Convey("Given matches with every kind of result", t, func() {
		cases := []struct {
			s1, s2 int
			want   match.Winner
		}{
			{2, 1, match.Team1},
			{0, 3, match.Team2},
			{1, 1, match.Tie},
			{0, 0, match.Tie},
		}

		Convey("Then the winner follows the sign of the score difference", func() {
			for _, c := range cases {
				m := match.Match{Team1: "A", Team2: "B", Score1: c.s1, Score2: c.s2}
				So(m.ScoreDiff(), ShouldEqual, c.s1-c.s2)
				So(m.Winner(), ShouldEqual, c.want)
				So(m.Reversed(99).Winner(), ShouldEqual, c.want.Mirror())
			}
		})
	})
}

func TestNewTable(t *testing.T) {
	Convey("Given raw match rows", t, func() {
		rows := []match.Match{
			{ID: 10, Team1: "A", Team2: "B", Score1: 2, Score2: 1, Year: 2011},
			{ID: 11, Team1: "B", Team2: "C", Score1: 0, Score2: 0, Year: 2010},
		}

		Convey("When they are valid", func() {
			table, err := match.NewTable(rows)
			So(err, ShouldBeNil)

			Convey("Then the table exposes typed accessors", func() {
				So(table.Len(), ShouldEqual, 2)
				So(table.At(0).ID, ShouldEqual, 10)
				So(table.Teams(), ShouldResemble, []string{"A", "B", "C"})
				So(table.Years(), ShouldResemble, []int{2010, 2011})
				minYear, ok := table.MinYear()
				So(ok, ShouldBeTrue)
				So(minYear, ShouldEqual, 2010)
			})

			Convey("And duplicating with reversed sides never touches the originals", func() {
				doubled := table.WithReversed()
				So(doubled.Len(), ShouldEqual, 4)
				So(table.Len(), ShouldEqual, 2)
				So(doubled.At(0), ShouldResemble, rows[0])
				mirror := doubled.At(2)
				So(mirror.Team1, ShouldEqual, "B")
				So(mirror.Team2, ShouldEqual, "A")
				So(mirror.Score1, ShouldEqual, 1)
				So(mirror.Score2, ShouldEqual, 2)
				So(mirror.ID, ShouldBeGreaterThan, 11)
				So(doubled.At(3).ID, ShouldBeGreaterThan, 11)
			})

			Convey("And filtering keeps order", func() {
				only2011 := table.Filter(func(m match.Match) bool { return m.Year == 2011 })
				So(only2011.Len(), ShouldEqual, 1)
				So(only2011.At(0).ID, ShouldEqual, 10)
			})
		})

		Convey("When ids repeat", func() {
			rows[1].ID = 10
			_, err := match.NewTable(rows)
			So(errors.Is(err, match.ErrInvalidMatch), ShouldBeTrue)
		})

		Convey("When a score is negative", func() {
			rows[0].Score2 = -1
			_, err := match.NewTable(rows)
			var vErr *match.ValidationError
			So(errors.As(err, &vErr), ShouldBeTrue)
			So(vErr.Field, ShouldEqual, "score2")
		})

		Convey("When a team name holds the key separator", func() {
			rows[0].Team1 = "A:B"
			_, err := match.NewTable(rows)
			So(errors.Is(err, match.ErrInvalidMatch), ShouldBeTrue)
		})
	})
}

func TestReadCSV(t *testing.T) {
	Convey("Given a dataframe-style CSV export", t, func() {
		data := ",team1,team2,score1,score2,year,round\n" +
			"0,River,Boca,2,1,2010,1\n" +
			"1,Boca,Racing,0,0,2011,2\n"

		Convey("When reading it", func() {
			table, err := match.ReadCSV(strings.NewReader(data))
			So(err, ShouldBeNil)

			Convey("Then every row becomes a match and extra columns are ignored", func() {
				So(table.Len(), ShouldEqual, 2)
				So(table.At(0), ShouldResemble, match.Match{ID: 0, Team1: "River", Team2: "Boca", Score1: 2, Score2: 1, Year: 2010})
				So(table.At(1).Year, ShouldEqual, 2011)
			})
		})
	})

	Convey("Given a CSV with an explicit id column", t, func() {
		data := "year,team1,team2,score1,score2,id\n2012,A,B,3,0,77\n"
		table, err := match.ReadCSV(strings.NewReader(data))
		So(err, ShouldBeNil)
		So(table.At(0).ID, ShouldEqual, 77)
	})

	Convey("Given a CSV missing a required column", t, func() {
		_, err := match.ReadCSV(strings.NewReader("team1,team2,score1,year\nA,B,1,2010\n"))
		So(errors.Is(err, match.ErrReadTable), ShouldBeTrue)
	})

	Convey("Given a CSV with a non-numeric score", t, func() {
		_, err := match.ReadCSV(strings.NewReader("team1,team2,score1,score2,year\nA,B,x,1,2010\n"))
		So(errors.Is(err, match.ErrInvalidMatch), ShouldBeTrue)
	})

	Convey("Given an empty input", t, func() {
		table, err := match.ReadCSV(strings.NewReader(""))
		So(err, ShouldBeNil)
		So(table.Len(), ShouldEqual, 0)
	})
}
