// Package match holds historical match records and the validated table they live in.
package match

import (
	"sort"
	"strings"

	"github.com/okian/crystalball/internal/domain/teamkey"
)

// Winner is the outcome of a match seen from the team1 side.
type Winner int

// Match outcomes.
const (
	Tie   Winner = 0
	Team1 Winner = 1
	Team2 Winner = 2
)

// Mirror returns the outcome of the same match with sides swapped.
func (w Winner) Mirror() Winner {
	switch w {
	case Team1:
		return Team2
	case Team2:
		return Team1
	default:
		return w
	}
}

// WinnerFromScoreDiff maps the sign of score1-score2 to an outcome.
func WinnerFromScoreDiff(diff int) Winner {
	switch {
	case diff > 0:
		return Team1
	case diff < 0:
		return Team2
	default:
		return Tie
	}
}

// Match is a single played match. Values are never mutated once loaded.
type Match struct {
	ID     int
	Team1  string
	Team2  string
	Score1 int
	Score2 int
	Year   int
}

// ScoreDiff returns score1 - score2.
func (m Match) ScoreDiff() int { return m.Score1 - m.Score2 }

// Winner returns the outcome derived from the score difference.
func (m Match) Winner() Winner { return WinnerFromScoreDiff(m.ScoreDiff()) }

// Involves reports whether team played on either side.
func (m Match) Involves(team string) bool {
	return m.Team1 == team || m.Team2 == team
}

// WonBy reports whether team played and won the match.
func (m Match) WonBy(team string) bool {
	return (m.Team1 == team && m.Score1 > m.Score2) ||
		(m.Team2 == team && m.Score2 > m.Score1)
}

// Reversed returns a copy with sides swapped under a new id.
func (m Match) Reversed(id int) Match {
	return Match{
		ID:     id,
		Team1:  m.Team2,
		Team2:  m.Team1,
		Score1: m.Score2,
		Score2: m.Score1,
		Year:   m.Year,
	}
}

// Table is an ordered, validated collection of matches.
type Table struct {
	matches []Match
	ids     map[int]struct{}
	maxID   int
}

// NewTable validates matches and builds a table preserving their order.
func NewTable(matches []Match) (*Table, error) {
	t := &Table{
		matches: make([]Match, 0, len(matches)),
		ids:     make(map[int]struct{}, len(matches)),
		maxID:   -1,
	}
	for i, m := range matches {
		if err := validate(i, m); err != nil {
			return nil, err
		}
		if _, dup := t.ids[m.ID]; dup {
			return nil, &ValidationError{Row: i, Field: "id", Reason: "duplicate match id"}
		}
		t.add(m)
	}
	return t, nil
}

func validate(row int, m Match) error {
	sides := [...]struct{ field, team string }{{"team1", m.Team1}, {"team2", m.Team2}}
	for _, side := range sides {
		field, team := side.field, side.team
		if strings.TrimSpace(team) == "" {
			return &ValidationError{Row: row, Field: field, Reason: "empty team name"}
		}
		if !teamkey.ValidTeam(team) {
			return &ValidationError{Row: row, Field: field, Reason: "team name contains key separator"}
		}
	}
	if m.Score1 < 0 {
		return &ValidationError{Row: row, Field: "score1", Reason: "negative score"}
	}
	if m.Score2 < 0 {
		return &ValidationError{Row: row, Field: "score2", Reason: "negative score"}
	}
	return nil
}

func (t *Table) add(m Match) {
	t.matches = append(t.matches, m)
	t.ids[m.ID] = struct{}{}
	if len(t.matches) == 1 || m.ID > t.maxID {
		t.maxID = m.ID
	}
}

// Len returns the number of matches.
func (t *Table) Len() int { return len(t.matches) }

// At returns the i-th match in table order.
func (t *Table) At(i int) Match { return t.matches[i] }

// Matches returns a copy of the rows in table order.
func (t *Table) Matches() []Match {
	out := make([]Match, len(t.matches))
	copy(out, t.matches)
	return out
}

// Years returns the distinct match years in ascending order.
func (t *Table) Years() []int {
	seen := make(map[int]struct{})
	for _, m := range t.matches {
		seen[m.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Teams returns every team appearing on either side, sorted by name.
func (t *Table) Teams() []string {
	seen := make(map[string]struct{})
	for _, m := range t.matches {
		seen[m.Team1] = struct{}{}
		seen[m.Team2] = struct{}{}
	}
	teams := make([]string, 0, len(seen))
	for team := range seen {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// MinYear returns the earliest match year; ok is false for an empty table.
func (t *Table) MinYear() (year int, ok bool) {
	for i, m := range t.matches {
		if i == 0 || m.Year < year {
			year = m.Year
		}
	}
	return year, len(t.matches) > 0
}

// WithReversed returns a new table holding the original rows followed by
// their swapped-sides copies. Copies get ids above the current maximum,
// shifted by the id span so no copy can collide with an original.
func (t *Table) WithReversed() *Table {
	out := &Table{
		matches: make([]Match, 0, 2*len(t.matches)),
		ids:     make(map[int]struct{}, 2*len(t.matches)),
		maxID:   -1,
	}
	for _, m := range t.matches {
		out.add(m)
	}
	minID := t.maxID
	for _, m := range t.matches {
		if m.ID < minID {
			minID = m.ID
		}
	}
	offset := t.maxID - minID + 1
	for _, m := range t.matches {
		out.add(m.Reversed(m.ID + offset))
	}
	return out
}

// Filter returns a new table with the rows keep accepts, in order.
func (t *Table) Filter(keep func(Match) bool) *Table {
	out := &Table{ids: make(map[int]struct{}), maxID: -1}
	for _, m := range t.matches {
		if keep(m) {
			out.add(m)
		}
	}
	return out
}
