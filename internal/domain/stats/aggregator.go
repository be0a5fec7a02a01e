// Package stats aggregates per-team, time-windowed performance statistics.
//
// For a year window y the eligible matches are those with
// y-recentYears <= year < y, so a row never sees its own season or later ones.
// The all-time window covers the whole table.
package stats

import (
	"sort"

	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/teamkey"
)

// Aggregator computes a Snapshot over a match table.
type Aggregator struct {
	recentYears int
}

// NewAggregator returns an Aggregator for trailing windows of recentYears seasons.
func NewAggregator(recentYears int) (*Aggregator, error) {
	if recentYears < 1 {
		return nil, &ConfigError{RecentYears: recentYears}
	}
	return &Aggregator{recentYears: recentYears}, nil
}

// RecentYears returns the trailing window length.
func (a *Aggregator) RecentYears() int { return a.recentYears }

// Aggregate computes one Row per (team, window) for every team in the table,
// every distinct match year, and the all-time window. Rows are recomputed in full.
func (a *Aggregator) Aggregate(table *match.Table) *Snapshot {
	byYear := groupByYear(table)
	teams := table.Teams()
	years := table.Years()

	windows := make([]teamkey.Window, 0, len(years)+1)
	for _, y := range years {
		windows = append(windows, teamkey.Year(y))
	}
	windows = append(windows, teamkey.AllTime)

	s := &Snapshot{
		recentYears: a.recentYears,
		byYear:      byYear,
		years:       years,
		teams:       teams,
		rows:        make(map[string]Row, len(windows)*len(teams)),
	}
	for _, w := range windows {
		tallies := tally(eligible(byYear, years, w, a.recentYears))
		for _, team := range teams {
			s.rows[teamkey.MustEncode(team, w)] = tallies.row(team)
		}
	}
	return s
}

func groupByYear(table *match.Table) map[int][]match.Match {
	byYear := make(map[int][]match.Match)
	for i := 0; i < table.Len(); i++ {
		m := table.At(i)
		byYear[m.Year] = append(byYear[m.Year], m)
	}
	return byYear
}

// eligible returns the matches inside window w.
func eligible(byYear map[int][]match.Match, years []int, w teamkey.Window, recentYears int) []match.Match {
	var out []match.Match
	y, isYear := w.Year()
	for _, year := range years {
		if isYear && (year < y-recentYears || year >= y) {
			continue
		}
		out = append(out, byYear[year]...)
	}
	return out
}

type counter struct {
	played int
	won    int
	years  map[int]struct{}
}

type tallies map[string]*counter

func tally(matches []match.Match) tallies {
	t := make(tallies)
	for _, m := range matches {
		for _, team := range [2]string{m.Team1, m.Team2} {
			c, ok := t[team]
			if !ok {
				c = &counter{years: make(map[int]struct{})}
				t[team] = c
			}
			c.played++
			c.years[m.Year] = struct{}{}
			if m.WonBy(team) {
				c.won++
			}
			if m.Team1 == m.Team2 {
				break
			}
		}
	}
	return t
}

func (t tallies) row(team string) Row {
	c, ok := t[team]
	if !ok {
		return Row{}
	}
	return newRow(c.played, c.won, len(c.years))
}

// Snapshot is an immutable stats table keyed by team-year key.
type Snapshot struct {
	recentYears int
	byYear      map[int][]match.Match
	years       []int
	teams       []string
	rows        map[string]Row
}

// RecentYears returns the trailing window length used to build the snapshot.
func (s *Snapshot) RecentYears() int { return s.recentYears }

// Len returns the number of rows.
func (s *Snapshot) Len() int { return len(s.rows) }

// Teams returns the aggregated team names.
func (s *Snapshot) Teams() []string { return append([]string(nil), s.teams...) }

// Years returns the aggregated year windows, ascending.
func (s *Snapshot) Years() []int { return append([]int(nil), s.years...) }

// Lookup returns the aggregated row for team within w.
func (s *Snapshot) Lookup(team string, w teamkey.Window) (Row, bool) {
	key, err := teamkey.Encode(team, w)
	if err != nil {
		return Row{}, false
	}
	row, ok := s.rows[key]
	return row, ok
}

// Get returns the row stored under an encoded key.
func (s *Snapshot) Get(key string) (Row, bool, error) {
	if _, _, err := teamkey.Decode(key); err != nil {
		return Row{}, false, err
	}
	row, ok := s.rows[key]
	return row, ok, nil
}

// At returns the row for team within w. Year windows that were not part of
// the aggregation (a season after the last one in the table, say) are
// computed from the same matches without being stored.
func (s *Snapshot) At(team string, w teamkey.Window) Row {
	if row, ok := s.Lookup(team, w); ok {
		return row
	}
	return tally(eligible(s.byYear, s.years, w, s.recentYears)).row(team)
}

// Keys returns every row key in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Each calls fn for every row in key order.
func (s *Snapshot) Each(fn func(key string, row Row)) {
	for _, k := range s.Keys() {
		fn(k, s.rows[k])
	}
}
