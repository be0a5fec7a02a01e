// Package features turns matches plus team stats into labeled classifier samples.
package features

import (
	"strings"

	"github.com/okian/crystalball/internal/domain/stats"
)

// Kind tells where a feature's value comes from.
type Kind int

// Feature kinds.
const (
	RawColumn Kind = iota // a column of the match row itself
	SideStat              // a team stat joined onto one side of the match
)

// WindowKind selects which stats window a side stat reads.
type WindowKind string

// Stats windows joined onto each side.
const (
	Recent  WindowKind = "recent"
	AllTime WindowKind = "all_time"
)

// Side is the match side a stat belongs to.
type Side int

// Match sides.
const (
	Side1 Side = 1
	Side2 Side = 2
)

// Raw column names of the enriched table.
const (
	ColumnYear      = "year"
	ColumnID        = "id"
	ColumnScore1    = "score1"
	ColumnScore2    = "score2"
	ColumnScoreDiff = "score_diff"
	ColumnWinner    = "winner"
)

var rawColumns = map[string]struct{}{
	ColumnYear: {}, ColumnID: {}, ColumnScore1: {}, ColumnScore2: {}, ColumnScoreDiff: {}, ColumnWinner: {},
}

// Feature describes one input column, resolved once from its name.
type Feature struct {
	Name   string
	Kind   Kind
	Stat   stats.StatName
	Window WindowKind
	Side   Side
}

// Raw returns the descriptor of a match column.
func Raw(column string) Feature {
	return Feature{Name: column, Kind: RawColumn}
}

// Stat returns the descriptor of a side stat, named <stat>_<window>_<side>.
func Stat(stat stats.StatName, window WindowKind, side Side) Feature {
	name := string(stat) + "_" + string(window) + "_1"
	if side == Side2 {
		name = string(stat) + "_" + string(window) + "_2"
	}
	return Feature{Name: name, Kind: SideStat, Stat: stat, Window: window, Side: side}
}

// Synthesizable reports whether the feature can be built for an ad-hoc
// (year, team1, team2) query without a match row.
func (f Feature) Synthesizable() bool {
	return f.Kind == SideStat || (f.Kind == RawColumn && f.Name == ColumnYear)
}

// Parse resolves a feature name such as "matches_won_percent_recent_2" or "year".
func Parse(name string) (Feature, error) {
	if _, ok := rawColumns[name]; ok {
		return Raw(name), nil
	}
	var side Side
	switch {
	case strings.HasSuffix(name, "_1"):
		side = Side1
	case strings.HasSuffix(name, "_2"):
		side = Side2
	default:
		return Feature{}, &FeatureNotFoundError{Name: name}
	}
	rest := name[:len(name)-2]
	for _, window := range []WindowKind{Recent, AllTime} {
		suffix := "_" + string(window)
		if !strings.HasSuffix(rest, suffix) {
			continue
		}
		if stat, ok := stats.ParseStatName(strings.TrimSuffix(rest, suffix)); ok {
			return Stat(stat, window, side), nil
		}
	}
	return Feature{}, &FeatureNotFoundError{Name: name}
}

// ParseAll resolves names in order.
func ParseAll(names []string) ([]Feature, error) {
	out := make([]Feature, 0, len(names))
	for _, name := range names {
		f, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Names returns the feature names in order.
func Names(feats []Feature) []string {
	out := make([]string, len(feats))
	for i, f := range feats {
		out[i] = f.Name
	}
	return out
}

// DefaultInputs is the input feature list used when none is configured.
var DefaultInputs = []string{
	"year",
	"years_played_all_time_1",
	"years_played_all_time_2",
	"matches_played_all_time_1",
	"matches_played_all_time_2",
	"matches_played_recent_1",
	"matches_played_recent_2",
	"matches_won_recent_1",
	"matches_won_recent_2",
	"matches_won_all_time_1",
	"matches_won_all_time_2",
	"matches_won_percent_recent_1",
	"matches_won_percent_recent_2",
	"matches_won_percent_all_time_1",
	"matches_won_percent_all_time_2",
}
