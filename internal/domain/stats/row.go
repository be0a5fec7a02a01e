package stats

import "math"

// StatName names one column of the stats table.
type StatName string

// Stats table columns.
const (
	MatchesPlayed     StatName = "matches_played"
	MatchesWon        StatName = "matches_won"
	YearsPlayed       StatName = "years_played"
	MatchesWonPercent StatName = "matches_won_percent"
)

// StatNames lists the columns in table order.
var StatNames = []StatName{MatchesPlayed, MatchesWon, YearsPlayed, MatchesWonPercent}

// ParseStatName returns the StatName spelled s.
func ParseStatName(s string) (StatName, bool) {
	for _, name := range StatNames {
		if string(name) == s {
			return name, true
		}
	}
	return "", false
}

// Row holds one team's stats for one window.
type Row struct {
	MatchesPlayed     int     `json:"matches_played"`
	MatchesWon        int     `json:"matches_won"`
	YearsPlayed       int     `json:"years_played"`
	MatchesWonPercent float64 `json:"matches_won_percent"`
}

// Value returns the named stat as a float.
func (r Row) Value(name StatName) (float64, bool) {
	switch name {
	case MatchesPlayed:
		return float64(r.MatchesPlayed), true
	case MatchesWon:
		return float64(r.MatchesWon), true
	case YearsPlayed:
		return float64(r.YearsPlayed), true
	case MatchesWonPercent:
		return r.MatchesWonPercent, true
	default:
		return 0, false
	}
}

// WonPercent is won/played*100, or 0 when nothing was played.
func WonPercent(won, played int) float64 {
	if played == 0 {
		return 0
	}
	p := float64(won) / float64(played) * 100.0
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

func newRow(played, won, years int) Row {
	return Row{
		MatchesPlayed:     played,
		MatchesWon:        won,
		YearsPlayed:       years,
		MatchesWonPercent: WonPercent(won, played),
	}
}
