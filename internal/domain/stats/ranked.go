package stats

import (
	"fmt"
	"sort"

	"github.com/okian/crystalball/internal/domain/teamkey"
)

// Ranking is one team's position when ordered by a stat.
type Ranking struct {
	Rank  int     `json:"rank"`
	Team  string  `json:"team"`
	Value float64 `json:"value"`
	Row   Row     `json:"stats"`
}

// Ranked orders every team by stat within window w, highest first.
// Ties keep team-name order.
func (s *Snapshot) Ranked(w teamkey.Window, stat StatName) ([]Ranking, error) {
	if _, ok := ParseStatName(string(stat)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}
	out := make([]Ranking, 0, len(s.teams))
	for _, team := range s.teams {
		row := s.At(team, w)
		v, _ := row.Value(stat)
		out = append(out, Ranking{Team: team, Value: v, Row: row})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}
