package features

import (
	"math"

	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
)

// SideStats holds the stats joined onto one side of a match.
type SideStats struct {
	Recent  stats.Row
	AllTime stats.Row
}

// Row is a match enriched with its outcome and per-side stats.
type Row struct {
	Match     match.Match
	ScoreDiff int
	Winner    match.Winner
	Sides     [2]SideStats
}

// Side returns the stats of side s.
func (r Row) Side(s Side) SideStats {
	if s == Side2 {
		return r.Sides[1]
	}
	return r.Sides[0]
}

// Value reads feature f from the row.
func (r Row) Value(f Feature) (float64, error) {
	switch f.Kind {
	case SideStat:
		side := r.Side(f.Side)
		row := side.Recent
		if f.Window == AllTime {
			row = side.AllTime
		}
		v, ok := row.Value(f.Stat)
		if !ok {
			return 0, &FeatureNotFoundError{Name: f.Name}
		}
		return Sanitize(v), nil
	case RawColumn:
		switch f.Name {
		case ColumnYear:
			return float64(r.Match.Year), nil
		case ColumnID:
			return float64(r.Match.ID), nil
		case ColumnScore1:
			return float64(r.Match.Score1), nil
		case ColumnScore2:
			return float64(r.Match.Score2), nil
		case ColumnScoreDiff:
			return float64(r.ScoreDiff), nil
		case ColumnWinner:
			return float64(r.Winner), nil
		}
	}
	return 0, &FeatureNotFoundError{Name: f.Name}
}

// Table is the enriched match table produced by a Builder.
type Table struct {
	rows []Row
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// At returns the i-th row.
func (t *Table) At(i int) Row { return t.rows[i] }

// Rows returns a copy of the rows in order.
func (t *Table) Rows() []Row { return append([]Row(nil), t.rows...) }

// Column returns feature f for every row.
func (t *Table) Column(f Feature) ([]float64, error) {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		v, err := r.Value(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Options controls how a Builder enriches matches.
type Options struct {
	DuplicateWithReversed bool
	ExcludeTies           bool
	RecentYears           int
}

// Builder joins team stats onto matches.
type Builder struct {
	opts Options
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.RecentYears < 1 {
		return nil, &stats.ConfigError{RecentYears: opts.RecentYears}
	}
	return &Builder{opts: opts}, nil
}

// Build enriches table with stats from snap. In order: optional
// reversed duplication, outcome derivation, optional tie exclusion, the
// per-side join of recent and all-time stats (missing rows read as zero),
// value sanitization, and finally dropping rows earlier than the global
// minimum year plus the recent window, whose recent stats are incomplete.
func (b *Builder) Build(table *match.Table, snap *stats.Snapshot) *Table {
	minYear, ok := table.MinYear()
	if !ok {
		return &Table{}
	}

	source := table
	if b.opts.DuplicateWithReversed {
		source = table.WithReversed()
	}

	out := &Table{rows: make([]Row, 0, source.Len())}
	for i := 0; i < source.Len(); i++ {
		m := source.At(i)
		row := Row{Match: m, ScoreDiff: m.ScoreDiff(), Winner: m.Winner()}
		if b.opts.ExcludeTies && row.Winner == match.Tie {
			continue
		}
		row.Sides[0] = join(snap, m.Team1, m.Year)
		row.Sides[1] = join(snap, m.Team2, m.Year)
		if m.Year < minYear+b.opts.RecentYears {
			continue
		}
		out.rows = append(out.rows, row)
	}
	return out
}

func join(snap *stats.Snapshot, team string, year int) SideStats {
	recent, _ := snap.Lookup(team, teamkey.Year(year))
	allTime, _ := snap.Lookup(team, teamkey.AllTime)
	return SideStats{Recent: sanitizeRow(recent), AllTime: sanitizeRow(allTime)}
}

func sanitizeRow(r stats.Row) stats.Row {
	r.MatchesWonPercent = Sanitize(r.MatchesWonPercent)
	return r
}

// Sanitize rewrites NaN and infinities to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
