package features

import (
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/sampling"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
)

// ExtractSamples reads inputs and label from every row, in row order.
func ExtractSamples(t *Table, inputs []Feature, label Feature) ([]sampling.Sample, error) {
	if label.Kind != RawColumn {
		return nil, &FeatureNotFoundError{Name: label.Name}
	}
	out := make([]sampling.Sample, 0, t.Len())
	for _, r := range t.rows {
		x := make([]float64, len(inputs))
		for j, f := range inputs {
			v, err := r.Value(f)
			if err != nil {
				return nil, err
			}
			x[j] = v
		}
		y, err := r.Value(label)
		if err != nil {
			return nil, err
		}
		out = append(out, sampling.Sample{Inputs: x, Label: int(y)})
	}
	return out, nil
}

// Extract is ExtractSamples with features given by name.
func Extract(t *Table, inputNames []string, labelName string) ([]sampling.Sample, error) {
	inputs, err := ParseAll(inputNames)
	if err != nil {
		return nil, err
	}
	label, err := Parse(labelName)
	if err != nil {
		return nil, err
	}
	return ExtractSamples(t, inputs, label)
}

// Query is an ad-hoc match to predict.
type Query struct {
	Year  int
	Team1 string
	Team2 string
}

// QueryVector builds the input vector of q in the order of inputs, reading
// side stats from snap the same way Build joins them onto match rows.
func QueryVector(inputs []Feature, snap *stats.Snapshot, q Query) ([]float64, error) {
	x := make([]float64, len(inputs))
	for j, f := range inputs {
		switch {
		case f.Kind == SideStat:
			team := q.Team1
			if f.Side == Side2 {
				team = q.Team2
			}
			window := teamkey.Year(q.Year)
			if f.Window == AllTime {
				window = teamkey.AllTime
			}
			v, ok := snap.At(team, window).Value(f.Stat)
			if !ok {
				return nil, &FeatureNotFoundError{Name: f.Name}
			}
			x[j] = Sanitize(v)
		case f.Kind == RawColumn && f.Name == ColumnYear:
			x[j] = float64(q.Year)
		default:
			return nil, &FeatureNotFoundError{Name: f.Name}
		}
	}
	return x, nil
}

// Point is one (x, y) pair of a results dispersion.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dispersion groups rows by outcome and reads features x and y from each,
// the series a results-dispersion chart plots.
func Dispersion(t *Table, x, y Feature) (map[match.Winner][]Point, error) {
	out := map[match.Winner][]Point{match.Team1: nil, match.Team2: nil, match.Tie: nil}
	for _, r := range t.rows {
		vx, err := r.Value(x)
		if err != nil {
			return nil, err
		}
		vy, err := r.Value(y)
		if err != nil {
			return nil, err
		}
		out[r.Winner] = append(out[r.Winner], Point{X: vx, Y: vy})
	}
	return out, nil
}
