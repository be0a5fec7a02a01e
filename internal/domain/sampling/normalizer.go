package sampling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Normalizer standardizes each feature to zero mean and unit variance.
// It is fitted once; every later Transform reuses the same state.
type Normalizer struct {
	mean   []float64
	scale  []float64
	fitted bool
}

// NewNormalizer returns an unfitted Normalizer.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// Fit computes per-feature mean and population standard deviation over batch.
// Refitting a fitted Normalizer is refused.
func (n *Normalizer) Fit(batch [][]float64) error {
	if n.fitted {
		return ErrAlreadyFitted
	}
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	width := len(batch[0])
	column := make([]float64, len(batch))
	mean := make([]float64, width)
	scale := make([]float64, width)
	for j := 0; j < width; j++ {
		for i, row := range batch {
			if len(row) != width {
				return fmt.Errorf("%w: row %d has %d features, want %d", ErrWidth, i, len(row), width)
			}
			column[i] = row[j]
		}
		m, variance := stat.PopMeanVariance(column, nil)
		mean[j] = m
		scale[j] = math.Sqrt(variance)
	}
	n.mean, n.scale, n.fitted = mean, scale, true
	return nil
}

// Fitted reports whether Fit has succeeded.
func (n *Normalizer) Fitted() bool { return n.fitted }

// Width returns the number of features the normalizer was fitted on.
func (n *Normalizer) Width() int { return len(n.mean) }

// Mean returns a copy of the fitted per-feature means.
func (n *Normalizer) Mean() []float64 { return append([]float64(nil), n.mean...) }

// Scale returns a copy of the fitted per-feature standard deviations.
func (n *Normalizer) Scale() []float64 { return append([]float64(nil), n.scale...) }

// Transform standardizes a single vector. Zero-variance features map to 0.
func (n *Normalizer) Transform(x []float64) ([]float64, error) {
	if !n.fitted {
		return nil, ErrNotFitted
	}
	if len(x) != len(n.mean) {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrWidth, len(x), len(n.mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		if n.scale[j] <= 0 || math.IsNaN(n.scale[j]) {
			continue
		}
		out[j] = (v - n.mean[j]) / n.scale[j]
	}
	return out, nil
}

// TransformAll standardizes every vector of batch.
func (n *Normalizer) TransformAll(batch [][]float64) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, x := range batch {
		t, err := n.Transform(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// FitTransform fits on batch and returns it standardized.
func (n *Normalizer) FitTransform(batch [][]float64) ([][]float64, error) {
	if err := n.Fit(batch); err != nil {
		return nil, err
	}
	return n.TransformAll(batch)
}
