// Package sampling standardizes feature vectors and splits samples into train and test sets.
package sampling

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotFitted     = errors.New("normalizer not fitted")
	ErrAlreadyFitted = errors.New("normalizer already fitted")
	ErrWidth         = errors.New("feature vector width mismatch")
	ErrEmptyBatch    = errors.New("empty sample batch")
	ErrProbability   = errors.New("split probability must be within [0, 1]")
)

// Sample is a feature vector paired with its label.
type Sample struct {
	Inputs []float64
	Label  int
}

// Inputs returns the feature vectors of samples, in order.
func Inputs(samples []Sample) [][]float64 {
	out := make([][]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Inputs
	}
	return out
}

// Labels returns the labels of samples, in order.
func Labels(samples []Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Label
	}
	return out
}
