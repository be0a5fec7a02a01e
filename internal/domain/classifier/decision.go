package classifier

import (
	"strconv"

	"github.com/okian/crystalball/internal/domain/sampling"
)

// Decision labels.
const (
	LabelTie = 0
	Label1   = 1
	Label2   = 2
)

// Threshold is the output value at and above which team2 is predicted.
const Threshold = 0.5

// TieOutcome is the outcome string for a tied result.
const TieOutcome = "tie"

// Result maps the network output for x to label 2 when it reaches
// Threshold and to label 1 otherwise. A tie is never produced.
func (n *Network) Result(x []float64) (int, error) {
	out, err := n.Activate(x)
	if err != nil {
		return 0, err
	}
	if out >= Threshold {
		return Label2, nil
	}
	return Label1, nil
}

// PercentError returns the percentage of predicted labels that differ from want.
// Both slices must have the same length; an empty input has no error.
func PercentError(predicted, want []int) float64 {
	if len(want) == 0 {
		return 0
	}
	miss := 0
	for i := range want {
		if predicted[i] != want[i] {
			miss++
		}
	}
	return 100 * float64(miss) / float64(len(want))
}

// Accuracy re-runs every sample through n and returns 100 minus the percent
// misclassified. An empty set scores 0.
func (n *Network) Accuracy(samples []sampling.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	predicted := make([]int, len(samples))
	for i, s := range samples {
		r, err := n.Result(s.Inputs)
		if err != nil {
			return 0, err
		}
		predicted[i] = r
	}
	return 100 - PercentError(predicted, sampling.Labels(samples)), nil
}

// Outcome names the result label for a match between team1 and team2.
// Labels outside the known set map to an "Unknown result" marker.
func Outcome(label int, team1, team2 string) string {
	switch label {
	case LabelTie:
		return TieOutcome
	case Label1:
		return team1
	case Label2:
		return team2
	default:
		return "Unknown result: " + strconv.Itoa(label)
	}
}
