package sampling

import "math/rand"

// DefaultTrainFraction is the probability that a sample lands in the train set.
const DefaultTrainFraction = 0.75

// Split assigns each sample to train with probability p and to test otherwise,
// independently, so the realized ratio only approximates p. Order is preserved.
func Split(samples []Sample, p float64, rng *rand.Rand) (train, test []Sample, err error) {
	if p < 0 || p > 1 {
		return nil, nil, ErrProbability
	}
	for _, s := range samples {
		if rng.Float64() < p {
			train = append(train, s)
		} else {
			test = append(test, s)
		}
	}
	return train, test, nil
}
