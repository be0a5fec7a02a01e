package classifier

import (
	"fmt"
	"math/rand"

	"github.com/okian/crystalball/internal/domain/sampling"
)

// Training defaults.
const (
	DefaultLearningRate = 0.01
	DefaultMomentum     = 0.5
	DefaultWeightDecay  = 0.0
)

type params struct {
	learningRate float64
	momentum     float64
	weightDecay  float64
}

// TrainerOption applies a configuration option to a Trainer.
type TrainerOption func(*Trainer)

// WithLearningRate sets the step size.
func WithLearningRate(rate float64) TrainerOption {
	return func(t *Trainer) { t.params.learningRate = rate }
}

// WithMomentum sets the fraction of the previous update carried into the next.
func WithMomentum(momentum float64) TrainerOption {
	return func(t *Trainer) { t.params.momentum = momentum }
}

// WithWeightDecay sets the L2 penalty applied on every update.
func WithWeightDecay(decay float64) TrainerOption {
	return func(t *Trainer) { t.params.weightDecay = decay }
}

// Trainer runs backpropagation passes over a fixed training set. Calling
// Train again continues from the current weights.
type Trainer struct {
	net     *Network
	samples []sampling.Sample
	order   []int
	rng     *rand.Rand
	params  params
	passes  int
}

// NewTrainer validates the training set against net. Labels must be 1 or 2;
// the network is trained towards label-1.
func NewTrainer(net *Network, samples []sampling.Sample, rng *rand.Rand, opts ...TrainerOption) (*Trainer, error) {
	t := &Trainer{
		net:     net,
		samples: samples,
		rng:     rng,
		params: params{
			learningRate: DefaultLearningRate,
			momentum:     DefaultMomentum,
			weightDecay:  DefaultWeightDecay,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.params.learningRate <= 0 || t.params.momentum < 0 || t.params.momentum >= 1 || t.params.weightDecay < 0 {
		return nil, fmt.Errorf("%w: learning_rate=%g momentum=%g weight_decay=%g",
			ErrHyperParam, t.params.learningRate, t.params.momentum, t.params.weightDecay)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	for i, s := range samples {
		if len(s.Inputs) != net.Inputs() {
			return nil, fmt.Errorf("%w: sample %d has %d inputs, want %d", ErrWidth, i, len(s.Inputs), net.Inputs())
		}
		if s.Label != Label1 && s.Label != Label2 {
			return nil, fmt.Errorf("%w: sample %d has label %d", ErrLabel, i, s.Label)
		}
	}
	t.order = make([]int, len(samples))
	for i := range t.order {
		t.order[i] = i
	}
	return t, nil
}

// Train runs one pass over the training set in a fresh random order and
// returns the mean sample error of the pass.
func (t *Trainer) Train() float64 {
	t.rng.Shuffle(len(t.order), func(i, j int) { t.order[i], t.order[j] = t.order[j], t.order[i] })
	var total float64
	for _, i := range t.order {
		s := t.samples[i]
		total += t.net.backprop(s.Inputs, float64(s.Label-1), t.params)
	}
	t.passes++
	return total / float64(len(t.order))
}

// Passes returns the number of completed passes.
func (t *Trainer) Passes() int { return t.passes }

// Network returns the network being trained.
func (t *Trainer) Network() *Network { return t.net }
