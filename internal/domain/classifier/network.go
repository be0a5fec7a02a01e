// Package classifier implements the match outcome network: a feed-forward
// perceptron with two sigmoid hidden layers and a single sigmoid output,
// trained online by backpropagation with momentum.
package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultHiddenFactor sizes both hidden layers as a multiple of the input width.
const DefaultHiddenFactor = 10

// Option applies a configuration option to a Network.
type Option func(*Network)

// WithHiddenFactor sets the hidden layer multiplier.
func WithHiddenFactor(factor int) Option {
	return func(n *Network) {
		n.hiddenFactor = factor
	}
}

// layer is one fully connected sigmoid layer. vw and vb carry the previous
// update for momentum.
type layer struct {
	weights *mat.Dense
	bias    *mat.VecDense
	vw      *mat.Dense
	vb      *mat.VecDense
}

func newLayer(in, out int, rng *rand.Rand) *layer {
	w := make([]float64, out*in)
	for i := range w {
		w[i] = rng.NormFloat64()
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = rng.NormFloat64()
	}
	return &layer{
		weights: mat.NewDense(out, in, w),
		bias:    mat.NewVecDense(out, b),
		vw:      mat.NewDense(out, in, nil),
		vb:      mat.NewVecDense(out, nil),
	}
}

// Network is the outcome classifier.
type Network struct {
	inputs       int
	hiddenFactor int
	layers       []*layer
}

// New builds a network for inputs features with weights and biases drawn
// from a standard normal distribution using rng.
func New(inputs int, rng *rand.Rand, opts ...Option) (*Network, error) {
	n := &Network{inputs: inputs, hiddenFactor: DefaultHiddenFactor}
	for _, opt := range opts {
		opt(n)
	}
	if inputs < 1 || n.hiddenFactor < 1 {
		return nil, fmt.Errorf("%w: inputs=%d hidden_factor=%d", ErrShape, inputs, n.hiddenFactor)
	}
	hidden := n.hiddenFactor * inputs
	sizes := []int{inputs, hidden, hidden, 1}
	for i := 1; i < len(sizes); i++ {
		n.layers = append(n.layers, newLayer(sizes[i-1], sizes[i], rng))
	}
	return n, nil
}

// Inputs returns the input width.
func (n *Network) Inputs() int { return n.inputs }

// Shape returns the unit count of every layer, input first.
func (n *Network) Shape() []int {
	shape := []int{n.inputs}
	for _, l := range n.layers {
		r, _ := l.weights.Dims()
		shape = append(shape, r)
	}
	return shape
}

// Activate runs x through the network and returns the output unit value in (0, 1).
func (n *Network) Activate(x []float64) (float64, error) {
	if len(x) != n.inputs {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrWidth, len(x), n.inputs)
	}
	acts := n.forward(x)
	return acts[len(acts)-1].AtVec(0), nil
}

// forward returns the activations of every layer, input first.
func (n *Network) forward(x []float64) []*mat.VecDense {
	a := mat.NewVecDense(len(x), append([]float64(nil), x...))
	acts := make([]*mat.VecDense, 0, len(n.layers)+1)
	acts = append(acts, a)
	for _, l := range n.layers {
		r, _ := l.weights.Dims()
		z := mat.NewVecDense(r, nil)
		z.MulVec(l.weights, a)
		z.AddVec(z, l.bias)
		for i := 0; i < r; i++ {
			z.SetVec(i, sigmoid(z.AtVec(i)))
		}
		acts = append(acts, z)
		a = z
	}
	return acts
}

// backprop applies one online update towards target and returns the
// sample error 0.5*(output-target)^2 measured before the update.
func (n *Network) backprop(x []float64, target float64, p params) float64 {
	acts := n.forward(x)
	o := acts[len(acts)-1].AtVec(0)
	diff := o - target
	delta := mat.NewVecDense(1, []float64{diff * o * (1 - o)})

	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		input := acts[i]
		var below *mat.VecDense
		if i > 0 {
			below = mat.NewVecDense(input.Len(), nil)
			below.MulVec(l.weights.T(), delta)
			for j := 0; j < input.Len(); j++ {
				a := input.AtVec(j)
				below.SetVec(j, below.AtVec(j)*a*(1-a))
			}
		}
		l.update(delta, input, p)
		delta = below
	}
	return 0.5 * diff * diff
}

func (l *layer) update(delta, input *mat.VecDense, p params) {
	r, c := l.weights.Dims()
	step := mat.NewDense(r, c, nil)
	step.Outer(-p.learningRate, delta, input)
	if p.weightDecay != 0 {
		var decay mat.Dense
		decay.Scale(-p.learningRate*p.weightDecay, l.weights)
		step.Add(step, &decay)
	}
	l.vw.Scale(p.momentum, l.vw)
	l.vw.Add(l.vw, step)
	l.weights.Add(l.weights, l.vw)

	l.vb.ScaleVec(p.momentum, l.vb)
	l.vb.AddScaledVec(l.vb, -p.learningRate, delta)
	if p.weightDecay != 0 {
		l.vb.AddScaledVec(l.vb, -p.learningRate*p.weightDecay, l.bias)
	}
	l.bias.AddVec(l.bias, l.vb)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
