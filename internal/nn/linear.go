package nn

import (
	"fmt"
	"math/rand"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ W^T + b.
//
// Input shape:  [batch, inFeatures]
// Weight shape: [outFeatures, inFeatures]
// Bias shape:   [outFeatures]
// Output shape: [batch, outFeatures]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewLinear creates a dense layer with Xavier-initialized weights and zero
// biases.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}

	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng, backend)
	bias := tensor.Zeros(tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward computes x @ W^T + b.
func (l *Linear[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("linear: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected %d input features, got %d", l.inFeatures, shape[1]))
	}

	out := input.MatMul(l.weight.Tensor().Transpose(1, 0))
	return out.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }

func (l *Linear[B]) String() string {
	return fmt.Sprintf("Linear(in=%d, out=%d)", l.inFeatures, l.outFeatures)
}
