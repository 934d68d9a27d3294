package nn

import "github.com/scrawl-ml/scrawl/internal/tensor"

// ReLU applies f(x) = max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

// Forward applies the activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.ReLU()
}

// Parameters returns nil; activations are parameterless.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

func (r *ReLU[B]) String() string { return "ReLU()" }
