package nn

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Flatten collapses all dimensions after the batch dimension, turning
// [N, C, H, W] feature maps into [N, C*H*W] rows for the dense layers.
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] { return &Flatten[B]{} }

// Forward reshapes the input to [batch, rest].
func (f *Flatten[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got shape %v", shape))
	}
	rest := 1
	for _, dim := range shape[1:] {
		rest *= dim
	}
	return input.Reshape(shape[0], rest)
}

// Parameters returns nil; flatten is parameterless.
func (f *Flatten[B]) Parameters() []*Parameter[B] { return nil }

func (f *Flatten[B]) String() string { return "Flatten()" }
