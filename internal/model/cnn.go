// Package model defines the digit-classification network.
package model

import (
	"math/rand"

	"github.com/scrawl-ml/scrawl/internal/mnist"
	"github.com/scrawl-ml/scrawl/internal/nn"
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Flattened width of the feature maps entering the dense head:
// 28x28 -> conv3x3 -> 26x26 -> conv3x3 -> 24x24 -> pool2x2 -> 12x12,
// at 64 channels.
const denseInput = 64 * 12 * 12

// NewCNN builds the convolutional digit classifier:
//
//	Input:   [batch, 1, 28, 28]
//	Conv2D:  1 -> 32 channels, 3x3        -> [batch, 32, 26, 26]
//	ReLU
//	Conv2D:  32 -> 64 channels, 3x3       -> [batch, 64, 24, 24]
//	ReLU
//	MaxPool: 2x2                          -> [batch, 64, 12, 12]
//	Dropout: p=0.25
//	Flatten                               -> [batch, 9216]
//	Linear:  9216 -> 128
//	ReLU
//	Dropout: p=0.5
//	Linear:  128 -> 10 (class logits)
//
// The output is raw logits; the loss applies softmax itself. Weights come
// from rng so a fixed seed reproduces the same initialization.
func NewCNN[B tensor.Backend](rng *rand.Rand, backend B) *nn.Sequential[B] {
	return nn.NewSequential[B](
		nn.NewConv2D(1, 32, 3, 1, 0, rng, backend),
		nn.NewReLU[B](),
		nn.NewConv2D(32, 64, 3, 1, 0, rng, backend),
		nn.NewReLU[B](),
		nn.NewMaxPool2D(2, 2, backend),
		nn.NewDropout(0.25, rng, backend),
		nn.NewFlatten[B](),
		nn.NewLinear(denseInput, 128, rng, backend),
		nn.NewReLU[B](),
		nn.NewDropout(0.5, rng, backend),
		nn.NewLinear(128, mnist.NumClasses, rng, backend),
	)
}

// NumParameters counts the trainable scalars of a module.
func NumParameters[B tensor.Backend](m nn.Module[B]) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Raw().NumElements()
	}
	return total
}
