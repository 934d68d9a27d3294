package nn

import (
	"fmt"
	"math/rand"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Input shape:  [batch, inChannels, height, width]
// Weight shape: [outChannels, inChannels, kernelSize, kernelSize]
// Bias shape:   [outChannels]
// Output shape: [batch, outChannels, outH, outW]
//
// where outH = (height + 2*padding - kernelSize)/stride + 1 and likewise
// for outW.
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	weight *Parameter[B]
	bias   *Parameter[B]

	backend B
}

// NewConv2D creates a convolutional layer with a square kernel, Xavier
// initialization for the weights and zero biases.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weightShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}
	weight := Xavier(fanIn, fanOut, weightShape, rng, backend)
	bias := tensor.Zeros(tensor.Shape{outChannels}, backend)

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward convolves the input and adds the per-channel bias.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", shape[1], c.inChannels))
	}

	raw := c.backend.Conv2D(input.Raw(), c.weight.Raw(), c.stride, c.padding)
	out := tensor.New(raw, c.backend)

	// Bias [outChannels] broadcasts against [N, outChannels, outH, outW]
	// once viewed as [1, outChannels, 1, 1].
	biasView := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1)
	return out.Add(biasView)
}

// Parameters returns the kernel weights and bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// OutputSize computes the spatial output dimensions for an input of the
// given height and width.
func (c *Conv2D[B]) OutputSize(inputH, inputW int) (int, int) {
	outH := (inputH+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize)/c.stride + 1
	return outH, outW
}

func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%d, stride=%d, padding=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}
