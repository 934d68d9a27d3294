package nn

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// MaxPool2D downsamples spatially by taking the maximum over square
// windows. It has no trainable parameters.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, (height-kernelSize)/stride+1, (width-kernelSize)/stride+1]
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a pooling layer. kernelSize == stride gives the
// usual non-overlapping pooling.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, backend: backend}
}

// Forward pools the input.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(input.Shape())))
	}
	raw := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride)
	return tensor.New(raw, m.backend)
}

// Parameters returns nil; pooling is parameterless.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }

func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel=%d, stride=%d)", m.kernelSize, m.stride)
}
