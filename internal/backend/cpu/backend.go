// Package cpu implements the pure-Go compute backend. Convolution uses the
// im2col transform so it rides on the matmul kernel, and the heavier kernels
// split the batch across goroutines.
package cpu

import (
	"fmt"
	"runtime"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Backend computes tensor operations on the CPU.
type Backend struct {
	workers int
}

// New creates a CPU backend using one worker per logical core.
func New() *Backend {
	return &Backend{workers: runtime.NumCPU()}
}

// Name returns the backend name.
func (c *Backend) Name() string { return "cpu" }

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// binary applies op element-wise, expanding inputs per broadcasting rules.
func (c *Backend) binary(name string, a, b *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	outShape, expanded, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	out := tensor.MustRaw(outShape)
	outData := out.Data()

	if !expanded {
		aData, bData := a.Data(), b.Data()
		for i := range outData {
			outData[i] = op(aData[i], bData[i])
		}
		return out
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	outStrides := outShape.Strides()
	aData, bData := a.Data(), b.Data()

	for i := range outData {
		aIdx, bIdx := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			aIdx += coord * aStrides[d]
			bIdx += coord * bStrides[d]
		}
		outData[i] = op(aData[aIdx], bData[bIdx])
	}
	return out
}

// broadcastStrides returns strides for reading a tensor of shape `in` as if
// it had shape `out`: broadcast dimensions get stride 0 so the same element
// is reused across the expansion.
func broadcastStrides(in, out tensor.Shape) []int {
	inStrides := in.Strides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for d := range out {
		src := d - offset
		if src < 0 || in[src] == 1 {
			strides[d] = 0
		} else {
			strides[d] = inStrides[src]
		}
	}
	return strides
}

// Reshape returns a view of t with newShape. Element counts must match.
func (c *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: %v has %d elements, %v needs %d",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}
	// Row-major reshape never moves data; share the buffer.
	return t.View(newShape)
}

// Transpose permutes dimensions, copying into a new contiguous tensor.
// With no axes given, all dimensions are reversed.
func (c *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: bad axes %v for shape %v", axes, shape))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	out := tensor.MustRaw(newShape)

	srcStrides := shape.Strides()
	dstStrides := newShape.Strides()
	srcData, dstData := t.Data(), out.Data()

	for i := range dstData {
		srcIdx := 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		dstData[i] = srcData[srcIdx]
	}
	return out
}

// Scale multiplies every element by v.
func (c *Backend) Scale(t *tensor.RawTensor, v float32) *tensor.RawTensor {
	out := tensor.MustRaw(t.Shape())
	src, dst := t.Data(), out.Data()
	for i := range dst {
		dst[i] = src[i] * v
	}
	return out
}

// ReLU applies max(0, x) element-wise.
func (c *Backend) ReLU(t *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustRaw(t.Shape())
	src, dst := t.Data(), out.Data()
	for i := range dst {
		if src[i] > 0 {
			dst[i] = src[i]
		}
	}
	return out
}
