package cpu

import (
	"testing"

	"github.com/scrawl-ml/scrawl/internal/tensor"
	"github.com/stretchr/testify/assert"
)

// TestConv2D_KnownValues tests a ones kernel summing each 2x2 window.
func TestConv2D_KnownValues(t *testing.T) {
	c := New()
	input := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3})
	kernel := raw(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := c.Conv2D(input, kernel, 1, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{12, 16, 24, 28}, out.Data())
}

// TestConv2D_IdentityWithPadding tests that a centered delta kernel with
// same-padding reproduces the input.
func TestConv2D_IdentityWithPadding(t *testing.T) {
	c := New()
	input := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3})
	kernel := raw(t, []float32{0, 0, 0, 0, 1, 0, 0, 0, 0}, tensor.Shape{1, 1, 3, 3})

	out := c.Conv2D(input, kernel, 1, 1)

	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, out.Shape())
	assert.Equal(t, input.Data(), out.Data())
}

// TestConv2D_Stride tests non-overlapping 2x2 windows at stride 2.
func TestConv2D_Stride(t *testing.T) {
	c := New()
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	input := raw(t, data, tensor.Shape{1, 1, 4, 4})
	kernel := raw(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := c.Conv2D(input, kernel, 2, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{14, 22, 46, 54}, out.Data())
}

// TestConv2D_MultiChannel tests a batched multi-channel convolution with
// padding against a direct nested-loop convolution.
func TestConv2D_MultiChannel(t *testing.T) {
	c := New()
	const n, cIn, h, w = 2, 2, 4, 4
	const cOut, kh, kw = 2, 3, 3
	const stride, padding = 1, 1

	inData := make([]float32, n*cIn*h*w)
	for i := range inData {
		inData[i] = float32(i%7) - 3
	}
	kData := make([]float32, cOut*cIn*kh*kw)
	for i := range kData {
		kData[i] = float32(i%5) - 2
	}
	input := raw(t, inData, tensor.Shape{n, cIn, h, w})
	kernel := raw(t, kData, tensor.Shape{cOut, cIn, kh, kw})

	out := c.Conv2D(input, kernel, stride, padding)

	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1
	assert.Equal(t, tensor.Shape{n, cOut, hOut, wOut}, out.Shape())

	want := referenceConv2D(inData, kData, n, cIn, h, w, cOut, kh, kw, stride, padding)
	for i := range want {
		assert.InDelta(t, want[i], out.Data()[i], 1e-4, "element %d", i)
	}
}

// referenceConv2D computes the convolution directly, one output element at
// a time, without im2col.
func referenceConv2D(in, k []float32, n, cIn, h, w, cOut, kh, kw, stride, padding int) []float32 {
	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1
	out := make([]float32, n*cOut*hOut*wOut)
	idx := 0
	for b := 0; b < n; b++ {
		for co := 0; co < cOut; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					sum := float32(0)
					for ci := 0; ci < cIn; ci++ {
						for y := 0; y < kh; y++ {
							hPos := oh*stride - padding + y
							if hPos < 0 || hPos >= h {
								continue
							}
							for x := 0; x < kw; x++ {
								wPos := ow*stride - padding + x
								if wPos < 0 || wPos >= w {
									continue
								}
								iv := in[((b*cIn+ci)*h+hPos)*w+wPos]
								kv := k[((co*cIn+ci)*kh+y)*kw+x]
								sum += iv * kv
							}
						}
					}
					out[idx] = sum
					idx++
				}
			}
		}
	}
	return out
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	c := New()
	input := raw(t, make([]float32, 2*9), tensor.Shape{1, 2, 3, 3})
	kernel := raw(t, make([]float32, 3*4), tensor.Shape{1, 3, 2, 2})

	assert.Panics(t, func() { c.Conv2D(input, kernel, 1, 0) })
}

func TestConv2D_KernelTooLargePanics(t *testing.T) {
	c := New()
	input := raw(t, make([]float32, 9), tensor.Shape{1, 1, 3, 3})
	kernel := raw(t, make([]float32, 25), tensor.Shape{1, 1, 5, 5})

	assert.Panics(t, func() { c.Conv2D(input, kernel, 1, 0) })
}
