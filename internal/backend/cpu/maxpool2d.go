package cpu

import (
	"fmt"
	"math"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// MaxPool2D pools input [N, C, H, W] with a square window, taking the
// maximum of each window. The output is [N, C, H_out, W_out] with
// H_out = (H-kernelSize)/stride + 1 and likewise for width.
func (c *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out, _ := c.maxPool2D(input, kernelSize, stride)
	return out
}

// MaxPool2DIndices returns the pooled tensor together with the flat input
// index of each window maximum. The autodiff layer stores the indices so the
// backward pass can route gradients without recomputing the windows.
func (c *Backend) MaxPool2DIndices(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int) {
	return c.maxPool2D(input, kernelSize, stride)
}

func (c *Backend) maxPool2D(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int) {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be [N,C,H,W], got %v", shape))
	}
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel=%d stride=%d", kernelSize, stride))
	}
	n, ch, h, w := shape[0], shape[1], shape[2], shape[3]
	if kernelSize > h || kernelSize > w {
		panic(fmt.Sprintf("maxpool2d: window %d exceeds input %dx%d", kernelSize, h, w))
	}
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1

	out := tensor.MustRaw(tensor.Shape{n, ch, hOut, wOut})
	inData, outData := input.Data(), out.Data()
	indices := make([]int, len(outData))

	outIdx := 0
	for b := 0; b < n; b++ {
		for ci := 0; ci < ch; ci++ {
			planeOffset := (b*ch + ci) * h * w
			plane := inData[planeOffset : planeOffset+h*w]
			for outH := 0; outH < hOut; outH++ {
				hStart := outH * stride
				for outW := 0; outW < wOut; outW++ {
					wStart := outW * stride
					maxVal := float32(math.Inf(-1))
					maxPos := 0
					for y := 0; y < kernelSize; y++ {
						row := plane[(hStart+y)*w : (hStart+y)*w+w]
						for x := 0; x < kernelSize; x++ {
							if v := row[wStart+x]; v > maxVal {
								maxVal = v
								maxPos = planeOffset + (hStart+y)*w + wStart + x
							}
						}
					}
					outData[outIdx] = maxVal
					indices[outIdx] = maxPos
					outIdx++
				}
			}
		}
	}
	return out, indices
}

// MaxPool2DBackward routes each output gradient to the input position that
// held the window maximum; every other position gets zero.
func (c *Backend) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	if len(maxIndices) != outputGrad.NumElements() {
		panic(fmt.Sprintf("maxpool2d backward: %d indices for %d gradient values",
			len(maxIndices), outputGrad.NumElements()))
	}
	inputGrad := tensor.MustRaw(input.Shape())
	igData, gradData := inputGrad.Data(), outputGrad.Data()
	for i, pos := range maxIndices {
		igData[pos] += gradData[i]
	}
	return inputGrad
}
