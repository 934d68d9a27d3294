package cpu

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
	"golang.org/x/sync/errgroup"
)

// Conv2D performs 2D convolution via im2col.
//
// Input:  [N, C_in, H, W]
// Kernel: [C_out, C_in, KH, KW]
// Output: [N, C_out, H_out, W_out] where
//
//	H_out = (H + 2*padding - KH)/stride + 1
//	W_out = (W + 2*padding - KW)/stride + 1
//
// Each sample's patches are unrolled into a column matrix and multiplied
// against the flattened kernel, turning the convolution into a matmul.
// Samples are processed in parallel across workers.
func (c *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := convDims(input, kernel, stride, padding)

	out := tensor.MustRaw(tensor.Shape{n, cOut, hOut, wOut})
	inData, kData, outData := input.Data(), kernel.Data(), out.Data()

	colWidth := cIn * kh * kw
	colHeight := hOut * wOut
	inPlane := cIn * h * w
	outPlane := cOut * hOut * wOut

	var g errgroup.Group
	g.SetLimit(c.workers)
	for batch := 0; batch < n; batch++ {
		g.Go(func() error {
			colBuf := make([]float32, colHeight*colWidth)
			im2col(colBuf, inData[batch*inPlane:(batch+1)*inPlane],
				cIn, h, w, kh, kw, hOut, wOut, stride, padding)

			// [C_out, colWidth] @ [colWidth, colHeight]^T: both operands are
			// read row-wise since colBuf rows are output positions.
			dst := outData[batch*outPlane : (batch+1)*outPlane]
			for co := 0; co < cOut; co++ {
				kRow := kData[co*colWidth : (co+1)*colWidth]
				for p := 0; p < colHeight; p++ {
					col := colBuf[p*colWidth : (p+1)*colWidth]
					sum := float32(0)
					for i, kv := range kRow {
						sum += kv * col[i]
					}
					dst[co*colHeight+p] = sum
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// im2col unrolls one sample [C, H, W] into a [H_out*W_out, C*KH*KW] matrix.
// Positions outside the padded input contribute zeros.
func im2col(colBuf, in []float32, cIn, h, w, kh, kw, hOut, wOut, stride, padding int) {
	colWidth := cIn * kh * kw
	row := 0
	for outH := 0; outH < hOut; outH++ {
		for outW := 0; outW < wOut; outW++ {
			hStart := outH*stride - padding
			wStart := outW*stride - padding
			buf := colBuf[row*colWidth : (row+1)*colWidth]
			i := 0
			for ci := 0; ci < cIn; ci++ {
				plane := in[ci*h*w : (ci+1)*h*w]
				for y := 0; y < kh; y++ {
					hPos := hStart + y
					for x := 0; x < kw; x++ {
						wPos := wStart + x
						if hPos >= 0 && hPos < h && wPos >= 0 && wPos < w {
							buf[i] = plane[hPos*w+wPos]
						} else {
							buf[i] = 0
						}
						i++
					}
				}
			}
			row++
		}
	}
}

// convDims validates shapes and returns all the convolution dimensions.
func convDims(input, kernel *tensor.RawTensor, stride, padding int) (n, cIn, h, w, cOut, kh, kw, hOut, wOut int) {
	inShape, kShape := input.Shape(), kernel.Shape()
	if len(inShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be [N,C,H,W], got %v", inShape))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be [C_out,C_in,KH,KW], got %v", kShape))
	}
	if inShape[1] != kShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", inShape[1], kShape[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid stride=%d padding=%d", stride, padding))
	}

	n, cIn, h, w = inShape[0], inShape[1], inShape[2], inShape[3]
	cOut, kh, kw = kShape[0], kShape[2], kShape[3]
	hOut = (h+2*padding-kh)/stride + 1
	wOut = (w+2*padding-kw)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d with stride=%d padding=%d does not fit input %dx%d",
			kh, kw, stride, padding, h, w))
	}
	return
}
