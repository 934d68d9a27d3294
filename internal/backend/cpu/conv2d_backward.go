package cpu

import (
	"github.com/scrawl-ml/scrawl/internal/tensor"
	"golang.org/x/sync/errgroup"
)

// Conv2DInputBackward computes the input gradient of Conv2D: each output
// gradient value is distributed back through the kernel weights to every
// input position that contributed to it (the transposed convolution).
func (c *Backend) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := convDims(input, kernel, stride, padding)

	inputGrad := tensor.MustRaw(input.Shape())
	gradData, kData, igData := outputGrad.Data(), kernel.Data(), inputGrad.Data()

	inPlane := cIn * h * w
	outPlane := cOut * hOut * wOut

	var g errgroup.Group
	g.SetLimit(c.workers)
	for batch := 0; batch < n; batch++ {
		g.Go(func() error {
			ig := igData[batch*inPlane : (batch+1)*inPlane]
			grad := gradData[batch*outPlane : (batch+1)*outPlane]
			for co := 0; co < cOut; co++ {
				kCo := kData[co*cIn*kh*kw : (co+1)*cIn*kh*kw]
				for outH := 0; outH < hOut; outH++ {
					for outW := 0; outW < wOut; outW++ {
						gv := grad[co*hOut*wOut+outH*wOut+outW]
						if gv == 0 {
							continue
						}
						hStart := outH*stride - padding
						wStart := outW*stride - padding
						for ci := 0; ci < cIn; ci++ {
							plane := ig[ci*h*w : (ci+1)*h*w]
							kCi := kCo[ci*kh*kw : (ci+1)*kh*kw]
							for y := 0; y < kh; y++ {
								hPos := hStart + y
								if hPos < 0 || hPos >= h {
									continue
								}
								for x := 0; x < kw; x++ {
									wPos := wStart + x
									if wPos < 0 || wPos >= w {
										continue
									}
									plane[hPos*w+wPos] += gv * kCi[y*kw+x]
								}
							}
						}
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return inputGrad
}

// Conv2DKernelBackward computes the kernel gradient of Conv2D: the
// cross-correlation of the input with the output gradient, summed over the
// batch. Workers accumulate per-sample partials and merge at the end so no
// two goroutines write the shared gradient concurrently.
func (c *Backend) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := convDims(input, kernel, stride, padding)

	kernelGrad := tensor.MustRaw(kernel.Shape())
	inData, gradData := input.Data(), outputGrad.Data()
	kgData := kernelGrad.Data()

	inPlane := cIn * h * w
	outPlane := cOut * hOut * wOut
	kSize := cOut * cIn * kh * kw

	partials := make([][]float32, n)
	var g errgroup.Group
	g.SetLimit(c.workers)
	for batch := 0; batch < n; batch++ {
		g.Go(func() error {
			kg := make([]float32, kSize)
			in := inData[batch*inPlane : (batch+1)*inPlane]
			grad := gradData[batch*outPlane : (batch+1)*outPlane]
			for co := 0; co < cOut; co++ {
				kgCo := kg[co*cIn*kh*kw : (co+1)*cIn*kh*kw]
				for outH := 0; outH < hOut; outH++ {
					for outW := 0; outW < wOut; outW++ {
						gv := grad[co*hOut*wOut+outH*wOut+outW]
						if gv == 0 {
							continue
						}
						hStart := outH*stride - padding
						wStart := outW*stride - padding
						for ci := 0; ci < cIn; ci++ {
							plane := in[ci*h*w : (ci+1)*h*w]
							kgCi := kgCo[ci*kh*kw : (ci+1)*kh*kw]
							for y := 0; y < kh; y++ {
								hPos := hStart + y
								if hPos < 0 || hPos >= h {
									continue
								}
								for x := 0; x < kw; x++ {
									wPos := wStart + x
									if wPos < 0 || wPos >= w {
										continue
									}
									kgCi[y*kw+x] += gv * plane[hPos*w+wPos]
								}
							}
						}
					}
				}
			}
			partials[batch] = kg
			return nil
		})
	}
	_ = g.Wait()

	for _, kg := range partials {
		for i, v := range kg {
			kgData[i] += v
		}
	}
	return kernelGrad
}
