package autodiff

import (
	"math"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// conv2DOp: out = Conv2D(input, kernel). Both backward passes delegate to
// the backend's dedicated kernels: the input gradient is the transposed
// convolution of the output gradient with the kernel, the kernel gradient
// the cross-correlation of the input with the output gradient.
type conv2DOp struct {
	input, kernel, out *tensor.RawTensor
	stride, padding    int
}

func (op *conv2DOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(op.input, op.kernel, grad, op.stride, op.padding),
		backend.Conv2DKernelBackward(op.input, op.kernel, grad, op.stride, op.padding),
	}
}

func (op *conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}
func (op *conv2DOp) Output() *tensor.RawTensor { return op.out }

// maxPool2DOp: out = MaxPool2D(input). The forward pass captured the flat
// index of each window maximum; backward routes gradients only there (the
// subgradient of max).
type maxPool2DOp struct {
	input, out *tensor.RawTensor
	indices    []int
}

func (op *maxPool2DOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool2DBackward(op.input, grad, op.indices)}
}

func (op *maxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *maxPool2DOp) Output() *tensor.RawTensor   { return op.out }

// poolMaxIndices recomputes window-max positions for inner backends that
// cannot report them during the forward pass.
func poolMaxIndices(input *tensor.RawTensor, outShape tensor.Shape, kernelSize, stride int) []int {
	inShape := input.Shape()
	n, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	hOut, wOut := outShape[2], outShape[3]

	data := input.Data()
	indices := make([]int, n*c*hOut*wOut)
	outIdx := 0
	for b := 0; b < n; b++ {
		for ci := 0; ci < c; ci++ {
			planeOffset := (b*c + ci) * h * w
			for outH := 0; outH < hOut; outH++ {
				for outW := 0; outW < wOut; outW++ {
					maxVal := float32(math.Inf(-1))
					maxPos := 0
					for y := 0; y < kernelSize; y++ {
						for x := 0; x < kernelSize; x++ {
							pos := planeOffset + (outH*stride+y)*w + outW*stride + x
							if v := data[pos]; v > maxVal {
								maxVal = v
								maxPos = pos
							}
						}
					}
					indices[outIdx] = maxPos
					outIdx++
				}
			}
		}
	}
	return indices
}
