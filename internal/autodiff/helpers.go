package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// reduceTo sums grad down to target's shape, undoing broadcasting that
// happened in the forward pass. Dimensions that were stretched (size 1 in
// the target, or absent entirely) are summed out. When the shapes already
// match, grad is returned as-is.
func reduceTo(grad *tensor.RawTensor, target tensor.Shape) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad
	}

	gradShape := grad.Shape()
	// Right-align target against grad's shape, padding with ones.
	padded := make(tensor.Shape, len(gradShape))
	offset := len(gradShape) - len(target)
	for i := range padded {
		if i < offset {
			padded[i] = 1
		} else {
			padded[i] = target[i-offset]
		}
	}

	out := tensor.MustRaw(target.Clone())
	outStrides := padded.Strides()

	src := grad.Data()
	dst := out.Data()
	idx := make([]int, len(gradShape))
	for srcOff := range src {
		dstOff := 0
		for d := range idx {
			if padded[d] != 1 {
				dstOff += idx[d] * outStrides[d]
			}
		}
		dst[dstOff] += src[srcOff]

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < gradShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out
}
