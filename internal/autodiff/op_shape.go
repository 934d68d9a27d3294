package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// reshapeOp: out = reshape(in). The gradient is the output gradient viewed
// in the input's shape.
type reshapeOp struct {
	in, out *tensor.RawTensor
}

func (op *reshapeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(grad, op.in.Shape())}
}

func (op *reshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }
func (op *reshapeOp) Output() *tensor.RawTensor   { return op.out }

// transposeOp: out = transpose(in, axes). The gradient is transposed by the
// inverse permutation.
type transposeOp struct {
	in, out *tensor.RawTensor
	axes    []int
}

func (op *transposeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(grad, inverse...)}
}

func (op *transposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }
func (op *transposeOp) Output() *tensor.RawTensor   { return op.out }
