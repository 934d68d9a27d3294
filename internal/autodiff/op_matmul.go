package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// matMulOp: out = a @ b.
//
//	d/da = grad @ bᵀ
//	d/db = aᵀ @ grad
type matMulOp struct {
	a, b, out *tensor.RawTensor
}

func (op *matMulOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.MatMul(grad, backend.Transpose(op.b, 1, 0))
	gradB := backend.MatMul(backend.Transpose(op.a, 1, 0), grad)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *matMulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *matMulOp) Output() *tensor.RawTensor   { return op.out }
