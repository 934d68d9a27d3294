package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// addOp: out = a + b. Gradient flows unchanged to both inputs, reduced
// along any broadcast dimensions.
type addOp struct {
	a, b, out *tensor.RawTensor
}

func (op *addOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceTo(grad, op.a.Shape()),
		reduceTo(grad, op.b.Shape()),
	}
}

func (op *addOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *addOp) Output() *tensor.RawTensor   { return op.out }

// subOp: out = a - b. The b side is negated.
type subOp struct {
	a, b, out *tensor.RawTensor
}

func (op *subOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceTo(grad, op.a.Shape()),
		reduceTo(backend.Scale(grad, -1), op.b.Shape()),
	}
}

func (op *subOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *subOp) Output() *tensor.RawTensor   { return op.out }

// mulOp: out = a * b element-wise. d/da = grad*b, d/db = grad*a.
type mulOp struct {
	a, b, out *tensor.RawTensor
}

func (op *mulOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceTo(backend.Mul(grad, op.b), op.a.Shape()),
		reduceTo(backend.Mul(grad, op.a), op.b.Shape()),
	}
}

func (op *mulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *mulOp) Output() *tensor.RawTensor   { return op.out }

// scaleOp: out = factor * in.
type scaleOp struct {
	in, out *tensor.RawTensor
	factor  float32
}

func (op *scaleOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Scale(grad, op.factor)}
}

func (op *scaleOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }
func (op *scaleOp) Output() *tensor.RawTensor   { return op.out }

// reluOp: out = max(0, in). The gradient passes through where the input was
// positive and is zeroed elsewhere.
type reluOp struct {
	in, out *tensor.RawTensor
}

func (op *reluOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	src := op.in.Data()
	g := grad.Data()
	dx := tensor.MustRaw(op.in.Shape().Clone())
	dd := dx.Data()
	for i := range dd {
		if src[i] > 0 {
			dd[i] = g[i]
		}
	}
	return []*tensor.RawTensor{dx}
}

func (op *reluOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }
func (op *reluOp) Output() *tensor.RawTensor   { return op.out }
