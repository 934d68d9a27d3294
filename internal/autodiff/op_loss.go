package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// softmaxOp: out = softmax(in) row-wise over a 2D input. The backward pass
// uses the output values: dx_j = y_j * (g_j - sum_i g_i*y_i) per row.
type softmaxOp struct {
	in, out *tensor.RawTensor
}

func (op *softmaxOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.in.Shape()
	rows, cols := shape[0], shape[1]

	y := op.out.Data()
	g := grad.Data()
	dx := tensor.MustRaw(shape.Clone())
	dd := dx.Data()
	for r := 0; r < rows; r++ {
		base := r * cols
		var dot float32
		for c := 0; c < cols; c++ {
			dot += g[base+c] * y[base+c]
		}
		for c := 0; c < cols; c++ {
			dd[base+c] = y[base+c] * (g[base+c] - dot)
		}
	}
	return []*tensor.RawTensor{dx}
}

func (op *softmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }
func (op *softmaxOp) Output() *tensor.RawTensor   { return op.out }

// crossEntropyOp: out = mean cross-entropy between logits and one-hot
// targets. Softmax and the loss are fused, so the logits gradient collapses
// to (softmax(logits) - targets) / batch scaled by the upstream gradient.
// Targets are constants and receive no gradient.
type crossEntropyOp struct {
	logits, targets, out *tensor.RawTensor
}

func (op *crossEntropyOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	rows := shape[0]

	probs := backend.Softmax(op.logits)
	scale := grad.Data()[0] / float32(rows)

	dx := backend.Sub(probs, op.targets)
	dd := dx.Data()
	for i := range dd {
		dd[i] *= scale
	}
	return []*tensor.RawTensor{dx}
}

func (op *crossEntropyOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logits} }
func (op *crossEntropyOp) Output() *tensor.RawTensor   { return op.out }
