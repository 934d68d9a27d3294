package autodiff

import (
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Backend decorates an inner compute backend with gradient recording. It
// implements tensor.Backend, so models and layers are oblivious to whether
// they run under a tape.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New wraps backend with a fresh gradient tape.
func New[B tensor.Backend](backend B) *Backend[B] {
	return &Backend[B]{inner: backend, tape: NewTape()}
}

// Tape exposes the gradient tape for the training loop.
func (b *Backend[B]) Tape() *Tape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Name returns the decorated backend name.
func (b *Backend[B]) Name() string { return "autodiff(" + b.inner.Name() + ")" }

// Add forwards to the inner backend and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.record(&addOp{a: x, b: y, out: out})
	return out
}

// Sub forwards to the inner backend and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.record(&subOp{a: x, b: y, out: out})
	return out
}

// Mul forwards to the inner backend and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.record(&mulOp{a: x, b: y, out: out})
	return out
}

// MatMul forwards to the inner backend and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.record(&matMulOp{a: x, b: y, out: out})
	return out
}

// Scale forwards to the inner backend and records the operation.
func (b *Backend[B]) Scale(x *tensor.RawTensor, v float32) *tensor.RawTensor {
	out := b.inner.Scale(x, v)
	b.tape.record(&scaleOp{in: x, out: out, factor: v})
	return out
}

// ReLU forwards to the inner backend and records the operation.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.record(&reluOp{in: x, out: out})
	return out
}

// Conv2D forwards to the inner backend and records the operation. Without
// the recording, gradients would never reach the convolution kernels.
func (b *Backend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.record(&conv2DOp{input: input, kernel: kernel, out: out, stride: stride, padding: padding})
	return out
}

// indexPooler is implemented by backends that can report window-max indices
// alongside the pooled output, sparing the tape a second pass over the input.
type indexPooler interface {
	MaxPool2DIndices(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int)
}

// MaxPool2D forwards to the inner backend and records the operation together
// with the max positions the backward pass routes gradients to.
func (b *Backend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	var out *tensor.RawTensor
	var indices []int
	if p, ok := any(b.inner).(indexPooler); ok && b.tape.Recording() {
		out, indices = p.MaxPool2DIndices(input, kernelSize, stride)
	} else {
		out = b.inner.MaxPool2D(input, kernelSize, stride)
		if b.tape.Recording() {
			indices = poolMaxIndices(input, out.Shape(), kernelSize, stride)
		}
	}
	b.tape.record(&maxPool2DOp{input: input, out: out, indices: indices})
	return out
}

// Reshape forwards to the inner backend and records the operation, so
// gradients flow back to the pre-reshape tensor (bias broadcasts and the
// flatten step both depend on this).
func (b *Backend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(t, newShape)
	b.tape.record(&reshapeOp{in: t, out: out})
	return out
}

// Transpose forwards to the inner backend and records the operation. The
// inner backend returns a new tensor, so without the recording the original
// (the weight parameter, in the Linear layer) would receive no gradient.
func (b *Backend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	out := b.inner.Transpose(t, axes...)
	b.tape.record(&transposeOp{in: t, out: out, axes: axes})
	return out
}

// Softmax forwards to the inner backend and records the operation.
func (b *Backend[B]) Softmax(t *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Softmax(t)
	b.tape.record(&softmaxOp{in: t, out: out})
	return out
}

// CrossEntropy forwards to the inner backend and records the fused
// softmax/cross-entropy operation. Only the logits are differentiated.
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.CrossEntropy(logits, targets)
	b.tape.record(&crossEntropyOp{logits: logits, targets: targets, out: out})
	return out
}

// Conv2DInputBackward passes through unrecorded; it only runs inside the
// backward pass.
func (b *Backend[B]) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, outputGrad, stride, padding)
}

// Conv2DKernelBackward passes through unrecorded.
func (b *Backend[B]) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, outputGrad, stride, padding)
}

// MaxPool2DBackward passes through unrecorded.
func (b *Backend[B]) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, outputGrad, maxIndices)
}

// Backward computes gradients of a scalar loss with respect to every tensor
// on the tape, seeding the output gradient with 1.
func (b *Backend[B]) Backward(loss *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	seed := tensor.MustRaw(loss.Shape())
	seed.Fill(1)
	return b.tape.Backward(seed, b)
}
