// Package autodiff adds reverse-mode automatic differentiation on top of any
// tensor.Backend via the decorator pattern: Backend wraps an inner compute
// backend, forwards every operation to it, and records the operation on a
// Tape. Walking the tape in reverse applies each operation's chain rule and
// accumulates gradients per tensor.
package autodiff

import "github.com/scrawl-ml/scrawl/internal/tensor"

// Operation is one recorded step of the forward pass. Backward receives the
// gradient of the loss with respect to this operation's output and returns
// the gradients with respect to each input, in input order.
type Operation interface {
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor
	Inputs() []*tensor.RawTensor
	Output() *tensor.RawTensor
}

// Tape records operations during the forward pass.
//
// The training loop drives it directly: StartRecording before the forward
// pass, Backward after the loss, Clear before the next batch.
type Tape struct {
	ops       []Operation
	recording bool
}

// NewTape returns an empty, non-recording tape.
func NewTape() *Tape {
	return &Tape{ops: make([]Operation, 0, 64)}
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *Tape) StopRecording() { t.recording = false }

// Recording reports whether operations are currently recorded.
func (t *Tape) Recording() bool { return t.recording }

// Clear drops all recorded operations, keeping the recording state.
func (t *Tape) Clear() { t.ops = t.ops[:0] }

// NumOps returns the number of recorded operations.
func (t *Tape) NumOps() int { return len(t.ops) }

func (t *Tape) record(op Operation) {
	if t.recording {
		t.ops = append(t.ops, op)
	}
}

// Backward seeds the gradient of the last recorded output with outputGrad
// and walks the tape in reverse, applying each operation's chain rule.
// Gradients for tensors used by several operations are summed. Recording is
// suspended for the duration so gradient math is not itself recorded.
func (t *Tape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.ops) == 0 {
		return grads
	}

	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads[t.ops[len(t.ops)-1].Output()] = outputGrad

	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			// No gradient flows through this operation's output.
			continue
		}
		inputGrads := op.Backward(outGrad, backend)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}
	return grads
}
