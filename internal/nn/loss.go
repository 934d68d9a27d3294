package nn

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// CrossEntropyLoss computes mean softmax cross-entropy between logits and
// one-hot targets. Softmax and the log-loss are fused in the backend, which
// is both numerically stabler and gives the loss a closed-form gradient.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates the loss criterion.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the scalar loss for logits [batch, classes] and one-hot
// targets of the same shape.
func (c *CrossEntropyLoss[B]) Forward(logits, targets *tensor.Tensor[B]) *tensor.Tensor[B] {
	if len(logits.Shape()) != 2 {
		panic(fmt.Sprintf("cross_entropy: expected 2D logits [batch, classes], got shape %v", logits.Shape()))
	}
	if !logits.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("cross_entropy: logits shape %v != targets shape %v", logits.Shape(), targets.Shape()))
	}
	raw := c.backend.CrossEntropy(logits.Raw(), targets.Raw())
	return tensor.New(raw, c.backend)
}

// Accuracy returns the fraction of rows where the argmax of the logits
// matches the hot class of the target. Computed directly on the buffers, so
// nothing lands on a gradient tape.
func Accuracy[B tensor.Backend](logits, targets *tensor.Tensor[B]) float32 {
	if !logits.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("accuracy: logits shape %v != targets shape %v", logits.Shape(), targets.Shape()))
	}
	shape := logits.Shape()
	rows, cols := shape[0], shape[1]
	if rows == 0 {
		return 0
	}

	lv, tv := logits.Data(), targets.Data()
	correct := 0
	for r := 0; r < rows; r++ {
		base := r * cols
		predicted, actual := 0, 0
		for c := 1; c < cols; c++ {
			if lv[base+c] > lv[base+predicted] {
				predicted = c
			}
			if tv[base+c] > tv[base+actual] {
				actual = c
			}
		}
		if predicted == actual {
			correct++
		}
	}
	return float32(correct) / float32(rows)
}
