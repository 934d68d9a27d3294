// Package optim implements the gradient-descent optimizers used to train
// the classifier: SGD with momentum, Adam, and Adadelta. Each Step consumes
// the gradient map produced by the tape's backward pass and updates
// parameter buffers in place.
package optim

import (
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Optimizer applies gradient updates to a fixed set of parameters.
type Optimizer interface {
	// Step updates every registered parameter that has a gradient in the
	// map. Parameters absent from the map are left untouched.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float32

	// Name identifies the algorithm in logs and checkpoints.
	Name() string
}
