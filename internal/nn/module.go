// Package nn implements the neural network layers of the digit classifier:
// trainable parameters, convolution and pooling layers, dense layers,
// dropout, and the loss and accuracy metrics. Layers are composed with
// Sequential and run on any tensor.Backend; training wraps the backend in
// autodiff so every Forward is recorded on the gradient tape.
package nn

import "github.com/scrawl-ml/scrawl/internal/tensor"

// Module is the interface all layers implement.
type Module[B tensor.Backend] interface {
	// Forward computes the layer's output for the given input.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns the layer's trainable parameters, empty for
	// parameterless layers such as activations and pooling.
	Parameters() []*Parameter[B]
}

// TrainToggler is implemented by layers whose forward pass differs between
// training and inference. Dropout is the one layer here that cares.
type TrainToggler interface {
	SetTraining(training bool)
}
