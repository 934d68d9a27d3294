package nn

import "github.com/scrawl-ml/scrawl/internal/tensor"

// Parameter is a trainable tensor. Gradients are not stored here: the tape
// returns them keyed by raw tensor, and the optimizer looks parameters up
// by their Raw() identity.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[B]
}

// NewParameter wraps t as a named trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name, e.g. "conv1.weight".
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] { return p.tensor }

// Raw returns the underlying raw tensor, the key gradients are stored under.
func (p *Parameter[B]) Raw() *tensor.RawTensor { return p.tensor.Raw() }

// RawParameters collects a module's parameters as raw tensors, the form
// the optimizers register.
func RawParameters[B tensor.Backend](m Module[B]) []*tensor.RawTensor {
	params := m.Parameters()
	raws := make([]*tensor.RawTensor, 0, len(params))
	for _, p := range params {
		raws = append(raws, p.Raw())
	}
	return raws
}
