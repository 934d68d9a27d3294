package nn

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Sequential chains modules so each one's output feeds the next.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a Sequential container over the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward applies all modules in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

// Parameters collects trainable parameters from all modules in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// SetTraining propagates the training flag to every module that has
// mode-dependent behavior.
func (s *Sequential[B]) SetTraining(training bool) {
	for _, m := range s.modules {
		if t, ok := m.(TrainToggler); ok {
			t.SetTraining(training)
		}
	}
}

// Add appends a module to the chain.
func (s *Sequential[B]) Add(m Module[B]) {
	s.modules = append(s.modules, m)
}

// Len returns the number of modules.
func (s *Sequential[B]) Len() int { return len(s.modules) }

// Module returns the module at index i.
func (s *Sequential[B]) Module(i int) Module[B] {
	if i < 0 || i >= len(s.modules) {
		panic(fmt.Sprintf("sequential: index %d out of range [0, %d)", i, len(s.modules)))
	}
	return s.modules[i]
}
