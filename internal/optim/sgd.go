package optim

import "github.com/scrawl-ml/scrawl/internal/tensor"

// SGD is stochastic gradient descent with optional momentum.
//
// Without momentum:
//
//	param -= lr * grad
//
// With momentum:
//
//	velocity = momentum*velocity + grad
//	param -= lr * velocity
type SGD struct {
	params     []*tensor.RawTensor
	lr         float32
	momentum   float32
	velocities map[*tensor.RawTensor][]float32
}

// SGDConfig configures SGD. A zero LR defaults to 0.01.
type SGDConfig struct {
	LR       float32
	Momentum float32
}

// NewSGD creates an SGD optimizer over the given parameter tensors.
func NewSGD(params []*tensor.RawTensor, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*tensor.RawTensor][]float32),
	}
}

// Step applies one update to every parameter with a gradient.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad, ok := grads[param]
		if !ok {
			continue
		}
		pv, gv := param.Data(), grad.Data()

		if s.momentum == 0 {
			for i := range pv {
				pv[i] -= s.lr * gv[i]
			}
			continue
		}

		vel, ok := s.velocities[param]
		if !ok {
			vel = make([]float32, len(pv))
			s.velocities[param] = vel
		}
		for i := range pv {
			vel[i] = s.momentum*vel[i] + gv[i]
			pv[i] -= s.lr * vel[i]
		}
	}
}

// LR returns the learning rate.
func (s *SGD) LR() float32 { return s.lr }

// Name returns "sgd".
func (s *SGD) Name() string { return "sgd" }
