package optim

import (
	"math"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Adadelta (Zeiler, 2012) adapts per-parameter step sizes from running
// averages of squared gradients and squared updates, so it needs no
// hand-tuned learning-rate schedule:
//
//	Eg = rho*Eg + (1-rho)*grad^2
//	update = sqrt(Edx + eps) / sqrt(Eg + eps) * grad
//	Edx = rho*Edx + (1-rho)*update^2
//	param -= lr * update
type Adadelta struct {
	params []*tensor.RawTensor
	lr     float32
	rho    float32
	eps    float32

	avgSqGrad   map[*tensor.RawTensor][]float32
	avgSqUpdate map[*tensor.RawTensor][]float32
}

// AdadeltaConfig configures Adadelta. Zero values take the usual defaults:
// LR 1.0, Rho 0.95, Eps 1e-6.
type AdadeltaConfig struct {
	LR  float32
	Rho float32
	Eps float32
}

// NewAdadelta creates an Adadelta optimizer over the given parameter
// tensors.
func NewAdadelta(params []*tensor.RawTensor, config AdadeltaConfig) *Adadelta {
	if config.LR == 0 {
		config.LR = 1.0
	}
	if config.Rho == 0 {
		config.Rho = 0.95
	}
	if config.Eps == 0 {
		config.Eps = 1e-6
	}
	return &Adadelta{
		params:      params,
		lr:          config.LR,
		rho:         config.Rho,
		eps:         config.Eps,
		avgSqGrad:   make(map[*tensor.RawTensor][]float32),
		avgSqUpdate: make(map[*tensor.RawTensor][]float32),
	}
}

// Step applies one update to every parameter with a gradient.
func (a *Adadelta) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range a.params {
		grad, ok := grads[param]
		if !ok {
			continue
		}
		pv, gv := param.Data(), grad.Data()

		eg, ok := a.avgSqGrad[param]
		if !ok {
			eg = make([]float32, len(pv))
			a.avgSqGrad[param] = eg
		}
		edx, ok := a.avgSqUpdate[param]
		if !ok {
			edx = make([]float32, len(pv))
			a.avgSqUpdate[param] = edx
		}

		for i := range pv {
			g := gv[i]
			eg[i] = a.rho*eg[i] + (1-a.rho)*g*g

			update := float32(math.Sqrt(float64(edx[i])+float64(a.eps))/
				math.Sqrt(float64(eg[i])+float64(a.eps))) * g
			edx[i] = a.rho*edx[i] + (1-a.rho)*update*update

			pv[i] -= a.lr * update
		}
	}
}

// LR returns the learning rate.
func (a *Adadelta) LR() float32 { return a.lr }

// Name returns "adadelta".
func (a *Adadelta) Name() string { return "adadelta" }
