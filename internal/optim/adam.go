package optim

import (
	"math"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Adam is adaptive moment estimation (Kingma & Ba, 2015).
//
//	m = beta1*m + (1-beta1)*grad
//	v = beta2*v + (1-beta2)*grad^2
//	param -= lr * mhat / (sqrt(vhat) + eps)
//
// where mhat and vhat are the bias-corrected moments.
type Adam struct {
	params []*tensor.RawTensor
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	step   int

	m map[*tensor.RawTensor][]float32
	v map[*tensor.RawTensor][]float32
}

// AdamConfig configures Adam. Zero values take the usual defaults:
// LR 0.001, Beta1 0.9, Beta2 0.999, Eps 1e-8.
type AdamConfig struct {
	LR    float32
	Beta1 float32
	Beta2 float32
	Eps   float32
}

// NewAdam creates an Adam optimizer over the given parameter tensors.
func NewAdam(params []*tensor.RawTensor, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Beta1,
		beta2:  config.Beta2,
		eps:    config.Eps,
		m:      make(map[*tensor.RawTensor][]float32),
		v:      make(map[*tensor.RawTensor][]float32),
	}
}

// Step applies one update to every parameter with a gradient.
func (a *Adam) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for _, param := range a.params {
		grad, ok := grads[param]
		if !ok {
			continue
		}
		pv, gv := param.Data(), grad.Data()

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(pv))
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float32, len(pv))
			a.v[param] = v
		}

		for i := range pv {
			g := gv[i]
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mhat := m[i] / correction1
			vhat := v[i] / correction2
			pv[i] -= a.lr * mhat / (float32(math.Sqrt(float64(vhat))) + a.eps)
		}
	}
}

// LR returns the learning rate.
func (a *Adam) LR() float32 { return a.lr }

// Name returns "adam".
func (a *Adam) Name() string { return "adam" }
