package optim

import (
	"math"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014) with
// bias-corrected first and second moment estimates.
type Adam[B tensor.Backend] struct {
	source ParameterSource[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32

	step int
	m    map[*tensor.RawTensor][]float32
	v    map[*tensor.RawTensor][]float32
}

// NewAdam creates an Adam optimizer with the standard defaults
// beta1=0.9, beta2=0.999, eps=1e-8.
func NewAdam[B tensor.Backend](source ParameterSource[B], lr float32) *Adam[B] {
	return &Adam[B]{
		source: source,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		m:      make(map[*tensor.RawTensor][]float32),
		v:      make(map[*tensor.RawTensor][]float32),
	}
}

// Step updates every parameter that received a gradient, in place.
// Moment buffers for lazily materialized parameters are allocated the
// first time they show up, with the bias correction using the global
// step count.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for _, p := range a.source.Parameters() {
		g := gradientFor(grads, p)
		if g == nil {
			continue
		}
		data := p.Value().Data()

		m := a.m[p.Raw()]
		if m == nil {
			m = make([]float32, len(data))
			a.m[p.Raw()] = m
		}
		v := a.v[p.Raw()]
		if v == nil {
			v = make([]float32, len(data))
			a.v[p.Raw()] = v
		}

		for i := range data {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			mHat := m[i] / correction1
			vHat := v[i] / correction2
			data[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}
