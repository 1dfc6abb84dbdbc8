package optim

import (
	"github.com/lowrank-ml/tucker/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum:
//
//	v = momentum*v + g
//	w = w - lr*v
type SGD[B tensor.Backend] struct {
	source   ParameterSource[B]
	lr       float32
	momentum float32
	velocity map[*tensor.RawTensor][]float32
}

// NewSGD creates an SGD optimizer. momentum of 0 gives plain gradient
// descent.
func NewSGD[B tensor.Backend](source ParameterSource[B], lr, momentum float32) *SGD[B] {
	return &SGD[B]{
		source:   source,
		lr:       lr,
		momentum: momentum,
		velocity: make(map[*tensor.RawTensor][]float32),
	}
}

// Step updates every parameter that received a gradient, in place.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range s.source.Parameters() {
		g := gradientFor(grads, p)
		if g == nil {
			continue
		}
		data := p.Value().Data()

		if s.momentum == 0 {
			for i := range data {
				data[i] -= s.lr * g[i]
			}
			continue
		}

		v := s.velocity[p.Raw()]
		if v == nil {
			v = make([]float32, len(data))
			s.velocity[p.Raw()] = v
		}
		for i := range data {
			v[i] = s.momentum*v[i] + g[i]
			data[i] -= s.lr * v[i]
		}
	}
}
