// Package optim provides gradient descent optimizers that consume the
// gradient maps produced by the autodiff tape.
package optim

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

// ParameterSource yields the current trainable parameters. Optimizers
// re-fetch the list on every Step instead of caching it at construction,
// so parameters that materialize lazily at the first forward pass are
// picked up without any re-registration.
type ParameterSource[B tensor.Backend] interface {
	Parameters() []*nn.Parameter[B]
}

// Optimizer applies one update step from a gradient map keyed by
// parameter RawTensor.
type Optimizer interface {
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
}

// gradientFor looks up a parameter's gradient and checks its size.
// Returns nil when no gradient flowed to the parameter this step.
func gradientFor[B tensor.Backend](grads map[*tensor.RawTensor]*tensor.RawTensor, p *nn.Parameter[B]) []float32 {
	grad, ok := grads[p.Raw()]
	if !ok {
		return nil
	}
	g := grad.AsFloat32()
	if len(g) != p.Value().NumElements() {
		panic(fmt.Sprintf("optimizer: gradient for %s has %d elements, parameter has %d",
			p.Name(), len(g), p.Value().NumElements()))
	}
	return g
}
