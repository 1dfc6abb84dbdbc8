package nn

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Linear is a fully connected layer: y = x W + b.
//
// It is the dense baseline for the tensor regression head: same
// input/output contract, no factorization, inFeatures*outFeatures weights.
type Linear[B tensor.Backend] struct {
	weight *Parameter[B] // (in, out)
	bias   *Parameter[B] // (1, out), broadcast over the batch
}

// NewLinear creates a dense layer with Xavier-initialized weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}
	return &Linear[B]{
		weight: NewParameter("linear.weight", Xavier(tensor.Shape{inFeatures, outFeatures}, inFeatures, outFeatures, backend)),
		bias:   NewParameter("linear.bias", tensor.Zeros[float32](tensor.Shape{1, outFeatures}, backend)),
	}
}

// Forward computes x W + b for x of shape (batch, in). Inputs with more
// dimensions are flattened to (batch, -1) first.
func (l *Linear[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(x.Shape()) > 2 {
		x = x.Reshape(x.Shape()[0], x.NumElements()/x.Shape()[0])
	}
	return x.MatMul(l.weight.Value()).Add(l.bias.Value())
}

// Penalty returns Σ|w|^p over the weight matrix. The bias is not
// penalized.
func (l *Linear[B]) Penalty(p float64) *tensor.Tensor[float32, B] {
	return l.weight.Value().PowSum(p)
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}
