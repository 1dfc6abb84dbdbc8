// Package ops defines the differentiable operations recorded on the
// gradient tape. Each operation captures its inputs and output during the
// forward pass and computes input gradients during the backward pass.
package ops

import "github.com/lowrank-ml/tucker/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per input tensor, in input order.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
