// Package nn provides neural network layers built on the tensor substrate:
// dense and convolutional layers, the Tucker-factorized tensor regression
// layer, and the parameter machinery they share.
//
// Layers are float32 and generic over the compute backend, so the same
// model code runs on a bare CPU backend for inference and on the autodiff
// decorator for training.
package nn

import "github.com/lowrank-ml/tucker/internal/tensor"

// Module is anything with trainable parameters.
//
// Parameters returns the currently materialized parameters. Layers with
// shape-deferred parameters grow this list on first forward, which is why
// optimizers re-fetch it every step instead of caching it.
type Module[B tensor.Backend] interface {
	Parameters() []*Parameter[B]
}

// Backend extends the base tensor backend with the activation and loss
// operations the layers in this package use. The autodiff decorator
// implements it.
type Backend interface {
	tensor.Backend
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}
