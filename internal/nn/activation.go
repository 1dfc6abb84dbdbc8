package nn

import "github.com/lowrank-ml/tucker/internal/tensor"

// ReLUBackend is a backend that implements the rectified linear unit.
type ReLUBackend interface {
	tensor.Backend
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
}

// ReLU is the rectified linear activation, max(0, x). Stateless.
type ReLU[B ReLUBackend] struct{}

// NewReLU creates a ReLU activation.
func NewReLU[B ReLUBackend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies the activation element-wise.
func (r *ReLU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32](x.Backend().ReLU(x.Raw()), x.Backend())
}

// Parameters returns nil, ReLU has no trainable state.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}
