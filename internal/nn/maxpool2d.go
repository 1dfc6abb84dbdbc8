package nn

import "github.com/lowrank-ml/tucker/internal/tensor"

// MaxPool2D is a 2D max pooling layer. Stateless.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
}

// NewMaxPool2D creates a pooling layer. A stride of 0 defaults to the
// kernel size (non-overlapping windows).
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int) *MaxPool2D[B] {
	if stride == 0 {
		stride = kernelSize
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride}
}

// Forward pools x of shape (batch, C, H, W).
func (m *MaxPool2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := x.Backend()
	return tensor.New[float32](backend.MaxPool2D(x.Raw(), m.kernelSize, m.stride), backend)
}

// Parameters returns nil, pooling has no trainable state.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}
