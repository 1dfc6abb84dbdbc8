package nn

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Conv2D is a 2D convolution layer in NCHW layout.
type Conv2D[B tensor.Backend] struct {
	kernel  *Parameter[B] // (outC, inC, k, k)
	bias    *Parameter[B] // (1, outC, 1, 1), broadcast over batch and space
	stride  int
	padding int
}

// NewConv2D creates a convolution layer with square kernels.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 || kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid configuration in=%d out=%d kernel=%d", inChannels, outChannels, kernelSize))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	kShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}

	return &Conv2D[B]{
		kernel:  NewParameter("conv2d.kernel", Xavier(kShape, fanIn, fanOut, backend)),
		bias:    NewParameter("conv2d.bias", tensor.Zeros[float32](tensor.Shape{1, outChannels, 1, 1}, backend)),
		stride:  stride,
		padding: padding,
	}
}

// Forward convolves x of shape (batch, inC, H, W).
func (c *Conv2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := x.Backend()
	out := tensor.New[float32](backend.Conv2D(x.Raw(), c.kernel.Raw(), c.stride, c.padding), backend)
	return out.Add(c.bias.Value())
}

// Parameters returns the kernel and bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.kernel, c.bias}
}
