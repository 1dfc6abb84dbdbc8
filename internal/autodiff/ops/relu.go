package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// ReLUOp represents the rectified linear activation: output = max(0, x).
//
// d(ReLU(x))/dx = 1 where x > 0, else 0.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward masks the gradient where the input was non-positive.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("ReLUOp: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		reluGrad(grad.AsFloat32(), op.input.AsFloat32(), outputGrad.AsFloat32())
	case tensor.Float64:
		reluGrad(grad.AsFloat64(), op.input.AsFloat64(), outputGrad.AsFloat64())
	default:
		panic("ReLUOp: only supports float32 and float64")
	}
	return []*tensor.RawTensor{grad}
}

func reluGrad[T float32 | float64](dst, x, g []T) {
	for i, v := range x {
		if v > 0 {
			dst[i] = g[i]
		}
	}
}

// Inputs returns the input tensor.
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the activated tensor.
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
