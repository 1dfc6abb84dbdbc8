package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// SumOp represents a total-sum reduction to shape {1}.
//
// d(sum)/dx_i = 1 for every element, so the backward pass broadcasts the
// scalar output gradient to the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("SumOp: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		g := outputGrad.AsFloat32()[0]
		data := grad.AsFloat32()
		for i := range data {
			data[i] = g
		}
	case tensor.Float64:
		g := outputGrad.AsFloat64()[0]
		data := grad.AsFloat64()
		for i := range data {
			data[i] = g
		}
	default:
		panic("SumOp: only supports float32 and float64")
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
