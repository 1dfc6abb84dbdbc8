package ops

import (
	"fmt"
	"math"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// PowSumOp represents the entrywise norm reduction: output = Σ |x_i|^p.
// For p=2 this is the squared Frobenius norm; the regression layer's
// penalty is a sum of these over its core and factor parameters.
//
// Backward:
//
//	∂(Σ|x|^p)/∂x_i = p * sign(x_i) * |x_i|^(p-1)
//
// At p=1 the subgradient 0 is used for x_i = 0.
type PowSumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	p      float64
}

// NewPowSumOp creates a new PowSumOp.
func NewPowSumOp(input, output *tensor.RawTensor, p float64) *PowSumOp {
	return &PowSumOp{input: input, output: output, p: p}
}

// Backward computes the entrywise gradient scaled by the upstream scalar.
func (op *PowSumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("PowSumOp: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		powSumGrad(grad.AsFloat32(), op.input.AsFloat32(), float64(outputGrad.AsFloat32()[0]), op.p)
	case tensor.Float64:
		powSumGrad(grad.AsFloat64(), op.input.AsFloat64(), outputGrad.AsFloat64()[0], op.p)
	default:
		panic("PowSumOp: only supports float32 and float64")
	}
	return []*tensor.RawTensor{grad}
}

func powSumGrad[T float32 | float64](dst, x []T, upstream, p float64) {
	for i, v := range x {
		fv := float64(v)
		var g float64
		switch {
		case p == 2:
			g = 2 * fv
		case fv > 0:
			g = p * math.Pow(fv, p-1)
		case fv < 0:
			g = -p * math.Pow(-fv, p-1)
		}
		dst[i] = T(upstream * g)
	}
}

// Inputs returns the input tensor.
func (op *PowSumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar reduction.
func (op *PowSumOp) Output() *tensor.RawTensor {
	return op.output
}
