package cpu

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Reshape returns a view of the tensor under a new shape.
// The element count must match. Shares the underlying buffer.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := t.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose permutes the tensor's dimensions. With no axes it reverses
// all dimensions. The result is a contiguous copy.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes permutation %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		permute(result.AsFloat32(), t.AsFloat32(), outShape, t.Strides(), axes)
	case tensor.Float64:
		permute(result.AsFloat64(), t.AsFloat64(), outShape, t.Strides(), axes)
	case tensor.Int64:
		permute(result.AsInt64(), t.AsInt64(), outShape, t.Strides(), axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

func permute[T float32 | float64 | int64](dst, src []T, outShape tensor.Shape, inStrides []int, axes []int) {
	outStrides := outShape.ComputeStrides()
	for outIdx := range dst {
		remaining := outIdx
		inIdx := 0
		for dim := 0; dim < len(outShape); dim++ {
			coord := remaining / outStrides[dim]
			remaining %= outStrides[dim]
			inIdx += coord * inStrides[axes[dim]]
		}
		dst[outIdx] = src[inIdx]
	}
}
