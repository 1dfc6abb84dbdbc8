package nn

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// ModeDot contracts tensor t with matrix m along the given mode:
//
//	result[..., j, ...] = Σ_i m[j, i] * t[..., i, ...]
//
// m has shape (newDim, t.Shape()[mode]); the result keeps t's shape
// except that dimension mode becomes newDim.
//
// Implemented with permute/reshape/matmul so the whole contraction is a
// chain of recorded backend operations and differentiates for free.
func ModeDot[T tensor.DType, B tensor.Backend](t *tensor.Tensor[T, B], m *tensor.Tensor[T, B], mode int) *tensor.Tensor[T, B] {
	shape := t.Shape()
	if mode < 0 || mode >= len(shape) {
		panic(fmt.Sprintf("mode-dot: mode %d out of range for %d-dimensional tensor", mode, len(shape)))
	}
	mShape := m.Shape()
	if len(mShape) != 2 {
		panic(fmt.Sprintf("mode-dot: expected 2D matrix, got shape %v", mShape))
	}
	if mShape[1] != shape[mode] {
		panic(fmt.Sprintf("mode-dot: matrix columns %d do not match dimension %d of mode %d", mShape[1], shape[mode], mode))
	}

	// Bring the contracted mode to the front and flatten the rest.
	perm := make([]int, len(shape))
	perm[0] = mode
	k := 1
	for i := range shape {
		if i != mode {
			perm[k] = i
			k++
		}
	}
	rest := t.NumElements() / shape[mode]
	flat := t.Transpose(perm...).Reshape(shape[mode], rest)

	// (newDim, oldDim) @ (oldDim, rest) -> (newDim, rest)
	prod := m.MatMul(flat)

	newShape := make([]int, 0, len(shape))
	newShape = append(newShape, mShape[0])
	for i, d := range shape {
		if i != mode {
			newShape = append(newShape, d)
		}
	}

	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return prod.Reshape(newShape...).Transpose(inv...)
}

// TuckerReconstruct assembles the full tensor from a Tucker core and one
// factor matrix per mode:
//
//	full = core ×_0 factors[0] ×_1 factors[1] ... ×_{M-1} factors[M-1]
//
// core has shape (r_0, ..., r_{M-1}) and factors[i] has shape (d_i, r_i);
// the result has shape (d_0, ..., d_{M-1}).
func TuckerReconstruct[T tensor.DType, B tensor.Backend](core *tensor.Tensor[T, B], factors []*tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	if len(factors) != len(core.Shape()) {
		panic(fmt.Sprintf("tucker: %d-dimensional core needs %d factors, got %d",
			len(core.Shape()), len(core.Shape()), len(factors)))
	}

	full := core
	for i, f := range factors {
		full = ModeDot(full, f, i)
	}
	return full
}
