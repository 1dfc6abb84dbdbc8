package cpu

import (
	"fmt"
	"math"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Sum reduces the tensor to its total sum, shape {1}.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Float64:
		var sum float64
		for _, v := range x.AsFloat64() {
			sum += v
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

// PowSum computes the sum of |x|^p over all elements, shape {1}.
// For p=2 this is the squared Frobenius norm.
func (cpu *CPUBackend) PowSum(x *tensor.RawTensor, p float64) *tensor.RawTensor {
	if p < 1 {
		panic(fmt.Sprintf("powsum: order must be >= 1, got %v", p))
	}

	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("powsum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var sum float64
		for _, v := range x.AsFloat32() {
			sum += absPow(float64(v), p)
		}
		result.AsFloat32()[0] = float32(sum)
	case tensor.Float64:
		var sum float64
		for _, v := range x.AsFloat64() {
			sum += absPow(v, p)
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("powsum: unsupported dtype %s", x.DType()))
	}
	return result
}

func absPow(v, p float64) float64 {
	switch p {
	case 1:
		return math.Abs(v)
	case 2:
		return v * v
	default:
		return math.Pow(math.Abs(v), p)
	}
}

// Argmax returns int64 indices of the maximum value along dim.
// Currently supports 2D tensors with dim=1 (per-row argmax), which is
// what logits decoding needs.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 || dim != 1 {
		panic(fmt.Sprintf("argmax: only 2D tensors with dim=1 supported, got shape %v dim %d", shape, dim))
	}

	rows, cols := shape[0], shape[1]
	result, err := tensor.NewRaw(tensor.Shape{rows}, tensor.Int64, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}
	out := result.AsInt64()

	switch x.DType() {
	case tensor.Float32:
		argmaxRows(out, x.AsFloat32(), rows, cols)
	case tensor.Float64:
		argmaxRows(out, x.AsFloat64(), rows, cols)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}
	return result
}

func argmaxRows[T float32 | float64](out []int64, data []T, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		best := 0
		for i := 1; i < cols; i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		out[r] = int64(best)
	}
}
