// Package cpu implements the CPU compute backend. Elementwise arithmetic
// supports NumPy-style broadcasting; matrix multiplication is delegated
// to gonum's BLAS implementation.
package cpu

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulscalar: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst, s := x.AsFloat32(), result.AsFloat32(), float32(scalar)
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v * scalar
		}
	default:
		panic(fmt.Sprintf("mulscalar: unsupported dtype %s", x.DType()))
	}
	return result
}

// binary applies a broadcasting element-wise binary operation.
func (cpu *CPUBackend) binary(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	switch a.DType() {
	case tensor.Float32:
		binaryLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(),
			outShape, a.Shape(), b.Shape(), needsBroadcast, f32)
	case tensor.Float64:
		binaryLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(),
			outShape, a.Shape(), b.Shape(), needsBroadcast, f64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

func binaryLoop[T float32 | float64](
	dst, a, b []T,
	outShape, aShape, bShape tensor.Shape,
	needsBroadcast bool,
	op func(x, y T) T,
) {
	if !needsBroadcast {
		for i := range dst {
			dst[i] = op(a[i], b[i])
		}
		return
	}

	mapA := broadcastIndexer(outShape, aShape)
	mapB := broadcastIndexer(outShape, bShape)
	for i := range dst {
		dst[i] = op(a[mapA(i)], b[mapB(i)])
	}
}

// broadcastIndexer maps a linear index into outShape onto the
// corresponding linear index of a tensor with shape inShape, where
// inShape broadcasts to outShape.
func broadcastIndexer(outShape, inShape tensor.Shape) func(int) int {
	outStrides := outShape.ComputeStrides()
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)

	return func(outIdx int) int {
		inIdx := 0
		remaining := outIdx
		for dim := 0; dim < len(outShape); dim++ {
			coord := remaining / outStrides[dim]
			remaining %= outStrides[dim]
			if dim < offset {
				continue
			}
			if inShape[dim-offset] == 1 {
				continue // broadcast dimension
			}
			inIdx += coord * inStrides[dim-offset]
		}
		return inIdx
	}
}
