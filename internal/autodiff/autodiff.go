// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator. AutodiffBackend wraps any tensor.Backend and records
// every operation on an explicit GradientTape; walking the tape backwards
// propagates gradients to every tensor read while recording.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	// ... forward pass ...
//	grads := backend.Tape().Backward(outputGrad, backend)
//	backend.Tape().Clear()
package autodiff

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/autodiff/ops"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds gradient tracking.
// It satisfies the tensor.Backend interface itself, so modules built
// against the interface record automatically when the tape is on.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for explicit control of recording,
// backward passes and per-batch clearing.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Reshape reshapes a tensor and records the operation. Without the
// recording, gradients computed for the reshaped view would never reach
// the original parameter (the bias reshaped for broadcasting, the weight
// tensor flattened for the regression multiply).
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose permutes a tensor's axes and records the operation. The
// backend materializes a new tensor for the permutation, so without the
// recording the optimizer would find no gradient for the original.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	b.tape.Record(ops.NewTransposeOp(t, result, axes))
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(t *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(t, scalar)
	b.tape.Record(ops.NewMulScalarOp(t, result, scalar))
	return result
}

// Sum reduces to the total sum and records the operation.
func (b *AutodiffBackend[B]) Sum(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(t)
	b.tape.Record(ops.NewSumOp(t, result))
	return result
}

// PowSum computes Σ|x|^p and records the operation. This is the
// building block of the regression layer's norm penalty.
func (b *AutodiffBackend[B]) PowSum(t *tensor.RawTensor, p float64) *tensor.RawTensor {
	result := b.inner.PowSum(t, p)
	b.tape.Record(ops.NewPowSumOp(t, result, p))
	return result
}

// Argmax returns max indices along dim. Integer-valued and therefore
// not differentiable; nothing is recorded.
func (b *AutodiffBackend[B]) Argmax(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(t, dim)
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// MaxPool2D performs 2D max pooling and records the operation.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	result := b.inner.MaxPool2D(input, kernelSize, stride)
	b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride))
	return result
}

// ReLU applies the rectified linear activation and records the
// operation. Implemented here rather than in the Backend interface since
// only recorded forward passes use it.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			if v > 0 {
				dst[i] = v
			}
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			if v > 0 {
				dst[i] = v
			}
		}
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// CrossEntropy computes the fused softmax cross-entropy loss for
// classification and records the operation.
//
// logits: [batch, classes] float; targets: [batch] int64 class indices.
// Returns the scalar mean loss over the batch.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.CrossEntropyForward(logits, targets, b.Device())
	b.tape.Record(ops.NewCrossEntropyOp(logits, targets, result))
	return result
}
