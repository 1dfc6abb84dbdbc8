package tensor

// Backend defines the interface that compute backends implement.
// Backends do the actual arithmetic on RawTensors; the autodiff decorator
// wraps a Backend and records every call on its gradient tape.
//
// The operation set is exactly what the regression pipeline exercises:
// elementwise arithmetic, GEMM, the convolutional extractor ops, shape
// manipulation, the penalty reduction, and argmax for evaluation.
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations (NCHW layout)
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// MulScalar multiplies every element by a scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Reductions
	Sum(x *RawTensor) *RawTensor            // total sum, shape {1}
	PowSum(x *RawTensor, p float64) *RawTensor // sum of |x|^p, shape {1}
	Argmax(x *RawTensor, dim int) *RawTensor   // int64 indices of max along dim

	// Metadata
	Name() string
	Device() Device
}
