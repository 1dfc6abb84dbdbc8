package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// CrossEntropyOp represents the fused softmax + cross-entropy loss.
//
// Forward:
//
//	Loss = mean(-log_softmax(logits)[targets])
//
// using the log-sum-exp trick for numerical stability.
//
// Backward:
//
//	∂L/∂logits = (softmax(logits) - y_one_hot) / batch_size
//
// The fusion is what makes the gradient this simple; it is the reason
// softmax and cross-entropy ship as one operation.
//
// Shapes: logits [batch, classes] float; targets [batch] int64 class
// indices; output scalar {1}.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

// NewCrossEntropyOp creates a new cross-entropy operation.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, targets: targets, output: output}
}

// CrossEntropyForward computes the mean cross-entropy loss.
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross-entropy: expected 2D logits [batch, classes], got %v", shape))
	}
	if targets.DType() != tensor.Int64 || len(targets.Shape()) != 1 || targets.Shape()[0] != shape[0] {
		panic(fmt.Sprintf("cross-entropy: expected int64 targets of shape [%d], got %s %v",
			shape[0], targets.DType(), targets.Shape()))
	}

	result, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("cross-entropy: %v", err))
	}

	switch logits.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = crossEntropyLoss(logits.AsFloat32(), targets.AsInt64(), shape[0], shape[1])
	case tensor.Float64:
		result.AsFloat64()[0] = crossEntropyLoss(logits.AsFloat64(), targets.AsInt64(), shape[0], shape[1])
	default:
		panic("cross-entropy: only supports float32 and float64")
	}
	return result
}

func crossEntropyLoss[T float32 | float64](logits []T, targets []int64, batch, classes int) T {
	var total T
	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]

		// log-sum-exp with max shift
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp T
		for _, v := range row {
			sumExp += expT(v - maxVal)
		}
		logSumExp := maxVal + logT(sumExp)

		target := int(targets[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("cross-entropy: target %d out of range [0,%d)", target, classes))
		}
		total += logSumExp - row[target]
	}
	return total / T(batch)
}

// Backward computes the gradient with respect to logits. Targets are
// class indices and receive no gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(fmt.Sprintf("CrossEntropyOp: %v", err))
	}

	switch op.logits.DType() {
	case tensor.Float32:
		crossEntropyGrad(grad.AsFloat32(), op.logits.AsFloat32(), op.targets.AsInt64(),
			outputGrad.AsFloat32()[0], batch, classes)
	case tensor.Float64:
		crossEntropyGrad(grad.AsFloat64(), op.logits.AsFloat64(), op.targets.AsInt64(),
			outputGrad.AsFloat64()[0], batch, classes)
	default:
		panic("CrossEntropyOp: only supports float32 and float64")
	}
	return []*tensor.RawTensor{grad}
}

func crossEntropyGrad[T float32 | float64](dst, logits []T, targets []int64, upstream T, batch, classes int) {
	for b := 0; b < batch; b++ {
		probs := softmaxRow(logits[b*classes : (b+1)*classes])
		target := int(targets[b])
		for i := 0; i < classes; i++ {
			g := probs[i]
			if i == target {
				g -= 1
			}
			dst[b*classes+i] = upstream * g / T(batch)
		}
	}
}

// Inputs returns the logits (the only differentiated input).
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}
