package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// reduceBroadcast reduces a gradient back to the shape of an input that
// was broadcast during the forward pass, by summing along the broadcast
// dimensions. Returns the gradient unchanged when no reduction is needed.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, _ tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	result, err := tensor.NewRaw(targetShape, grad.DType(), grad.Device())
	if err != nil {
		panic(fmt.Sprintf("reduceBroadcast: %v", err))
	}

	switch grad.DType() {
	case tensor.Float32:
		accumulateBroadcast(result.AsFloat32(), grad.AsFloat32(), grad.Shape(), targetShape)
	case tensor.Float64:
		accumulateBroadcast(result.AsFloat64(), grad.AsFloat64(), grad.Shape(), targetShape)
	default:
		panic(fmt.Sprintf("reduceBroadcast: unsupported dtype %s", grad.DType()))
	}
	return result
}

func accumulateBroadcast[T float32 | float64](dst, grad []T, gradShape, targetShape tensor.Shape) {
	gradStrides := gradShape.ComputeStrides()
	targetStrides := targetShape.ComputeStrides()
	offset := len(gradShape) - len(targetShape)

	for gradIdx := range grad {
		remaining := gradIdx
		dstIdx := 0
		for dim := 0; dim < len(gradShape); dim++ {
			coord := remaining / gradStrides[dim]
			remaining %= gradStrides[dim]
			if dim < offset {
				continue
			}
			if targetShape[dim-offset] == 1 {
				continue
			}
			dstIdx += coord * targetStrides[dim-offset]
		}
		dst[dstIdx] += grad[gradIdx]
	}
}

// softmaxRow computes a numerically stable softmax for one sample.
func softmaxRow[T float32 | float64](logits []T) []T {
	probs := make([]T, len(logits))

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sumExp T
	for i, v := range logits {
		probs[i] = expT(v - maxVal)
		sumExp += probs[i]
	}
	for i := range probs {
		probs[i] /= sumExp
	}
	return probs
}
