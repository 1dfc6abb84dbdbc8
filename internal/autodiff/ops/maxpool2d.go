package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// MaxPool2DOp represents 2D max pooling (NCHW).
//
// Gradients flow only to the position that held the window maximum; the
// backward pass recomputes the argmax per window from the stored input.
type MaxPool2DOp struct {
	input      *tensor.RawTensor // [N, C, H, W]
	output     *tensor.RawTensor // [N, C, outH, outW]
	kernelSize int
	stride     int
}

// NewMaxPool2DOp creates a new MaxPool2DOp.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *MaxPool2DOp {
	return &MaxPool2DOp{input: input, output: output, kernelSize: kernelSize, stride: stride}
}

// Backward routes each output gradient to its window's max position.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	gradInput, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("MaxPool2DOp: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		maxPoolBackward(gradInput.AsFloat32(), op.input.AsFloat32(), outputGrad.AsFloat32(),
			op.input.Shape(), op.output.Shape(), op.kernelSize, op.stride)
	case tensor.Float64:
		maxPoolBackward(gradInput.AsFloat64(), op.input.AsFloat64(), outputGrad.AsFloat64(),
			op.input.Shape(), op.output.Shape(), op.kernelSize, op.stride)
	default:
		panic("MaxPool2DOp: only supports float32 and float64")
	}
	return []*tensor.RawTensor{gradInput}
}

func maxPoolBackward[T float32 | float64](
	gradIn, in, g []T,
	inShape, outShape tensor.Shape,
	kernel, stride int,
) {
	batch, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outH, outW := outShape[2], outShape[3]

	for n := 0; n < batch; n++ {
		for ch := 0; ch < c; ch++ {
			base := (n*c + ch) * h * w
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					bestIdx := base + oy*stride*w + ox*stride
					bestVal := in[bestIdx]
					for ky := 0; ky < kernel; ky++ {
						for kx := 0; kx < kernel; kx++ {
							idx := base + (oy*stride+ky)*w + (ox*stride + kx)
							if in[idx] > bestVal {
								bestVal = in[idx]
								bestIdx = idx
							}
						}
					}
					gradIn[bestIdx] += g[((n*c+ch)*outH+oy)*outW+ox]
				}
			}
		}
	}
}

// Inputs returns the input tensor.
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the pooled tensor.
func (op *MaxPool2DOp) Output() *tensor.RawTensor {
	return op.output
}
