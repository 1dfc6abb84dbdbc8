package ops

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Conv2DOp represents 2D convolution (NCHW): output = input * kernel.
//
// The backward pass accumulates both gradients in one sweep over the
// output positions:
//
//	gradInput[n,ic,iy,ix]  += g[n,oc,oy,ox] * kernel[oc,ic,ky,kx]
//	gradKernel[oc,ic,ky,kx] += g[n,oc,oy,ox] * input[n,ic,iy,ix]
type Conv2DOp struct {
	input   *tensor.RawTensor // [N, inC, H, W]
	kernel  *tensor.RawTensor // [outC, inC, kH, kW]
	output  *tensor.RawTensor // [N, outC, outH, outW]
	stride  int
	padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{input: input, kernel: kernel, output: output, stride: stride, padding: padding}
}

// Backward computes gradients for input and kernel.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	gradInput, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp: %v", err))
	}
	gradKernel, err := tensor.NewRaw(op.kernel.Shape(), op.kernel.DType(), op.kernel.Device())
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		conv2dBackward(gradInput.AsFloat32(), gradKernel.AsFloat32(),
			op.input.AsFloat32(), op.kernel.AsFloat32(), outputGrad.AsFloat32(),
			op.input.Shape(), op.kernel.Shape(), op.output.Shape(), op.stride, op.padding)
	case tensor.Float64:
		conv2dBackward(gradInput.AsFloat64(), gradKernel.AsFloat64(),
			op.input.AsFloat64(), op.kernel.AsFloat64(), outputGrad.AsFloat64(),
			op.input.Shape(), op.kernel.Shape(), op.output.Shape(), op.stride, op.padding)
	default:
		panic("Conv2DOp: only supports float32 and float64")
	}

	return []*tensor.RawTensor{gradInput, gradKernel}
}

func conv2dBackward[T float32 | float64](
	gradIn, gradKern, in, kern, g []T,
	inShape, kShape, outShape tensor.Shape,
	stride, padding int,
) {
	batch, inC, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outC, kh, kw := kShape[0], kShape[2], kShape[3]
	outH, outW := outShape[2], outShape[3]

	for n := 0; n < batch; n++ {
		for oc := 0; oc < outC; oc++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					gv := g[((n*outC+oc)*outH+oy)*outW+ox]
					if gv == 0 {
						continue
					}
					for ic := 0; ic < inC; ic++ {
						for ky := 0; ky < kh; ky++ {
							iy := oy*stride + ky - padding
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < kw; kx++ {
								ix := ox*stride + kx - padding
								if ix < 0 || ix >= w {
									continue
								}
								inIdx := ((n*inC+ic)*h+iy)*w + ix
								kIdx := ((oc*inC+ic)*kh+ky)*kw + kx
								gradIn[inIdx] += gv * kern[kIdx]
								gradKern[kIdx] += gv * in[inIdx]
							}
						}
					}
				}
			}
		}
	}
}

// Inputs returns [input, kernel].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

// Output returns the convolution result.
func (op *Conv2DOp) Output() *tensor.RawTensor {
	return op.output
}
