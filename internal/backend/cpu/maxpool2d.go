package cpu

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// MaxPool2D performs 2D max pooling in NCHW layout.
//
// input:  [batch, C, H, W]
// output: [batch, C, (H-k)/s+1, (W-k)/s+1]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	inShape := input.Shape()
	if len(inShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input, got %v", inShape))
	}
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel %d or stride %d", kernelSize, stride))
	}

	batch, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outH := (h-kernelSize)/stride + 1
	outW := (w-kernelSize)/stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("maxpool2d: window %d too large for input %dx%d", kernelSize, h, w))
	}

	result, err := tensor.NewRaw(tensor.Shape{batch, c, outH, outW}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		maxPoolLoop(result.AsFloat32(), input.AsFloat32(), batch, c, h, w, outH, outW, kernelSize, stride)
	case tensor.Float64:
		maxPoolLoop(result.AsFloat64(), input.AsFloat64(), batch, c, h, w, outH, outW, kernelSize, stride)
	default:
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %s", input.DType()))
	}
	return result
}

func maxPoolLoop[T float32 | float64](
	out, in []T,
	batch, c, h, w, outH, outW, kernel, stride int,
) {
	for n := 0; n < batch; n++ {
		for ch := 0; ch < c; ch++ {
			plane := in[(n*c+ch)*h*w : (n*c+ch+1)*h*w]
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					maxVal := plane[oy*stride*w+ox*stride]
					for ky := 0; ky < kernel; ky++ {
						for kx := 0; kx < kernel; kx++ {
							v := plane[(oy*stride+ky)*w+(ox*stride+kx)]
							if v > maxVal {
								maxVal = v
							}
						}
					}
					out[((n*c+ch)*outH+oy)*outW+ox] = maxVal
				}
			}
		}
	}
}
