package cpu

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Conv2D performs 2D convolution in NCHW layout.
//
// input:  [batch, inC, H, W]
// kernel: [outC, inC, kH, kW]
// output: [batch, outC, (H+2p-kH)/s+1, (W+2p-kW)/s+1]
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inShape, kShape := input.Shape(), kernel.Shape()
	if len(inShape) != 4 || len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input and kernel, got %v and %v", inShape, kShape))
	}
	if inShape[1] != kShape[1] {
		panic(fmt.Sprintf("conv2d: channel mismatch: input has %d, kernel expects %d", inShape[1], kShape[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d or padding %d", stride, padding))
	}

	batch, inC, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outC, kh, kw := kShape[0], kShape[2], kShape[3]
	outH := (h+2*padding-kh)/stride + 1
	outW := (w+2*padding-kw)/stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d too large for input %dx%d with padding %d", kh, kw, h, w, padding))
	}

	result, err := tensor.NewRaw(tensor.Shape{batch, outC, outH, outW}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		conv2dLoop(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			batch, inC, h, w, outC, kh, kw, outH, outW, stride, padding)
	case tensor.Float64:
		conv2dLoop(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			batch, inC, h, w, outC, kh, kw, outH, outW, stride, padding)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}
	return result
}

func conv2dLoop[T float32 | float64](
	out, in, kern []T,
	batch, inC, h, w, outC, kh, kw, outH, outW, stride, padding int,
) {
	for n := 0; n < batch; n++ {
		for oc := 0; oc < outC; oc++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					var sum T
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
								sum += in[((n*inC+ic)*h+iy)*w+ix] *
									kern[((oc*inC+ic)*kh+ky)*kw+kx]
							}
						}
					}
					out[((n*outC+oc)*outH+oy)*outW+ox] = sum
				}
			}
		}
	}
}
