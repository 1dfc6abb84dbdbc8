package nn

import (
	"math"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Xavier returns a float32 tensor drawn from N(0, 2/(fanIn+fanOut)).
// Variance scaling keeps activations and gradients at a stable magnitude
// across layers of different widths.
func Xavier[B tensor.Backend](shape tensor.Shape, fanIn, fanOut int, b B) *tensor.Tensor[float32, B] {
	t := tensor.Randn[float32](shape, b)
	scale := float32(math.Sqrt(2.0 / float64(fanIn+fanOut)))
	data := t.Data()
	for i := range data {
		data[i] *= scale
	}
	return t
}
