package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

type cpuBackend = *cpu.CPUBackend

func fromSlice(t *testing.T, data []float32, shape tensor.Shape, b cpuBackend) *tensor.Tensor[float32, cpuBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

func TestModeDotFront(t *testing.T) {
	b := cpu.New()
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	m := fromSlice(t, []float32{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2}, b)

	// mode 0 contraction of a matrix is m @ x
	y := nn.ModeDot(x, m, 0)
	require.Equal(t, tensor.Shape{3, 3}, y.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 5, 7, 9}, y.Data())
}

func TestModeDotLast(t *testing.T) {
	b := cpu.New()
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	m := fromSlice(t, []float32{1, 1, 1, 0, 1, 0}, tensor.Shape{2, 3}, b)

	// mode 1 contraction of a matrix is x @ mᵀ
	y := nn.ModeDot(x, m, 1)
	require.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{6, 2, 15, 5}, y.Data())
}

func TestModeDotMiddle(t *testing.T) {
	b := cpu.New()
	x := fromSlice(t, []float32{
		1, 2,
		3, 4,

		5, 6,
		7, 8,
	}, tensor.Shape{2, 2, 2}, b)
	m := fromSlice(t, []float32{1, 1, 2, 0, 0, 2}, tensor.Shape{3, 2}, b)

	y := nn.ModeDot(x, m, 1)
	require.Equal(t, tensor.Shape{2, 3, 2}, y.Shape())

	// y[i, j, k] = Σ_a m[j, a] * x[i, a, k]
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 2; k++ {
				want := m.At(j, 0)*x.At(i, 0, k) + m.At(j, 1)*x.At(i, 1, k)
				assert.InDelta(t, want, y.At(i, j, k), 1e-5)
			}
		}
	}
}

func TestModeDotValidation(t *testing.T) {
	b := cpu.New()
	x := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, b)
	m := fromSlice(t, []float32{1, 2, 3}, tensor.Shape{1, 3}, b)

	assert.Panics(t, func() { nn.ModeDot(x, m, 0) })  // column mismatch
	assert.Panics(t, func() { nn.ModeDot(x, x, 2) })  // mode out of range
	assert.Panics(t, func() { nn.ModeDot(x, x.Reshape(4), 0) }) // not a matrix
}

func TestTuckerReconstructMatrix(t *testing.T) {
	b := cpu.New()
	// identity core: reconstruction is F0 @ F1ᵀ
	core := fromSlice(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2}, b)
	f0 := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, b)
	f1 := fromSlice(t, []float32{1, 0, 0, 1, 1, 1, 2, 2}, tensor.Shape{4, 2}, b)

	full := nn.TuckerReconstruct(core, []*tensor.Tensor[float32, cpuBackend]{f0, f1})
	require.Equal(t, tensor.Shape{3, 4}, full.Shape())

	want := f0.MatMul(f1.T())
	assert.Equal(t, want.Data(), full.Data())
}

func TestTuckerReconstructShape(t *testing.T) {
	b := cpu.New()
	core := tensor.Randn[float32](tensor.Shape{2, 2, 2}, b)
	factors := []*tensor.Tensor[float32, cpuBackend]{
		tensor.Randn[float32](tensor.Shape{3, 2}, b),
		tensor.Randn[float32](tensor.Shape{4, 2}, b),
		tensor.Randn[float32](tensor.Shape{5, 2}, b),
	}

	full := nn.TuckerReconstruct(core, factors)
	assert.Equal(t, tensor.Shape{3, 4, 5}, full.Shape())
}

func TestTuckerReconstructFactorCount(t *testing.T) {
	b := cpu.New()
	core := tensor.Randn[float32](tensor.Shape{2, 2}, b)
	one := []*tensor.Tensor[float32, cpuBackend]{tensor.Randn[float32](tensor.Shape{3, 2}, b)}

	assert.Panics(t, func() { nn.TuckerReconstruct(core, one) })
}
