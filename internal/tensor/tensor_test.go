package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, float32(6), x.At(1, 2))

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, b)
	require.Error(t, err)
}

func TestFromSliceCopies(t *testing.T) {
	b := cpu.New()
	src := []float32{1, 2}

	x, err := tensor.FromSlice(src, tensor.Shape{2}, b)
	require.NoError(t, err)

	src[0] = 99
	assert.Equal(t, float32(1), x.At(0))
}

func TestAtSet(t *testing.T) {
	b := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{2, 2}, b)

	x.Set(7, 1, 0)
	assert.Equal(t, float32(7), x.At(1, 0))
	assert.Equal(t, float32(0), x.At(0, 1))

	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestItem(t *testing.T) {
	b := cpu.New()

	s := tensor.Full(tensor.Shape{1}, float32(3.5), b)
	assert.Equal(t, float32(3.5), s.Item())

	m := tensor.Zeros[float32](tensor.Shape{2}, b)
	assert.Panics(t, func() { m.Item() })
}

func TestCreation(t *testing.T) {
	b := cpu.New()

	ones := tensor.Ones[float64](tensor.Shape{3}, b)
	assert.Equal(t, []float64{1, 1, 1}, ones.Data())

	full := tensor.Full(tensor.Shape{2, 2}, int64(5), b)
	assert.Equal(t, []int64{5, 5, 5, 5}, full.Data())

	randn := tensor.Randn[float32](tensor.Shape{101}, b)
	assert.Equal(t, 101, randn.NumElements())
	assert.Panics(t, func() { tensor.Randn[int64](tensor.Shape{2}, b) })

	uniform := tensor.Rand[float32](tensor.Shape{64}, b)
	for _, v := range uniform.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestClone(t *testing.T) {
	b := cpu.New()
	x := tensor.Full(tensor.Shape{2}, float32(1), b)

	y := x.Clone()
	y.Set(9, 0)
	assert.Equal(t, float32(1), x.At(0))
	assert.Equal(t, float32(9), y.At(0))
}
