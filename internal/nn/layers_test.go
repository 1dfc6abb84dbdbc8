package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	b := cpu.New()
	l := nn.NewLinear[cpuBackend](2, 2, b)

	// overwrite random init with the identity and a known bias
	w := l.Parameters()[0].Value().Data()
	copy(w, []float32{1, 0, 0, 1})
	bias := l.Parameters()[1].Value().Data()
	copy(bias, []float32{10, 20})

	x := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, b)
	y := l.Forward(x)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{11, 22, 13, 24}, y.Data())
}

func TestLinearFlattensInput(t *testing.T) {
	b := cpu.New()
	l := nn.NewLinear[cpuBackend](4, 3, b)

	x := tensor.Randn[float32](tensor.Shape{2, 2, 2}, b)
	y := l.Forward(x)
	assert.Equal(t, tensor.Shape{2, 3}, y.Shape())
}

func TestLinearPenalty(t *testing.T) {
	b := cpu.New()
	l := nn.NewLinear[cpuBackend](3, 2, b)

	var want float64
	for _, v := range l.Parameters()[0].Value().Data() {
		want += float64(v) * float64(v)
	}
	assert.InDelta(t, want, float64(l.Penalty(2).Item()), 1e-5)
}

func TestConv2DLayer(t *testing.T) {
	b := cpu.New()
	c := nn.NewConv2D[cpuBackend](1, 2, 3, 1, 0, b)

	params := c.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, tensor.Shape{2, 1, 3, 3}, params[0].Value().Shape())
	assert.Equal(t, tensor.Shape{1, 2, 1, 1}, params[1].Value().Shape())

	x := tensor.Randn[float32](tensor.Shape{4, 1, 5, 5}, b)
	y := c.Forward(x)
	assert.Equal(t, tensor.Shape{4, 2, 3, 3}, y.Shape())
}

func TestMaxPool2DLayer(t *testing.T) {
	b := cpu.New()
	// stride 0 defaults to the kernel size
	p := nn.NewMaxPool2D[cpuBackend](2, 0)
	assert.Nil(t, p.Parameters())

	x := tensor.Randn[float32](tensor.Shape{1, 3, 8, 8}, b)
	y := p.Forward(x)
	assert.Equal(t, tensor.Shape{1, 3, 4, 4}, y.Shape())
}

func TestAccuracy(t *testing.T) {
	b := cpu.New()
	logits := fromSlice(t, []float32{
		0.9, 0.1,
		0.2, 0.8,
		0.7, 0.3,
	}, tensor.Shape{3, 2}, b)

	allRight, err := tensor.FromSlice([]int64{0, 1, 0}, tensor.Shape{3}, b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, nn.Accuracy(logits, allRight))

	allWrong, err := tensor.FromSlice([]int64{1, 0, 1}, tensor.Shape{3}, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, nn.Accuracy(logits, allWrong))

	oneRight, err := tensor.FromSlice([]int64{0, 0, 1}, tensor.Shape{3}, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, nn.Accuracy(logits, oneRight), 1e-9)
}

func TestXavierScale(t *testing.T) {
	b := cpu.New()
	w := nn.Xavier(tensor.Shape{100, 100}, 100, 100, b)
	assert.Equal(t, tensor.Shape{100, 100}, w.Shape())

	// sample variance should sit near 2/(fanIn+fanOut) = 0.01
	var sumSq float64
	for _, v := range w.Data() {
		sumSq += float64(v) * float64(v)
	}
	variance := sumSq / float64(w.NumElements())
	assert.InDelta(t, 0.01, variance, 0.005)
}
