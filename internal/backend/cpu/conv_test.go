package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

func TestConv2D(t *testing.T) {
	b := cpu.New()
	input := fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3}, b)
	kernel := fromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2}, b)

	out := b.Conv2D(input.Raw(), kernel.Raw(), 1, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{12, 16, 24, 28}, out.AsFloat32())
}

func TestConv2DPadding(t *testing.T) {
	b := cpu.New()
	input := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, b)
	kernel := fromSlice(t, []float32{1}, tensor.Shape{1, 1, 1, 1}, b)

	out := b.Conv2D(input.Raw(), kernel.Raw(), 1, 1)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, out.Shape())
	// interior survives, the padded border is zero
	got := out.AsFloat32()
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(1), got[5])
	assert.Equal(t, float32(4), got[10])
}

func TestConv2DMultiChannel(t *testing.T) {
	b := cpu.New()
	// two input channels, kernel sums them
	input := fromSlice(t, []float32{
		1, 2, 3, 4, // channel 0
		10, 20, 30, 40, // channel 1
	}, tensor.Shape{1, 2, 2, 2}, b)
	kernel := fromSlice(t, []float32{1, 1}, tensor.Shape{1, 2, 1, 1}, b)

	out := b.Conv2D(input.Raw(), kernel.Raw(), 1, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 44}, out.AsFloat32())
}

func TestConv2DChannelMismatchPanics(t *testing.T) {
	b := cpu.New()
	input := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, b)
	kernel := fromSlice(t, []float32{1, 1}, tensor.Shape{1, 2, 1, 1}, b)

	assert.Panics(t, func() { b.Conv2D(input.Raw(), kernel.Raw(), 1, 0) })
}

func TestMaxPool2D(t *testing.T) {
	b := cpu.New()
	input := fromSlice(t, []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4}, b)

	out := b.MaxPool2D(input.Raw(), 2, 2)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, out.AsFloat32())
}
