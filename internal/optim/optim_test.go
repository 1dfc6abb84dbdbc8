package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/optim"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

type cpuBackend = *cpu.CPUBackend

// sliceSource is a ParameterSource whose parameter list can grow between
// steps, like a model with shape-deferred factors.
type sliceSource struct {
	params []*nn.Parameter[cpuBackend]
}

func (s *sliceSource) Parameters() []*nn.Parameter[cpuBackend] {
	return s.params
}

func param(t *testing.T, b cpuBackend, name string, values []float32) *nn.Parameter[cpuBackend] {
	t.Helper()
	v, err := tensor.FromSlice(values, tensor.Shape{len(values)}, b)
	require.NoError(t, err)
	return nn.NewParameter(name, v)
}

func gradient(t *testing.T, b cpuBackend, values []float32) *tensor.RawTensor {
	t.Helper()
	g, err := tensor.FromSlice(values, tensor.Shape{len(values)}, b)
	require.NoError(t, err)
	return g.Raw()
}

func TestSGDStep(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{1, 2})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	sgd := optim.NewSGD(source, 0.5, 0)
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		p.Raw(): gradient(t, b, []float32{1, 1}),
	})

	assert.Equal(t, []float32{0.5, 1.5}, p.Value().Data())
}

func TestSGDMomentum(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{0})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	sgd := optim.NewSGD(source, 0.1, 0.9)
	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		p.Raw(): gradient(t, b, []float32{1}),
	}

	sgd.Step(grads)
	assert.InDelta(t, -0.1, float64(p.Value().Data()[0]), 1e-6)

	// v = 0.9*1 + 1 = 1.9
	sgd.Step(grads)
	assert.InDelta(t, -0.29, float64(p.Value().Data()[0]), 1e-6)
}

func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{5})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	optim.NewSGD(source, 0.5, 0).Step(map[*tensor.RawTensor]*tensor.RawTensor{})
	assert.Equal(t, []float32{5}, p.Value().Data())
}

func TestSGDGradientSizeMismatchPanics(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{1, 2})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	sgd := optim.NewSGD(source, 0.5, 0)
	assert.Panics(t, func() {
		sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{
			p.Raw(): gradient(t, b, []float32{1}),
		})
	})
}

func TestAdamFirstStep(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{1, 1})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	adam := optim.NewAdam(source, 0.01)
	adam.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		p.Raw(): gradient(t, b, []float32{1, -2}),
	})

	// with bias correction the first update is lr * sign(g)
	data := p.Value().Data()
	assert.InDelta(t, 0.99, float64(data[0]), 1e-4)
	assert.InDelta(t, 1.01, float64(data[1]), 1e-4)
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	b := cpu.New()
	p := param(t, b, "w", []float32{3})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{p}}

	adam := optim.NewAdam(source, 0.1)

	// minimize f(w) = w², gradient 2w
	for i := 0; i < 200; i++ {
		g := 2 * p.Value().Data()[0]
		adam.Step(map[*tensor.RawTensor]*tensor.RawTensor{
			p.Raw(): gradient(t, b, []float32{g}),
		})
	}

	assert.InDelta(t, 0, float64(p.Value().Data()[0]), 0.05)
}

func TestOptimizerPicksUpLateParameters(t *testing.T) {
	b := cpu.New()
	first := param(t, b, "w0", []float32{1})
	source := &sliceSource{params: []*nn.Parameter[cpuBackend]{first}}

	sgd := optim.NewSGD(source, 1, 0)
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		first.Raw(): gradient(t, b, []float32{1}),
	})
	assert.Equal(t, []float32{0}, first.Value().Data())

	// a parameter materializes after the optimizer was built
	late := param(t, b, "w1", []float32{10})
	source.params = append(source.params, late)

	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		late.Raw(): gradient(t, b, []float32{2}),
	})
	assert.Equal(t, []float32{8}, late.Value().Data())
}
