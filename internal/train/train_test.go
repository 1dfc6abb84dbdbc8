package train_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowrank-ml/tucker/internal/autodiff"
	"github.com/lowrank-ml/tucker/internal/backend/cpu"
	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/optim"
	"github.com/lowrank-ml/tucker/internal/tensor"
	"github.com/lowrank-ml/tucker/internal/train"
)

type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() adBackend {
	return autodiff.New(cpu.New())
}

func TestSliceDatasetBatching(t *testing.T) {
	b := newBackend()
	features := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	labels := []int64{0, 1, 0, 1, 0}

	ds, err := train.NewSliceDataset(features, labels, tensor.Shape{2}, 2, b)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())

	batch, ok := ds.Next()
	require.True(t, ok)
	assert.Equal(t, 2, batch.Size)
	assert.Equal(t, tensor.Shape{2, 2}, batch.Features.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, batch.Features.Data())
	assert.Equal(t, []int64{0, 1}, batch.Labels.Data())

	batch, ok = ds.Next()
	require.True(t, ok)
	assert.Equal(t, []float32{5, 6, 7, 8}, batch.Features.Data())

	// final partial batch
	batch, ok = ds.Next()
	require.True(t, ok)
	assert.Equal(t, 1, batch.Size)
	assert.Equal(t, []float32{9, 10}, batch.Features.Data())

	_, ok = ds.Next()
	assert.False(t, ok)

	ds.Reset()
	batch, ok = ds.Next()
	require.True(t, ok)
	assert.Equal(t, []int64{0, 1}, batch.Labels.Data())
}

func TestNewSliceDatasetValidation(t *testing.T) {
	b := newBackend()

	_, err := train.NewSliceDataset([]float32{1, 2, 3}, []int64{0}, tensor.Shape{2}, 1, b)
	assert.Error(t, err)

	_, err = train.NewSliceDataset([]float32{1, 2}, []int64{0}, tensor.Shape{2}, 0, b)
	assert.Error(t, err)

	_, err = train.NewSliceDataset(nil, nil, tensor.Shape{0}, 1, b)
	assert.Error(t, err)
}

// passthrough scores each sample by its own feature vector, so a sample
// whose largest feature sits at index i is classified as class i.
type passthrough struct{}

func (passthrough) Forward(x *tensor.Tensor[float32, adBackend]) *tensor.Tensor[float32, adBackend] {
	return x
}

func (passthrough) Parameters() []*nn.Parameter[adBackend] { return nil }

func TestEvaluatorAccuracy(t *testing.T) {
	b := newBackend()
	features := []float32{
		1, 0, // class 0
		0, 1, // class 1
		1, 0, // class 0
		0, 1, // class 1
	}

	allRight, err := train.NewSliceDataset(features, []int64{0, 1, 0, 1}, tensor.Shape{2}, 3, b)
	require.NoError(t, err)
	allWrong, err := train.NewSliceDataset(features, []int64{1, 0, 1, 0}, tensor.Shape{2}, 3, b)
	require.NoError(t, err)
	half, err := train.NewSliceDataset(features, []int64{0, 0, 1, 1}, tensor.Shape{2}, 3, b)
	require.NoError(t, err)

	e := train.NewEvaluator[adBackend](passthrough{}, b)
	assert.Equal(t, 1.0, e.Evaluate(allRight))
	assert.Equal(t, 0.0, e.Evaluate(allWrong))
	assert.InDelta(t, 0.5, e.Evaluate(half), 1e-9)
}

func TestEvaluatorPausesTape(t *testing.T) {
	b := newBackend()
	ds, err := train.NewSliceDataset([]float32{1, 0}, []int64{0}, tensor.Shape{2}, 1, b)
	require.NoError(t, err)

	b.Tape().StartRecording()
	e := train.NewEvaluator[adBackend](passthrough{}, b)
	e.Evaluate(ds)

	assert.Equal(t, 0, b.Tape().NumOps())
	assert.True(t, b.Tape().IsRecording())
}

func TestNewConfigValidation(t *testing.T) {
	b := newBackend()
	model := nn.NewLinear[adBackend](2, 2, b)
	opt := optim.NewSGD[adBackend](model, 0.1, 0)

	_, err := train.New[adBackend](model, opt, b, train.Config{Epochs: 0})
	assert.Error(t, err)

	_, err = train.New[adBackend](model, opt, b, train.Config{Epochs: 1, PenaltyWeight: -1})
	assert.Error(t, err)

	_, err = train.New[adBackend](model, opt, b, train.Config{Epochs: 1, PenaltyWeight: 0.1, PenaltyOrder: 0.5})
	assert.Error(t, err)

	_, err = train.New[adBackend](model, opt, b, train.Config{Epochs: 1, LossSmoothing: 1})
	assert.Error(t, err)
}

func TestLoopTrainsLinearModel(t *testing.T) {
	b := newBackend()

	// two linearly separable clusters
	var features []float32
	var labels []int64
	for i := 0; i < 32; i++ {
		if i%2 == 0 {
			features = append(features, 1, 0)
			labels = append(labels, 0)
		} else {
			features = append(features, 0, 1)
			labels = append(labels, 1)
		}
	}

	ds, err := train.NewSliceDataset(features, labels, tensor.Shape{2}, 8, b)
	require.NoError(t, err)

	model := nn.NewLinear[adBackend](2, 2, b)
	loop, err := train.New[adBackend](model, optim.NewSGD[adBackend](model, 0.5, 0), b, train.Config{
		Epochs:        10,
		PenaltyWeight: 1e-4,
		PenaltyOrder:  2,
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run(ds, nil))
	assert.Greater(t, loop.SmoothedLoss(), 0.0)

	acc := train.NewEvaluator[adBackend](model, b).Evaluate(ds)
	assert.Equal(t, 1.0, acc)
}

func TestLoopEmptyDataset(t *testing.T) {
	b := newBackend()
	ds, err := train.NewSliceDataset(nil, nil, tensor.Shape{2}, 1, b)
	require.NoError(t, err)

	model := nn.NewLinear[adBackend](2, 2, b)
	loop, err := train.New[adBackend](model, optim.NewSGD[adBackend](model, 0.1, 0), b, train.Config{Epochs: 1})
	require.NoError(t, err)

	assert.Error(t, loop.Run(ds, nil))
}
