// Package train provides the mini-batch training loop, dataset iteration
// and evaluation for classification models.
package train

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Batch is one mini-batch of examples: float32 features with a leading
// batch dimension and int64 class labels of shape (Size).
type Batch[B tensor.Backend] struct {
	Features *tensor.Tensor[float32, B]
	Labels   *tensor.Tensor[int64, B]
	Size     int
}

// Dataset iterates over mini-batches. Next returns false when the pass
// is exhausted; Reset rewinds for the next pass.
type Dataset[B tensor.Backend] interface {
	Reset()
	Next() (*Batch[B], bool)
}

// SliceDataset serves batches out of in-memory slices. Samples are laid
// out contiguously: features holds len(labels) samples of sampleShape
// elements each.
type SliceDataset[B tensor.Backend] struct {
	features    []float32
	labels      []int64
	sampleShape tensor.Shape
	batchSize   int
	backend     B

	pos int
}

// NewSliceDataset creates a dataset over preloaded data. The final batch
// of a pass may be smaller than batchSize.
func NewSliceDataset[B tensor.Backend](features []float32, labels []int64, sampleShape tensor.Shape, batchSize int, backend B) (*SliceDataset[B], error) {
	sampleSize := sampleShape.NumElements()
	if sampleSize <= 0 {
		return nil, fmt.Errorf("dataset: invalid sample shape %v", sampleShape)
	}
	if len(features) != len(labels)*sampleSize {
		return nil, fmt.Errorf("dataset: %d labels require %d feature values, got %d",
			len(labels), len(labels)*sampleSize, len(features))
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be positive, got %d", batchSize)
	}

	return &SliceDataset[B]{
		features:    features,
		labels:      labels,
		sampleShape: sampleShape.Clone(),
		batchSize:   batchSize,
		backend:     backend,
	}, nil
}

// Len returns the total number of samples.
func (d *SliceDataset[B]) Len() int {
	return len(d.labels)
}

// Reset rewinds the iterator to the first batch.
func (d *SliceDataset[B]) Reset() {
	d.pos = 0
}

// Next returns the next batch, copying the slice data into fresh tensors.
func (d *SliceDataset[B]) Next() (*Batch[B], bool) {
	if d.pos >= len(d.labels) {
		return nil, false
	}

	size := d.batchSize
	if remaining := len(d.labels) - d.pos; remaining < size {
		size = remaining
	}

	sampleSize := d.sampleShape.NumElements()
	shape := append(tensor.Shape{size}, d.sampleShape...)

	features, err := tensor.FromSlice(
		d.features[d.pos*sampleSize:(d.pos+size)*sampleSize], shape, d.backend)
	if err != nil {
		panic(fmt.Sprintf("dataset: %v", err))
	}
	labels, err := tensor.FromSlice(
		d.labels[d.pos:d.pos+size], tensor.Shape{size}, d.backend)
	if err != nil {
		panic(fmt.Sprintf("dataset: %v", err))
	}

	d.pos += size
	return &Batch[B]{Features: features, Labels: labels, Size: size}, true
}
