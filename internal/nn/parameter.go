package nn

import (
	"errors"
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// ErrNotMaterialized is returned when a shape-deferred parameter is read
// before the first forward pass has fixed its shape.
var ErrNotMaterialized = errors.New("parameter not materialized, run a forward pass first")

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] struct {
	name  string
	value *tensor.Tensor[float32, B]
}

// NewParameter creates a parameter around an initialized tensor.
func NewParameter[B tensor.Backend](name string, value *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, value: value}
}

// Name returns the parameter's name.
func (p *Parameter[B]) Name() string { return p.name }

// Value returns the parameter's tensor.
func (p *Parameter[B]) Value() *tensor.Tensor[float32, B] { return p.value }

// Raw returns the underlying RawTensor. Gradient maps are keyed by this
// pointer, so the parameter must keep updating the same buffer in place.
func (p *Parameter[B]) Raw() *tensor.RawTensor { return p.value.Raw() }

// DeferredParameter is a factor matrix whose row count depends on the
// input shape and is therefore unknown at construction. The column count
// (the rank) is fixed up front; Materialize fixes the rows exactly once,
// at the layer's first forward pass.
type DeferredParameter[B tensor.Backend] struct {
	name  string
	cols  int
	param *Parameter[B]
}

// NewDeferredParameter creates a deferred factor with the given rank.
func NewDeferredParameter[B tensor.Backend](name string, cols int) *DeferredParameter[B] {
	if cols <= 0 {
		panic(fmt.Sprintf("deferred parameter %s: rank must be positive, got %d", name, cols))
	}
	return &DeferredParameter[B]{name: name, cols: cols}
}

// Name returns the parameter's name.
func (d *DeferredParameter[B]) Name() string { return d.name }

// Cols returns the fixed column count (the rank).
func (d *DeferredParameter[B]) Cols() int { return d.cols }

// Materialized reports whether the factor has been allocated.
func (d *DeferredParameter[B]) Materialized() bool { return d.param != nil }

// Materialize allocates and initializes the (rows, cols) factor matrix.
// Materialization is terminal: calling it a second time panics, the
// factor never re-materializes for a differently shaped input.
func (d *DeferredParameter[B]) Materialize(rows int, backend B) *Parameter[B] {
	if d.param != nil {
		panic(fmt.Sprintf("deferred parameter %s: already materialized with shape %v", d.name, d.param.Value().Shape()))
	}
	if rows <= 0 {
		panic(fmt.Sprintf("deferred parameter %s: rows must be positive, got %d", d.name, rows))
	}
	d.param = NewParameter(d.name, Xavier(tensor.Shape{rows, d.cols}, rows, d.cols, backend))
	return d.param
}

// Param returns the materialized parameter, or ErrNotMaterialized if the
// layer has not seen an input yet.
func (d *DeferredParameter[B]) Param() (*Parameter[B], error) {
	if d.param == nil {
		return nil, fmt.Errorf("%s: %w", d.name, ErrNotMaterialized)
	}
	return d.param, nil
}
