package nn

import (
	"fmt"
	"log"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// TensorRegression maps a multi-dimensional activation tensor directly to
// class scores through a low-rank regression weight tensor, replacing the
// usual flatten + dense head.
//
// For input x of shape (batch, d_1, ..., d_{M-1}) and nOutputs classes,
// the full regression weight W has shape (d_1, ..., d_{M-1}, nOutputs).
// Instead of storing W, the layer stores its Tucker factorization: a core
// of shape ranks and one factor matrix per mode. The input-mode factors
// (d_i, ranks[i]) depend on the input shape and materialize lazily at the
// first forward pass; the output factor (nOutputs, ranks[M-1]) and the
// bias are allocated up front.
//
//	logits = flatten(x) @ flatten(W) + bias
//	W      = core ×_0 F_0 ×_1 F_1 ... ×_{M-1} F_out
type TensorRegression[B tensor.Backend] struct {
	backend  B
	ranks    []int
	nOutputs int

	core         *Parameter[B]
	inputFactors []*DeferredParameter[B]
	outputFactor *Parameter[B]
	bias         *Parameter[B]

	materialized bool
	verbose      bool
	infoShown    bool
}

// TensorRegressionOption configures a TensorRegression layer.
type TensorRegressionOption func(*trlOptions)

type trlOptions struct {
	verbose bool
}

// WithVerbose makes the layer log its compression ratio once, at the
// first forward pass when all factor shapes are known.
func WithVerbose() TensorRegressionOption {
	return func(o *trlOptions) { o.verbose = true }
}

// NewTensorRegression creates a tensor regression layer.
//
// ranks holds one Tucker rank per mode of the regression weight: the
// first len(ranks)-1 entries for the input modes, the last for the output
// mode. The number of input modes is fixed here; the sizes d_i are read
// from the first input. Panics if ranks is empty, any rank is not
// positive, or nOutputs is not positive.
func NewTensorRegression[B tensor.Backend](ranks []int, nOutputs int, backend B, opts ...TensorRegressionOption) *TensorRegression[B] {
	if len(ranks) == 0 {
		panic("tensor regression: ranks must not be empty")
	}
	for i, r := range ranks {
		if r <= 0 {
			panic(fmt.Sprintf("tensor regression: rank[%d] must be positive, got %d", i, r))
		}
	}
	if nOutputs <= 0 {
		panic(fmt.Sprintf("tensor regression: nOutputs must be positive, got %d", nOutputs))
	}

	var options trlOptions
	for _, opt := range opts {
		opt(&options)
	}

	coreShape := make(tensor.Shape, len(ranks))
	copy(coreShape, ranks)
	coreElems := coreShape.NumElements()

	outRank := ranks[len(ranks)-1]
	layer := &TensorRegression[B]{
		backend:  backend,
		ranks:    append([]int(nil), ranks...),
		nOutputs: nOutputs,
		core:     NewParameter("trl.core", Xavier(coreShape, coreElems/outRank, outRank, backend)),
		outputFactor: NewParameter("trl.factor.out",
			Xavier(tensor.Shape{nOutputs, outRank}, nOutputs, outRank, backend)),
		bias:    NewParameter("trl.bias", tensor.Zeros[float32](tensor.Shape{1, nOutputs}, backend)),
		verbose: options.verbose,
	}

	for i := 0; i < len(ranks)-1; i++ {
		layer.inputFactors = append(layer.inputFactors,
			NewDeferredParameter[B](fmt.Sprintf("trl.factor.%d", i), ranks[i]))
	}
	// Rank-1 configuration has no input modes and nothing to defer.
	layer.materialized = len(ranks) == 1

	return layer
}

// Ranks returns a copy of the configured Tucker ranks.
func (m *TensorRegression[B]) Ranks() []int {
	return append([]int(nil), m.ranks...)
}

// Materialized reports whether all input-mode factors are allocated.
func (m *TensorRegression[B]) Materialized() bool {
	return m.materialized
}

// Forward computes logits of shape (batch, nOutputs) for x of shape
// (batch, d_1, ..., d_{M-1}).
//
// The first call fixes the factor shapes from x and panics if x does not
// have exactly len(ranks)-1 feature modes. Later calls assume the same
// feature shape; a mismatched input fails inside the matrix multiply.
func (m *TensorRegression[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	xShape := x.Shape()
	if len(xShape) < 2 {
		panic(fmt.Sprintf("tensor regression: expected input with a batch dimension, got shape %v", xShape))
	}
	batch := xShape[0]
	featureDims := xShape[1:]

	if !m.materialized {
		if len(featureDims) != len(m.inputFactors) {
			panic(fmt.Sprintf("tensor regression: configured for %d feature modes, input has %d (shape %v)",
				len(m.inputFactors), len(featureDims), xShape))
		}
		for i, df := range m.inputFactors {
			df.Materialize(featureDims[i], m.backend)
		}
		m.materialized = true
		m.logCompression(featureDims)
	}

	weights := m.reconstruct()

	features := 1
	for _, d := range featureDims {
		features *= d
	}

	xFlat := x.Reshape(batch, features)
	wFlat := weights.Reshape(weights.NumElements()/m.nOutputs, m.nOutputs)
	return xFlat.MatMul(wFlat).Add(m.bias.Value())
}

// reconstruct assembles the full regression weight from the factorization.
// Only valid after materialization.
func (m *TensorRegression[B]) reconstruct() *tensor.Tensor[float32, B] {
	factors := make([]*tensor.Tensor[float32, B], 0, len(m.ranks))
	for _, df := range m.inputFactors {
		p, err := df.Param()
		if err != nil {
			panic(fmt.Sprintf("tensor regression: %v", err))
		}
		factors = append(factors, p.Value())
	}
	factors = append(factors, m.outputFactor.Value())
	return TuckerReconstruct(m.core.Value(), factors)
}

// RegressionWeights returns the full regression weight tensor of shape
// (d_1, ..., d_{M-1}, nOutputs). Returns ErrNotMaterialized before the
// first forward pass.
func (m *TensorRegression[B]) RegressionWeights() (*tensor.Tensor[float32, B], error) {
	if !m.materialized {
		return nil, fmt.Errorf("tensor regression weights: %w", ErrNotMaterialized)
	}
	return m.reconstruct(), nil
}

// Penalty returns the scalar Σ|w|^p summed over the core and every
// factor matrix, the regularizer added to the training loss. The bias is
// not penalized. Panics before the first forward pass, when the input
// factors do not exist yet.
func (m *TensorRegression[B]) Penalty(p float64) *tensor.Tensor[float32, B] {
	total := m.core.Value().PowSum(p)
	for _, df := range m.inputFactors {
		param, err := df.Param()
		if err != nil {
			panic(fmt.Sprintf("tensor regression penalty: %v", err))
		}
		total = total.Add(param.Value().PowSum(p))
	}
	return total.Add(m.outputFactor.Value().PowSum(p))
}

// Parameters returns the core, the materialized input factors, the
// output factor and the bias. Before the first forward pass the input
// factors are absent; optimizers built on a ParameterSource pick them up
// automatically once they exist.
func (m *TensorRegression[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{m.core}
	for _, df := range m.inputFactors {
		if p, err := df.Param(); err == nil {
			params = append(params, p)
		}
	}
	return append(params, m.outputFactor, m.bias)
}

func (m *TensorRegression[B]) logCompression(featureDims tensor.Shape) {
	if !m.verbose || m.infoShown {
		return
	}
	m.infoShown = true

	full := m.nOutputs
	for _, d := range featureDims {
		full *= d
	}

	factored := tensor.Shape(m.ranks).NumElements()
	for i, d := range featureDims {
		factored += d * m.ranks[i]
	}
	factored += m.nOutputs * m.ranks[len(m.ranks)-1]

	log.Printf("tensor regression: weight %v x %d, %d factorized parameters vs %d full (%.1fx compression)",
		featureDims, m.nOutputs, factored, full, float64(full)/float64(factored))
}
