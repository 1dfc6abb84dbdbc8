package train

import "github.com/lowrank-ml/tucker/internal/nn"

// Evaluator measures classification accuracy over a dataset.
type Evaluator[B Backend] struct {
	backend B
	model   Model[B]
}

// NewEvaluator creates an evaluator for the given model.
func NewEvaluator[B Backend](model Model[B], backend B) *Evaluator[B] {
	return &Evaluator[B]{backend: backend, model: model}
}

// Evaluate runs the model over every batch and returns the fraction of
// correctly classified samples. The gradient tape is paused for the
// duration so evaluation never grows the recorded operation list; the
// previous recording state is restored on return.
func (e *Evaluator[B]) Evaluate(ds Dataset[B]) float64 {
	tape := e.backend.GetTape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	ds.Reset()
	total := 0
	correct := 0.0
	for {
		batch, ok := ds.Next()
		if !ok {
			break
		}
		logits := e.model.Forward(batch.Features)
		correct += nn.Accuracy(logits, batch.Labels) * float64(batch.Size)
		total += batch.Size
	}

	if total == 0 {
		return 0
	}
	return correct / float64(total)
}
