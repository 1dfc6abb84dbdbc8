package nn

import (
	"fmt"

	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Accuracy returns the fraction of rows where the argmax of logits
// matches the target class. logits is (batch, classes), targets is
// (batch) int64.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int64, B]) float64 {
	pred := logits.Backend().Argmax(logits.Raw(), 1)
	predicted := pred.AsInt64()
	expected := targets.Data()
	if len(predicted) != len(expected) {
		panic(fmt.Sprintf("accuracy: %d predictions vs %d targets", len(predicted), len(expected)))
	}
	if len(expected) == 0 {
		return 0
	}

	correct := 0
	for i := range predicted {
		if predicted[i] == expected[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(expected))
}
