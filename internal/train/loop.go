package train

import (
	"fmt"
	"log"

	"github.com/lowrank-ml/tucker/internal/autodiff"
	"github.com/lowrank-ml/tucker/internal/nn"
	"github.com/lowrank-ml/tucker/internal/optim"
	"github.com/lowrank-ml/tucker/internal/tensor"
)

// Backend is what the training loop needs from a compute backend: the
// layer operations plus access to the gradient tape. The autodiff
// decorator satisfies it.
type Backend interface {
	nn.Backend
	GetTape() *autodiff.GradientTape
}

// Model is a trainable classifier: forward to logits, parameters for
// the optimizer.
type Model[B tensor.Backend] interface {
	Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
	Parameters() []*nn.Parameter[B]
}

// Regularized is a model that contributes a penalty term to the loss,
// such as the norm of a regression weight factorization.
type Regularized[B tensor.Backend] interface {
	Penalty(p float64) *tensor.Tensor[float32, B]
}

// Config holds training loop hyperparameters.
type Config struct {
	// Epochs is the number of passes over the training set.
	Epochs int

	// PenaltyWeight scales the model's penalty term before it is added
	// to the cross-entropy loss. Zero disables the penalty entirely.
	PenaltyWeight float64

	// PenaltyOrder is the norm order p of the penalty, typically 2.
	PenaltyOrder float64

	// LossSmoothing is the decay of the exponential moving average used
	// for reported loss. Zero defaults to 0.95.
	LossSmoothing float64
}

// Loop runs mini-batch gradient descent: forward, cross-entropy loss
// plus optional penalty, backward over the tape, optimizer step.
type Loop[B Backend] struct {
	backend   B
	model     Model[B]
	optimizer optim.Optimizer
	cfg       Config

	// EMA of the per-batch loss, explicit loop state reported each epoch.
	smoothedLoss float64
	lossSeen     bool
}

// New creates a training loop.
func New[B Backend](model Model[B], optimizer optim.Optimizer, backend B, cfg Config) (*Loop[B], error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("train: epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.PenaltyWeight < 0 {
		return nil, fmt.Errorf("train: penalty weight must not be negative, got %g", cfg.PenaltyWeight)
	}
	if cfg.PenaltyWeight > 0 && cfg.PenaltyOrder < 1 {
		return nil, fmt.Errorf("train: penalty order must be >= 1, got %g", cfg.PenaltyOrder)
	}
	if cfg.LossSmoothing == 0 {
		cfg.LossSmoothing = 0.95
	}
	if cfg.LossSmoothing < 0 || cfg.LossSmoothing >= 1 {
		return nil, fmt.Errorf("train: loss smoothing must be in [0, 1), got %g", cfg.LossSmoothing)
	}

	return &Loop[B]{
		backend:   backend,
		model:     model,
		optimizer: optimizer,
		cfg:       cfg,
	}, nil
}

// SmoothedLoss returns the exponential moving average of the batch loss.
func (l *Loop[B]) SmoothedLoss() float64 {
	return l.smoothedLoss
}

// Run trains for the configured number of epochs, evaluating train and
// validation accuracy after each. val may be nil.
func (l *Loop[B]) Run(trainSet, val Dataset[B]) error {
	evaluator := NewEvaluator(l.model, l.backend)
	tape := l.backend.GetTape()

	for epoch := 1; epoch <= l.cfg.Epochs; epoch++ {
		trainSet.Reset()
		tape.StartRecording()

		batches := 0
		for {
			batch, ok := trainSet.Next()
			if !ok {
				break
			}
			l.trainBatch(batch)
			batches++
		}
		tape.StopRecording()

		if batches == 0 {
			return fmt.Errorf("train: dataset produced no batches in epoch %d", epoch)
		}

		trainAcc := evaluator.Evaluate(trainSet)
		if val != nil {
			valAcc := evaluator.Evaluate(val)
			log.Printf("epoch %d/%d: loss=%.4f train_acc=%.4f val_acc=%.4f",
				epoch, l.cfg.Epochs, l.smoothedLoss, trainAcc, valAcc)
		} else {
			log.Printf("epoch %d/%d: loss=%.4f train_acc=%.4f",
				epoch, l.cfg.Epochs, l.smoothedLoss, trainAcc)
		}
	}
	return nil
}

// trainBatch runs one forward/backward/update cycle. The tape is cleared
// afterwards so each batch records a fresh operation list.
func (l *Loop[B]) trainBatch(batch *Batch[B]) {
	tape := l.backend.GetTape()
	defer tape.Clear()

	logits := l.model.Forward(batch.Features)
	loss := tensor.New[float32](
		l.backend.CrossEntropy(logits.Raw(), batch.Labels.Raw()), l.backend)

	if l.cfg.PenaltyWeight > 0 {
		if reg, ok := l.model.(Regularized[B]); ok {
			loss = loss.Add(reg.Penalty(l.cfg.PenaltyOrder).MulScalar(l.cfg.PenaltyWeight))
		}
	}

	grads := autodiff.Backward(loss, l.backend)
	l.optimizer.Step(grads)

	l.updateSmoothedLoss(float64(loss.Item()))
}

func (l *Loop[B]) updateSmoothedLoss(loss float64) {
	if !l.lossSeen {
		l.smoothedLoss = loss
		l.lossSeen = true
		return
	}
	decay := l.cfg.LossSmoothing
	l.smoothedLoss = decay*l.smoothedLoss + (1-decay)*loss
}
