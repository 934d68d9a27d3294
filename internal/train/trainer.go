// Package train runs the fixed-epoch training loop: shuffled batches, a
// recorded forward pass, the tape's backward pass, an optimizer step, and
// per-epoch validation with checkpointing.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/scrawl-ml/scrawl/internal/autodiff"
	"github.com/scrawl-ml/scrawl/internal/mnist"
	"github.com/scrawl-ml/scrawl/internal/nn"
	"github.com/scrawl-ml/scrawl/internal/optim"
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Config holds the training hyperparameters.
type Config struct {
	Epochs         int
	BatchSize      int
	ValBatchSize   int
	Seed           int64
	CheckpointPath string // empty disables checkpointing
}

// EpochStats records one epoch's metrics.
type EpochStats struct {
	Epoch     int
	TrainLoss float32
	TrainAcc  float32
	ValLoss   float32
	ValAcc    float32
	Duration  time.Duration
}

// Result summarizes a full training run.
type Result struct {
	RunID   string
	Epochs  []EpochStats
	BestAcc float32
}

// Trainer drives training of a model on one dataset split.
type Trainer[B tensor.Backend] struct {
	model     *nn.Sequential[*autodiff.Backend[B]]
	optimizer optim.Optimizer
	criterion *nn.CrossEntropyLoss[*autodiff.Backend[B]]
	backend   *autodiff.Backend[B]
	config    Config
	logger    *slog.Logger
	runID     string
	step      int64
}

// New creates a trainer. Zero config fields default to 12 epochs, batch
// size 128, and validation batch size 256.
func New[B tensor.Backend](
	model *nn.Sequential[*autodiff.Backend[B]],
	optimizer optim.Optimizer,
	backend *autodiff.Backend[B],
	config Config,
	logger *slog.Logger,
) *Trainer[B] {
	if config.Epochs == 0 {
		config.Epochs = 12
	}
	if config.BatchSize == 0 {
		config.BatchSize = 128
	}
	if config.ValBatchSize == 0 {
		config.ValBatchSize = 256
	}
	return &Trainer[B]{
		model:     model,
		optimizer: optimizer,
		criterion: nn.NewCrossEntropyLoss[*autodiff.Backend[B]](backend),
		backend:   backend,
		config:    config,
		logger:    logger,
		runID:     uuid.NewString()[:8],
	}
}

// RunID returns the identifier stamped into logs and checkpoints.
func (t *Trainer[B]) RunID() string { return t.runID }

// Fit trains for the configured number of epochs, validating after each
// one. The best-accuracy weights are checkpointed when a path is set.
// Cancelling ctx stops cleanly at the next batch boundary.
func (t *Trainer[B]) Fit(ctx context.Context, trainSet, valSet *mnist.Dataset) (*Result, error) {
	rng := rand.New(rand.NewSource(t.config.Seed))
	valBatches := mnist.Batches(valSet, t.config.ValBatchSize, false, rng, t.backend)

	result := &Result{RunID: t.runID}
	t.logger.Info("training started",
		"run_id", t.runID,
		"epochs", t.config.Epochs,
		"batch_size", t.config.BatchSize,
		"optimizer", t.optimizer.Name(),
		"lr", t.optimizer.LR(),
		"train_samples", trainSet.NumSamples(),
		"val_samples", valSet.NumSamples(),
		"backend", t.backend.Name(),
	)

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		start := time.Now()
		batches := mnist.Batches(trainSet, t.config.BatchSize, true, rng, t.backend)

		trainLoss, trainAcc, err := t.trainEpoch(ctx, batches)
		if err != nil {
			return result, err
		}
		valLoss, valAcc := t.Evaluate(valBatches)

		stats := EpochStats{
			Epoch:     epoch,
			TrainLoss: trainLoss,
			TrainAcc:  trainAcc,
			ValLoss:   valLoss,
			ValAcc:    valAcc,
			Duration:  time.Since(start),
		}
		result.Epochs = append(result.Epochs, stats)

		t.logger.Info("epoch finished",
			"run_id", t.runID,
			"epoch", epoch,
			"train_loss", trainLoss,
			"train_acc", trainAcc,
			"val_loss", valLoss,
			"val_acc", valAcc,
			"duration", stats.Duration,
		)

		if valAcc > result.BestAcc {
			result.BestAcc = valAcc
			if t.config.CheckpointPath != "" {
				if err := t.checkpoint(epoch, valLoss, valAcc); err != nil {
					return result, err
				}
			}
		}
	}
	return result, nil
}

// trainEpoch runs one pass over the shuffled batches with gradient
// recording on.
func (t *Trainer[B]) trainEpoch(ctx context.Context, batches []mnist.Batch[*autodiff.Backend[B]]) (avgLoss, accuracy float32, err error) {
	t.model.SetTraining(true)
	t.backend.Tape().StartRecording()
	defer t.backend.Tape().StopRecording()

	var totalLoss float32
	var totalCorrect, totalSamples int

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		default:
		}

		t.backend.Tape().Clear()

		logits := t.model.Forward(batch.Images)
		loss := t.criterion.Forward(logits, batch.Labels)

		grads := t.backend.Backward(loss.Raw())
		t.optimizer.Step(grads)
		t.step++

		size := batch.Images.Shape()[0]
		totalLoss += loss.Item() * float32(size)
		totalCorrect += int(nn.Accuracy(logits, batch.Labels)*float32(size) + 0.5)
		totalSamples += size
	}
	t.backend.Tape().Clear()

	if totalSamples == 0 {
		return 0, 0, nil
	}
	return totalLoss / float32(totalSamples), float32(totalCorrect) / float32(totalSamples), nil
}

// Evaluate computes loss and accuracy over batches without recording
// gradients or applying dropout.
func (t *Trainer[B]) Evaluate(batches []mnist.Batch[*autodiff.Backend[B]]) (avgLoss, accuracy float32) {
	t.model.SetTraining(false)
	wasRecording := t.backend.Tape().Recording()
	t.backend.Tape().StopRecording()
	defer func() {
		if wasRecording {
			t.backend.Tape().StartRecording()
		}
		t.model.SetTraining(true)
	}()

	var totalLoss float32
	var totalCorrect, totalSamples int
	for _, batch := range batches {
		logits := t.model.Forward(batch.Images)
		loss := t.criterion.Forward(logits, batch.Labels)

		size := batch.Images.Shape()[0]
		totalLoss += loss.Item() * float32(size)
		totalCorrect += int(nn.Accuracy(logits, batch.Labels)*float32(size) + 0.5)
		totalSamples += size
	}

	if totalSamples == 0 {
		return 0, 0
	}
	return totalLoss / float32(totalSamples), float32(totalCorrect) / float32(totalSamples)
}

// checkpoint saves the current weights with run metadata.
func (t *Trainer[B]) checkpoint(epoch int, loss, accuracy float32) error {
	ckpt := &nn.Checkpoint[*autodiff.Backend[B]]{
		Model:     t.model,
		RunID:     t.runID,
		Epoch:     epoch,
		Step:      t.step,
		Loss:      float64(loss),
		Accuracy:  float64(accuracy),
		Optimizer: t.optimizer.Name(),
	}
	if err := ckpt.Save(t.config.CheckpointPath); err != nil {
		return fmt.Errorf("epoch %d: %w", epoch, err)
	}
	t.logger.Info("checkpoint saved",
		"run_id", t.runID,
		"path", t.config.CheckpointPath,
		"epoch", epoch,
		"val_acc", accuracy,
	)
	return nil
}
