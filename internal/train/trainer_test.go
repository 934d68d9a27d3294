package train

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scrawl-ml/scrawl/internal/autodiff"
	"github.com/scrawl-ml/scrawl/internal/backend/cpu"
	"github.com/scrawl-ml/scrawl/internal/mnist"
	"github.com/scrawl-ml/scrawl/internal/nn"
	"github.com/scrawl-ml/scrawl/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBackend = *autodiff.Backend[*cpu.Backend]

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syntheticDataset builds n linearly separable samples: class c images
// have pixel c lit and everything else dark.
func syntheticDataset(t *testing.T, n int) *mnist.Dataset {
	t.Helper()
	images := make([][]float32, n)
	labels := make([]int, n)
	for i := range images {
		img := make([]float32, mnist.ImageSize)
		class := i % mnist.NumClasses
		img[class] = 1
		images[i] = img
		labels[i] = class
	}
	ds, err := mnist.FromSamples(images, labels)
	require.NoError(t, err)
	return ds
}

// smallModel is a Flatten+Linear head, enough to learn the synthetic data
// in a couple of epochs.
func smallModel(backend testBackend) *nn.Sequential[testBackend] {
	rng := rand.New(rand.NewSource(42))
	return nn.NewSequential[testBackend](
		nn.NewFlatten[testBackend](),
		nn.NewLinear(mnist.ImageSize, mnist.NumClasses, rng, backend),
	)
}

// TestTrainer_FitReducesLoss tests that a few epochs on separable data
// drive the training loss down and the accuracy up.
func TestTrainer_FitReducesLoss(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := smallModel(backend)
	opt := optim.NewSGD(nn.RawParameters[testBackend](model), optim.SGDConfig{LR: 0.5})

	trainer := New(model, opt, backend, Config{
		Epochs:    5,
		BatchSize: 10,
		Seed:      1,
	}, discardLogger())

	trainSet := syntheticDataset(t, 100)
	valSet := syntheticDataset(t, 20)

	result, err := trainer.Fit(context.Background(), trainSet, valSet)
	require.NoError(t, err)
	require.Len(t, result.Epochs, 5)

	first, last := result.Epochs[0], result.Epochs[4]
	assert.Less(t, last.TrainLoss, first.TrainLoss)
	assert.GreaterOrEqual(t, last.ValAcc, first.ValAcc)
	assert.Greater(t, result.BestAcc, float32(0.5))
	assert.NotEmpty(t, result.RunID)
}

// TestEvaluate_SampleWeightedLoss tests that the average loss weighs every
// sample equally when the final batch is smaller than the rest. With zero
// weights and a fixed bias b, each sample's loss is logsumexp(b) - b[label],
// so the expected mean is computable by hand.
func TestEvaluate_SampleWeightedLoss(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := smallModel(backend)

	params := model.Parameters()
	require.Len(t, params, 2)
	weight, bias := params[0].Raw(), params[1].Raw()
	weight.Fill(0)
	for i := range bias.Data() {
		bias.Data()[i] = 0.1 * float32(i)
	}

	opt := optim.NewSGD(nn.RawParameters[testBackend](model), optim.SGDConfig{})
	trainer := New(model, opt, backend, Config{}, discardLogger())

	// Labels 0, 0, 9 with batch size 2: a full batch then a partial one.
	images := make([][]float32, 3)
	for i := range images {
		images[i] = make([]float32, mnist.ImageSize)
	}
	ds, err := mnist.FromSamples(images, []int{0, 0, 9})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	batches := mnist.Batches(ds, 2, false, rng, backend)
	require.Len(t, batches, 2)

	avgLoss, _ := trainer.Evaluate(batches)

	sumExp := 0.0
	for i := 0; i < mnist.NumClasses; i++ {
		sumExp += math.Exp(0.1 * float64(i))
	}
	lse := math.Log(sumExp)
	loss0 := lse - 0.0
	loss9 := lse - 0.9
	want := (2*loss0 + loss9) / 3

	assert.InDelta(t, want, avgLoss, 1e-4)
}

// TestTrainer_Checkpointing tests that improving epochs write a loadable
// checkpoint.
func TestTrainer_Checkpointing(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := smallModel(backend)
	opt := optim.NewSGD(nn.RawParameters[testBackend](model), optim.SGDConfig{LR: 0.5})

	path := filepath.Join(t.TempDir(), "best.scrw")
	trainer := New(model, opt, backend, Config{
		Epochs:         2,
		BatchSize:      10,
		Seed:           1,
		CheckpointPath: path,
	}, discardLogger())

	_, err := trainer.Fit(context.Background(), syntheticDataset(t, 50), syntheticDataset(t, 10))
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	restored := smallModel(backend)
	meta, err := nn.LoadCheckpoint[testBackend](path, restored)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, trainer.RunID(), meta.RunID)
	assert.Equal(t, "sgd", meta.Optimizer)
}

// TestTrainer_ContextCancellation tests that a cancelled context stops
// training with its error.
func TestTrainer_ContextCancellation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := smallModel(backend)
	opt := optim.NewSGD(nn.RawParameters[testBackend](model), optim.SGDConfig{LR: 0.1})

	trainer := New(model, opt, backend, Config{Epochs: 3, BatchSize: 10, Seed: 1}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := trainer.Fit(ctx, syntheticDataset(t, 50), syntheticDataset(t, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestTrainer_Defaults tests the zero-value configuration.
func TestTrainer_Defaults(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := smallModel(backend)
	opt := optim.NewAdadelta(nn.RawParameters[testBackend](model), optim.AdadeltaConfig{})

	trainer := New(model, opt, backend, Config{}, discardLogger())
	assert.Equal(t, 12, trainer.config.Epochs)
	assert.Equal(t, 128, trainer.config.BatchSize)
	assert.Equal(t, 256, trainer.config.ValBatchSize)
}

// TestRenderSummary tests the metrics table output.
func TestRenderSummary(t *testing.T) {
	result := &Result{
		RunID:   "abc123",
		BestAcc: 0.991,
		Epochs: []EpochStats{
			{Epoch: 1, TrainLoss: 0.31, TrainAcc: 0.91, ValLoss: 0.12, ValAcc: 0.96},
			{Epoch: 2, TrainLoss: 0.11, TrainAcc: 0.97, ValLoss: 0.07, ValAcc: 0.98},
		},
	}

	var sb strings.Builder
	RenderSummary(&sb, result)

	out := sb.String()
	assert.Contains(t, out, "Epoch")
	assert.Contains(t, out, "96.00%")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "99.10%")
}

