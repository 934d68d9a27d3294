package cli

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/scrawl-ml/scrawl/internal/backend/cpu"
	"github.com/scrawl-ml/scrawl/internal/mnist"
	"github.com/scrawl-ml/scrawl/internal/model"
	"github.com/scrawl-ml/scrawl/internal/nn"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a checkpoint on the MNIST test split",
		Long:  "Eval restores model weights from the checkpoint file and reports loss and accuracy over the held-out test split.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			testSet, err := mnist.Load(cfg.DataDir, false)
			if err != nil {
				return fmt.Errorf("load test split: %w", err)
			}

			// Inference only, so the plain backend suffices and no
			// tape is involved.
			backend := cpu.New()
			rng := rand.New(rand.NewSource(cfg.Seed))
			cnn := model.NewCNN(rng, backend)

			meta, err := nn.LoadCheckpoint(cfg.CheckpointPath, cnn)
			if err != nil {
				return err
			}
			cnn.SetTraining(false)
			if meta != nil {
				logger.Info("checkpoint restored",
					"path", cfg.CheckpointPath,
					"run_id", meta.RunID,
					"epoch", meta.Epoch,
					"optimizer", meta.Optimizer,
				)
			}

			criterion := nn.NewCrossEntropyLoss[*cpu.Backend](backend)
			rng = rand.New(rand.NewSource(cfg.Seed))
			batches := mnist.Batches(testSet, cfg.ValBatchSize, false, rng, backend)

			var lossSum float64
			var correct float64
			samples := 0
			for _, batch := range batches {
				logits := cnn.Forward(batch.Images)
				loss := criterion.Forward(logits, batch.Labels)
				n := batch.Images.Shape()[0]
				lossSum += float64(loss.Data()[0]) * float64(n)
				correct += float64(nn.Accuracy(logits, batch.Labels)) * float64(n)
				samples += n
			}
			if samples == 0 {
				return fmt.Errorf("test split is empty")
			}

			avgLoss := lossSum / float64(samples)
			accuracy := correct / float64(samples)
			logger.Info("evaluation finished",
				"samples", samples,
				"loss", fmt.Sprintf("%.4f", avgLoss),
				"accuracy", fmt.Sprintf("%.2f%%", accuracy*100),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "test loss %.4f, test accuracy %.2f%% over %d samples\n",
				avgLoss, accuracy*100, samples)
			return nil
		},
	}
}
