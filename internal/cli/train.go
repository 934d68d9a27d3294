package cli

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrawl-ml/scrawl/internal/autodiff"
	"github.com/scrawl-ml/scrawl/internal/backend/cpu"
	"github.com/scrawl-ml/scrawl/internal/mnist"
	"github.com/scrawl-ml/scrawl/internal/model"
	"github.com/scrawl-ml/scrawl/internal/nn"
	"github.com/scrawl-ml/scrawl/internal/train"
)

func newTrainCmd() *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the CNN on MNIST",
		Long: `Train fetches the dataset if it is missing, holds out a validation
slice of the training split, and runs the full training loop. The
weights with the best validation accuracy are checkpointed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := mnist.Fetch(ctx, cfg.DataDir, cfg.BaseURL, logger); err != nil {
				return fmt.Errorf("fetch dataset: %w", err)
			}
			full, err := mnist.Load(cfg.DataDir, true)
			if err != nil {
				return fmt.Errorf("load training split: %w", err)
			}

			rng := rand.New(rand.NewSource(cfg.Seed))
			trainSet, valSet := full.Limit(cfg.Limit).Split(cfg.ValRatio, rng)

			backend := autodiff.New(cpu.New())
			cnn := model.NewCNN(rng, backend)
			if resume {
				meta, err := nn.LoadCheckpoint(cfg.CheckpointPath, cnn)
				if err != nil {
					return err
				}
				if meta != nil {
					logger.Info("resuming from checkpoint",
						"path", cfg.CheckpointPath,
						"run_id", meta.RunID,
						"epoch", meta.Epoch,
						"val_acc", meta.Accuracy,
					)
				}
			}

			optimizer, err := buildOptimizer(cfg, nn.RawParameters(cnn))
			if err != nil {
				return err
			}

			trainer := train.New(cnn, optimizer, backend, train.Config{
				Epochs:         cfg.Epochs,
				BatchSize:      cfg.BatchSize,
				ValBatchSize:   cfg.ValBatchSize,
				Seed:           cfg.Seed,
				CheckpointPath: cfg.CheckpointPath,
			}, logger)

			result, err := trainer.Fit(ctx, trainSet, valSet)
			if err != nil {
				return err
			}
			train.RenderSummary(os.Stdout, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "restore weights from the checkpoint before training")
	return cmd
}
