// Package cli implements the scrawl command line: fetching the dataset,
// training the classifier, and evaluating saved checkpoints.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrawl-ml/scrawl/internal/config"
	"github.com/scrawl-ml/scrawl/internal/optim"
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// NewRootCmd creates the scrawl root command with its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scrawl",
		Short: "Handwritten digit classifier",
		Long: `Scrawl trains a small convolutional network on the MNIST handwritten
digit dataset and evaluates the result. Data loading, training, and
evaluation are separate subcommands sharing one configuration.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger = newLogger(cfg.LogLevel)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default scrawl.yaml in working directory)")
	flags.String("data-dir", "data", "directory for the MNIST archives")
	flags.String("base-url", "", "mirror to download MNIST from")
	flags.String("checkpoint-path", "scrawl-cnn.scrw", "where to write and read model checkpoints")
	flags.Int("epochs", 12, "training epochs")
	flags.Int("batch-size", 128, "training batch size")
	flags.Int("val-batch-size", 256, "validation batch size")
	flags.Float64("val-ratio", 0.1, "fraction of the training split held out for validation")
	flags.Int64("seed", 42, "seed for weight init, shuffling, and dropout")
	flags.Int("limit", 0, "cap on training samples, 0 for the full dataset")
	flags.String("optimizer", "adadelta", "optimizer: sgd, adam, or adadelta")
	flags.Float64("lr", 0, "learning rate (0 takes the optimizer default)")
	flags.Float64("momentum", 0, "SGD momentum")
	flags.Float64("beta1", 0, "Adam first-moment decay (0 takes the default)")
	flags.Float64("beta2", 0, "Adam second-moment decay (0 takes the default)")
	flags.Float64("rho", 0, "Adadelta decay rate (0 takes the default)")
	flags.Float64("eps", 0, "Adam/Adadelta numerical stability term (0 takes the default)")
	flags.String("log-level", "info", "log level: debug, info, warn, or error")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newEvalCmd())
	return rootCmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// buildOptimizer constructs the configured optimizer over params. A zero
// learning rate defers to each algorithm's default.
func buildOptimizer(cfg *config.Config, params []*tensor.RawTensor) (optim.Optimizer, error) {
	lr := float32(cfg.LR)
	switch cfg.Optimizer {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: lr, Momentum: float32(cfg.Momentum)}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR:    lr,
			Beta1: float32(cfg.Beta1),
			Beta2: float32(cfg.Beta2),
			Eps:   float32(cfg.Eps),
		}), nil
	case "adadelta":
		return optim.NewAdadelta(params, optim.AdadeltaConfig{
			LR:  lr,
			Rho: float32(cfg.Rho),
			Eps: float32(cfg.Eps),
		}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
	}
}
