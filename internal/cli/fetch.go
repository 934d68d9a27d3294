package cli

import (
	"github.com/spf13/cobra"

	"github.com/scrawl-ml/scrawl/internal/mnist"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the MNIST archives",
		Long:  "Fetch downloads the four MNIST IDX archives into the data directory, skipping files that are already present.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mnist.Fetch(cmd.Context(), cfg.DataDir, cfg.BaseURL, logger)
		},
	}
}
