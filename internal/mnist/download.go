package mnist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL hosts gzipped copies of the four MNIST archives.
const DefaultBaseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// Archive file names as published by the original distribution.
const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

var archiveFiles = []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile}

// Fetch downloads any missing MNIST archives into dir, fetching the four
// files concurrently. Files already on disk are left alone.
func Fetch(ctx context.Context, dir, baseURL string, logger *slog.Logger) error {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range archiveFiles {
		g.Go(func() error {
			dest := filepath.Join(dir, name)
			if _, err := os.Stat(dest); err == nil {
				logger.Debug("archive already present", "file", name)
				return nil
			}
			return download(ctx, baseURL+name, dest, logger)
		})
	}
	return g.Wait()
}

// download fetches url into dest via a temp file so an interrupted
// transfer never leaves a half-written archive behind.
func download(ctx context.Context, url, dest string, logger *slog.Logger) error {
	logger.Info("downloading", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("finalize %s: %w", dest, err)
	}

	logger.Info("downloaded", "file", filepath.Base(dest), "bytes", written)
	return nil
}
