// Package mnist loads the MNIST handwritten digit dataset: fetching the
// four IDX archives, parsing them, and turning them into normalized,
// one-hot-labeled training batches.
package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// IDX magic numbers (big-endian): 0x00000803 for image files, 0x00000801
// for label files.
const (
	imageMagic = 2051
	labelMagic = 2049
)

// Standard MNIST dimensions.
const (
	ImageRows  = 28
	ImageCols  = 28
	ImageSize  = ImageRows * ImageCols
	NumClasses = 10
)

// openIDX opens path, transparently decompressing .gz files.
func openIDX(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &gzipCloser{gz: gz, file: file}, nil
}

type gzipCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipCloser) Close() error {
	gzErr := g.gz.Close()
	fileErr := g.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// ReadImages parses an IDX image file into per-image pixel rows of
// ImageSize raw bytes each.
func ReadImages(path string) ([][]byte, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	if header.Magic != imageMagic {
		return nil, fmt.Errorf("%s: invalid image magic %d, want %d", path, header.Magic, imageMagic)
	}
	if header.Rows != ImageRows || header.Cols != ImageCols {
		return nil, fmt.Errorf("%s: unexpected image size %dx%d, want %dx%d",
			path, header.Rows, header.Cols, ImageRows, ImageCols)
	}

	images := make([][]byte, header.Count)
	for i := range images {
		images[i] = make([]byte, ImageSize)
		if _, err := io.ReadFull(r, images[i]); err != nil {
			return nil, fmt.Errorf("%s: read image %d: %w", path, i, err)
		}
	}
	return images, nil
}

// ReadLabels parses an IDX label file into one class byte per sample.
func ReadLabels(path string) ([]byte, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	if header.Magic != labelMagic {
		return nil, fmt.Errorf("%s: invalid label magic %d, want %d", path, header.Magic, labelMagic)
	}

	labels := make([]byte, header.Count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("%s: read labels: %w", path, err)
	}
	for i, l := range labels {
		if l >= NumClasses {
			return nil, fmt.Errorf("%s: label %d out of range at sample %d", path, l, i)
		}
	}
	return labels, nil
}
