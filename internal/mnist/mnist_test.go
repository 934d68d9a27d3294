package mnist

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/scrawl-ml/scrawl/internal/backend/cpu"
	"github.com/scrawl-ml/scrawl/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeImages(t *testing.T, images [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(imageMagic)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(images))))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(ImageRows)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(ImageCols)))
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

func encodeLabels(t *testing.T, labels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(labelMagic)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(labels))))
	buf.Write(labels)
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// writeSplit writes a synthetic train or test split into dir. Sample i has
// every pixel set to i*16 and label i%10.
func writeSplit(t *testing.T, dir string, train bool, n int, compressed bool) {
	t.Helper()
	images := make([][]byte, n)
	labels := make([]byte, n)
	for i := range images {
		images[i] = bytes.Repeat([]byte{byte(i * 16)}, ImageSize)
		labels[i] = byte(i % 10)
	}

	imagesName, labelsName := TestImagesFile, TestLabelsFile
	if train {
		imagesName, labelsName = TrainImagesFile, TrainLabelsFile
	}
	imagesData := encodeImages(t, images)
	labelsData := encodeLabels(t, labels)
	if compressed {
		imagesData = gzipBytes(t, imagesData)
		labelsData = gzipBytes(t, labelsData)
	} else {
		imagesName = imagesName[:len(imagesName)-3]
		labelsName = labelsName[:len(labelsName)-3]
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, imagesName), imagesData, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, labelsName), labelsData, 0o644))
}

// TestReadImages_Gzip tests parsing a gzipped IDX image file.
func TestReadImages_Gzip(t *testing.T) {
	dir := t.TempDir()
	writeSplit(t, dir, true, 3, true)

	images, err := ReadImages(filepath.Join(dir, TrainImagesFile))
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, byte(16), images[1][0])
	assert.Len(t, images[0], ImageSize)
}

// TestReadImages_BadMagic tests rejection of a label file read as images.
func TestReadImages_BadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels-as-images")
	require.NoError(t, os.WriteFile(path, encodeLabels(t, []byte{1, 2}), 0o644))

	_, err := ReadImages(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

// TestReadLabels_RejectsOutOfRange tests that labels above 9 fail.
func TestReadLabels_RejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad-labels")
	require.NoError(t, os.WriteFile(path, encodeLabels(t, []byte{3, 12}), 0o644))

	_, err := ReadLabels(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

// TestLoad_NormalizesPixels tests the /255 pixel scaling and the plain
// (non-gzip) fallback.
func TestLoad_NormalizesPixels(t *testing.T) {
	dir := t.TempDir()
	writeSplit(t, dir, true, 4, false)

	ds, err := Load(dir, true)
	require.NoError(t, err)
	require.Equal(t, 4, ds.NumSamples())

	// Sample 2 has all pixels at 32.
	assert.InDelta(t, 32.0/255.0, ds.Image(2)[0], 1e-6)
	assert.Equal(t, 2, ds.Label(2))

	for _, px := range ds.Image(3) {
		assert.GreaterOrEqual(t, px, float32(0))
		assert.LessOrEqual(t, px, float32(1))
	}
}

// TestLoad_MissingFiles tests the error when archives are absent.
func TestLoad_MissingFiles(t *testing.T) {
	_, err := Load(t.TempDir(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// TestSplit tests sizes and label preservation of the train/val split.
func TestSplit(t *testing.T) {
	dir := t.TempDir()
	writeSplit(t, dir, true, 10, true)
	ds, err := Load(dir, true)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	train, val := ds.Split(0.2, rng)

	assert.Equal(t, 8, train.NumSamples())
	assert.Equal(t, 2, val.NumSamples())

	// Every original label count must be preserved across the two halves.
	counts := make(map[int]int)
	for i := 0; i < train.NumSamples(); i++ {
		counts[train.Label(i)]++
	}
	for i := 0; i < val.NumSamples(); i++ {
		counts[val.Label(i)]++
	}
	for class := 0; class < 10; class++ {
		assert.Equal(t, 1, counts[class], "class %d", class)
	}
}

func TestLimit(t *testing.T) {
	dir := t.TempDir()
	writeSplit(t, dir, true, 10, true)
	ds, err := Load(dir, true)
	require.NoError(t, err)

	limited := ds.Limit(4)
	assert.Equal(t, 4, limited.NumSamples())
	for i := 0; i < 4; i++ {
		assert.Equal(t, ds.Label(i), limited.Label(i))
	}

	// Zero and oversized limits leave the dataset alone.
	assert.Same(t, ds, ds.Limit(0))
	assert.Same(t, ds, ds.Limit(100))
}

// TestBatches tests batch shapes, one-hot labels, and the partial final
// batch.
func TestBatches(t *testing.T) {
	dir := t.TempDir()
	writeSplit(t, dir, false, 10, true)
	ds, err := Load(dir, false)
	require.NoError(t, err)

	backend := cpu.New()
	batches := Batches(ds, 4, false, rand.New(rand.NewSource(1)), backend)
	require.Len(t, batches, 3)

	assert.True(t, batches[0].Images.Shape().Equal(tensor.Shape{4, 1, ImageRows, ImageCols}))
	assert.True(t, batches[0].Labels.Shape().Equal(tensor.Shape{4, NumClasses}))
	assert.True(t, batches[2].Images.Shape().Equal(tensor.Shape{2, 1, ImageRows, ImageCols}))

	// Unshuffled sample 1 has label 1: exactly one hot entry.
	row := batches[0].Labels.Data()[NumClasses : 2*NumClasses]
	var sum float32
	for c, v := range row {
		sum += v
		if c == 1 {
			assert.Equal(t, float32(1), v)
		}
	}
	assert.Equal(t, float32(1), sum)
}

// TestFetch tests downloading missing archives from a local server and
// skipping ones already on disk.
func TestFetch(t *testing.T) {
	requested := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested[r.URL.Path] = true
		_, _ = io.WriteString(w, "archive-bytes")
	}))
	defer server.Close()

	dir := t.TempDir()
	// Pre-seed one archive; it must not be re-fetched.
	require.NoError(t, os.WriteFile(filepath.Join(dir, TrainImagesFile), []byte("existing"), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Fetch(context.Background(), dir, server.URL+"/", logger))

	assert.False(t, requested["/"+TrainImagesFile])
	for _, name := range []string{TrainLabelsFile, TestImagesFile, TestLabelsFile} {
		assert.True(t, requested["/"+name], "expected fetch of %s", name)
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "archive-bytes", string(data))
	}
}
