package mnist

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Dataset holds normalized images and their class labels. Pixels are
// float32 in [0, 1]; labels stay as class bytes until batching one-hot
// encodes them.
type Dataset struct {
	images []float32 // flat, NumSamples()*ImageSize
	labels []byte
}

// Load reads one split (train or test) from dir. Both the gzipped archive
// names and their extracted forms are accepted.
func Load(dir string, train bool) (*Dataset, error) {
	imagesFile, labelsFile := TestImagesFile, TestLabelsFile
	if train {
		imagesFile, labelsFile = TrainImagesFile, TrainLabelsFile
	}

	imagesPath, err := resolve(dir, imagesFile)
	if err != nil {
		return nil, err
	}
	labelsPath, err := resolve(dir, labelsFile)
	if err != nil {
		return nil, err
	}

	rawImages, err := ReadImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := ReadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	if len(rawImages) != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels", len(rawImages), len(labels))
	}

	images := make([]float32, len(rawImages)*ImageSize)
	for i, img := range rawImages {
		base := i * ImageSize
		for j, px := range img {
			images[base+j] = float32(px) / 255.0
		}
	}
	return &Dataset{images: images, labels: labels}, nil
}

// FromSamples builds an in-memory dataset from normalized images. Each
// image must have ImageSize pixels and each label must be a valid class.
func FromSamples(images [][]float32, labels []int) (*Dataset, error) {
	if len(images) != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels", len(images), len(labels))
	}
	ds := &Dataset{
		images: make([]float32, len(images)*ImageSize),
		labels: make([]byte, len(labels)),
	}
	for i, img := range images {
		if len(img) != ImageSize {
			return nil, fmt.Errorf("mnist: image %d has %d pixels, want %d", i, len(img), ImageSize)
		}
		copy(ds.images[i*ImageSize:(i+1)*ImageSize], img)
	}
	for i, l := range labels {
		if l < 0 || l >= NumClasses {
			return nil, fmt.Errorf("mnist: label %d out of range at sample %d", l, i)
		}
		ds.labels[i] = byte(l)
	}
	return ds, nil
}

// resolve finds the archive in dir, falling back to the gunzipped name.
func resolve(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	plain := filepath.Join(dir, strings.TrimSuffix(name, ".gz"))
	if _, err := os.Stat(plain); err == nil {
		return plain, nil
	}
	return "", fmt.Errorf("mnist: %s not found in %s (run fetch first)", name, dir)
}

// NumSamples returns the number of examples.
func (d *Dataset) NumSamples() int { return len(d.labels) }

// Image returns the normalized pixels of sample i.
func (d *Dataset) Image(i int) []float32 {
	return d.images[i*ImageSize : (i+1)*ImageSize]
}

// Label returns the class of sample i.
func (d *Dataset) Label(i int) int { return int(d.labels[i]) }

// Limit returns a dataset holding only the first n samples. A non-positive
// n or one past the end returns the dataset unchanged.
func (d *Dataset) Limit(n int) *Dataset {
	if n <= 0 || n >= d.NumSamples() {
		return d
	}
	return &Dataset{
		images: d.images[:n*ImageSize],
		labels: d.labels[:n],
	}
}

// Split shuffles the dataset with rng and carves off valRatio of it as a
// validation set.
func (d *Dataset) Split(valRatio float64, rng *rand.Rand) (train, val *Dataset) {
	if valRatio < 0 || valRatio >= 1 {
		panic(fmt.Sprintf("mnist: validation ratio %v outside [0, 1)", valRatio))
	}
	n := d.NumSamples()
	perm := rng.Perm(n)

	numVal := int(float64(n) * valRatio)
	build := func(indices []int) *Dataset {
		out := &Dataset{
			images: make([]float32, len(indices)*ImageSize),
			labels: make([]byte, len(indices)),
		}
		for i, src := range indices {
			copy(out.images[i*ImageSize:(i+1)*ImageSize], d.Image(src))
			out.labels[i] = d.labels[src]
		}
		return out
	}
	return build(perm[numVal:]), build(perm[:numVal])
}

// Batch is one training step's worth of data.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[B] // [N, 1, ImageRows, ImageCols]
	Labels *tensor.Tensor[B] // [N, NumClasses], one-hot
}

// Batches slices the dataset into batches of batchSize, optionally
// shuffling first. The final batch keeps whatever samples remain.
func Batches[B tensor.Backend](d *Dataset, batchSize int, shuffle bool, rng *rand.Rand, backend B) []Batch[B] {
	if batchSize <= 0 {
		panic(fmt.Sprintf("mnist: invalid batch size %d", batchSize))
	}
	n := d.NumSamples()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([]Batch[B], 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		size := end - start

		images := tensor.MustRaw(tensor.Shape{size, 1, ImageRows, ImageCols})
		labels := tensor.MustRaw(tensor.Shape{size, NumClasses})
		iv, lv := images.Data(), labels.Data()
		for i, src := range order[start:end] {
			copy(iv[i*ImageSize:(i+1)*ImageSize], d.Image(src))
			lv[i*NumClasses+d.Label(src)] = 1
		}

		batches = append(batches, Batch[B]{
			Images: tensor.New(images, backend),
			Labels: tensor.New(labels, backend),
		})
	}
	return batches
}
