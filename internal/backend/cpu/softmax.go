package cpu

import (
	"fmt"
	"math"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Softmax normalizes each row of a 2D tensor into a probability
// distribution. Rows are shifted by their maximum before exponentiation to
// avoid overflow.
func (c *Backend) Softmax(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax: want 2D [batch, classes], got %v", shape))
	}
	rows, cols := shape[0], shape[1]

	out := tensor.MustRaw(shape)
	src, dst := t.Data(), out.Data()
	for r := 0; r < rows; r++ {
		softmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
	}
	return out
}

// softmaxRow writes softmax(src) into dst. Both slices have equal length.
func softmaxRow(dst, src []float32) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := float32(0)
	for i, v := range src {
		e := float32(math.Exp(float64(v - maxVal)))
		dst[i] = e
		sum += e
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// CrossEntropy computes mean softmax cross-entropy between logits and
// one-hot targets, both [batch, classes]. The log-sum-exp trick keeps the
// per-row log-softmax stable. Returns a scalar [1] tensor.
func (c *Backend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	lShape, tShape := logits.Shape(), targets.Shape()
	if len(lShape) != 2 {
		panic(fmt.Sprintf("cross entropy: logits must be 2D [batch, classes], got %v", lShape))
	}
	if !lShape.Equal(tShape) {
		panic(fmt.Sprintf("cross entropy: logits %v and targets %v differ", lShape, tShape))
	}
	batch, classes := lShape[0], lShape[1]

	lData, tData := logits.Data(), targets.Data()
	total := float64(0)
	for b := 0; b < batch; b++ {
		row := lData[b*classes : (b+1)*classes]
		tRow := tData[b*classes : (b+1)*classes]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		sumExp := float64(0)
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		logSumExp := float64(maxVal) + math.Log(sumExp)

		// -sum_i t_i * log_softmax_i; with one-hot targets a single term
		// survives, but dense targets (label smoothing) work the same way.
		for i, tv := range tRow {
			if tv != 0 {
				total += float64(tv) * (logSumExp - float64(row[i]))
			}
		}
	}

	out := tensor.MustRaw(tensor.Shape{1})
	out.Data()[0] = float32(total / float64(batch))
	return out
}
