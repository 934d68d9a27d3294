package nn

import (
	"fmt"
	"math/rand"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Dropout randomly zeroes elements during training with probability p and
// scales the survivors by 1/(1-p), so activations keep their expected
// magnitude and inference needs no rescaling (inverted dropout). Outside
// training mode it is the identity.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	rng      *rand.Rand
	backend  B
}

// NewDropout creates a dropout layer with drop probability p in [0, 1).
// The layer starts in training mode.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand, backend B) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability %v outside [0, 1)", p))
	}
	return &Dropout[B]{p: p, training: true, rng: rng, backend: backend}
}

// SetTraining switches between training (masking) and inference (identity).
func (d *Dropout[B]) SetTraining(training bool) { d.training = training }

// Forward masks the input in training mode, passes it through otherwise.
func (d *Dropout[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !d.training || d.p == 0 {
		return input
	}

	keep := 1 - d.p
	scale := 1 / keep
	mask := tensor.MustRaw(input.Shape().Clone())
	maskData := mask.Data()
	for i := range maskData {
		if d.rng.Float32() < keep {
			maskData[i] = scale
		}
	}

	// The mask is a constant; multiplying through the backend keeps the
	// operation on the tape so gradients are masked identically.
	return input.Mul(tensor.New(mask, d.backend))
}

// Parameters returns nil; dropout is parameterless.
func (d *Dropout[B]) Parameters() []*Parameter[B] { return nil }

func (d *Dropout[B]) String() string {
	return fmt.Sprintf("Dropout(p=%v)", d.p)
}
