package nn

import (
	"math"
	"math/rand"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Xavier initializes a weight tensor with Glorot uniform values:
// U(-sqrt(6/(fanIn+fanOut)), +sqrt(6/(fanIn+fanOut))). Drawing from the
// caller's rng keeps runs reproducible under a fixed seed.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[B] {
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return tensor.Uniform(shape, -bound, bound, rng, backend)
}
