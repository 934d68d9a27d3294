package tensor

import "math/rand"

// Zeros creates a zero-filled tensor.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return New(MustRaw(shape), b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	raw := MustRaw(shape)
	raw.Fill(value)
	return New(raw, b)
}

// Randn creates a tensor of samples from N(0, 1) drawn from rng. Callers
// pass a seeded source so weight initialization is reproducible run to run.
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[B] {
	raw := MustRaw(shape)
	data := raw.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return New(raw, b)
}

// Uniform creates a tensor of samples from U(lo, hi) drawn from rng.
func Uniform[B Backend](shape Shape, lo, hi float32, rng *rand.Rand, b B) *Tensor[B] {
	raw := MustRaw(shape)
	data := raw.Data()
	for i := range data {
		data[i] = lo + rng.Float32()*(hi-lo)
	}
	return New(raw, b)
}
