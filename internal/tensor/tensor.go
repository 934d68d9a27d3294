package tensor

import "fmt"

// Tensor pairs a RawTensor with the backend that operates on it. The type
// parameter keeps backend choice a compile-time property: a model built on
// the autodiff backend cannot accidentally mix in untracked tensors.
type Tensor[B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps a RawTensor for use with backend b.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return &Tensor[B]{raw: raw, backend: b}
}

// FromSlice builds a tensor from a copy of data.
func FromSlice[B Backend](data []float32, shape Shape, b B) (*Tensor[B], error) {
	raw, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), data)
	return New(raw, b), nil
}

// Shape returns the tensor's shape.
func (t *Tensor[B]) Shape() Shape { return t.raw.Shape() }

// NumElements returns the total element count.
func (t *Tensor[B]) NumElements() int { return t.raw.NumElements() }

// Raw exposes the underlying RawTensor for backend-level code.
func (t *Tensor[B]) Raw() *RawTensor { return t.raw }

// Backend returns the compute backend.
func (t *Tensor[B]) Backend() B { return t.backend }

// Data returns the underlying buffer; writes are visible to the tensor.
func (t *Tensor[B]) Data() []float32 { return t.raw.Data() }

// At returns the element at the given multi-dimensional indices.
func (t *Tensor[B]) At(indices ...int) float32 {
	shape := t.raw.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("at: want %d indices for shape %v, got %d", len(shape), shape, len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("at: index %d out of range for dim %d (size %d)", idx, i, shape[i]))
		}
		offset += idx * t.raw.Strides()[i]
	}
	return t.raw.Data()[offset]
}

// Item returns the value of a single-element tensor.
func (t *Tensor[B]) Item() float32 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("item: tensor has shape %v, want a single element", t.Shape()))
	}
	return t.raw.Data()[0]
}

// Add returns t + other with broadcasting.
func (t *Tensor[B]) Add(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub returns t - other with broadcasting.
func (t *Tensor[B]) Sub(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul returns the element-wise product with broadcasting.
func (t *Tensor[B]) Mul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// MatMul returns the 2D matrix product t @ other.
func (t *Tensor[B]) MatMul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// Reshape returns a tensor with the same elements in a new shape.
func (t *Tensor[B]) Reshape(dims ...int) *Tensor[B] {
	return New(t.backend.Reshape(t.raw, Shape(dims)), t.backend)
}

// Transpose permutes dimensions; with no axes it reverses them.
func (t *Tensor[B]) Transpose(axes ...int) *Tensor[B] {
	return New(t.backend.Transpose(t.raw, axes...), t.backend)
}

// Scale returns t with every element multiplied by v.
func (t *Tensor[B]) Scale(v float32) *Tensor[B] {
	return New(t.backend.Scale(t.raw, v), t.backend)
}

// ReLU returns max(0, x) element-wise.
func (t *Tensor[B]) ReLU() *Tensor[B] {
	return New(t.backend.ReLU(t.raw), t.backend)
}

// Softmax returns row-wise softmax of a 2D tensor.
func (t *Tensor[B]) Softmax() *Tensor[B] {
	return New(t.backend.Softmax(t.raw), t.backend)
}

// Clone returns a deep copy.
func (t *Tensor[B]) Clone() *Tensor[B] {
	return New(t.raw.Clone(), t.backend)
}

// String describes the tensor.
func (t *Tensor[B]) String() string {
	return fmt.Sprintf("Tensor%v on %s", t.Shape(), t.backend.Name())
}
