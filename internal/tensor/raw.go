// Package tensor provides the float32 tensor core shared by every layer of
// the training pipeline: shapes, raw buffers, the typed tensor wrapper and
// the Backend interface that compute implementations satisfy.
//
// The pipeline is float32 end to end (normalized pixels in, logits out), so
// RawTensor stores a flat []float32 rather than carrying runtime dtype
// information.
package tensor

import "fmt"

// RawTensor is the low-level tensor representation: a flat row-major
// float32 buffer plus its shape and strides. Backends operate on RawTensors;
// user-facing code works with the typed Tensor wrapper.
type RawTensor struct {
	data    []float32
	shape   Shape
	strides []int
}

// NewRaw allocates a zero-filled RawTensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		data:    make([]float32, shape.NumElements()),
		shape:   shape.Clone(),
		strides: shape.Strides(),
	}, nil
}

// MustRaw is NewRaw for shapes known to be valid; it panics on error.
func MustRaw(shape Shape) *RawTensor {
	r, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	return r
}

// RawFromSlice wraps data in a RawTensor without copying.
// The slice length must match the shape's element count.
func RawFromSlice(data []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &RawTensor{data: data, shape: shape.Clone(), strides: shape.Strides()}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's row-major strides.
func (r *RawTensor) Strides() []int { return r.strides }

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int { return len(r.data) }

// Data returns the underlying buffer. Mutations are visible to every view
// of this RawTensor.
func (r *RawTensor) Data() []float32 { return r.data }

// View returns a RawTensor sharing this buffer but reinterpreted with
// newShape. The element counts must match.
func (r *RawTensor) View(newShape Shape) *RawTensor {
	if newShape.NumElements() != len(r.data) {
		panic(fmt.Sprintf("view: cannot reinterpret %v as %v", r.shape, newShape))
	}
	return &RawTensor{data: r.data, shape: newShape.Clone(), strides: newShape.Strides()}
}

// Clone returns a deep copy with its own buffer.
func (r *RawTensor) Clone() *RawTensor {
	out := MustRaw(r.shape)
	copy(out.data, r.data)
	return out
}

// Fill sets every element to v.
func (r *RawTensor) Fill(v float32) {
	for i := range r.data {
		r.data[i] = v
	}
}

// String describes the tensor without dumping its contents.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor%v (%d elements)", r.shape, len(r.data))
}
