package tensor

import "fmt"

// Shape holds the dimensions of a tensor in row-major order.
type Shape []int

// NumElements returns the total element count. A scalar (empty shape) has one.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports an error if any dimension is non-positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("dimension %d is %d, must be positive", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Strides returns row-major strides: strides[i] is the flat-index step for
// advancing one position along dimension i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Broadcast applies NumPy-style broadcasting rules to two shapes.
//
// Dimensions are aligned from the right; a pair is compatible when equal or
// when either side is 1. Missing leading dimensions count as 1. Returns the
// result shape and whether any expansion is actually required.
func Broadcast(a, b Shape) (Shape, bool, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Shape, n)
	expanded := false

	for i := 0; i < n; i++ {
		da, db := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			da = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			db = b[idx]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
			expanded = true
		case db == 1:
			out[n-1-i] = da
			expanded = true
		default:
			return nil, false, fmt.Errorf("cannot broadcast %v with %v (dim %d: %d vs %d)", a, b, n-1-i, da, db)
		}
	}
	return out, expanded, nil
}

// String renders the shape as e.g. "[32 1 28 28]".
func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}
