package conv

import (
	"errors"
	"fmt"
)

// ErrOverflow is wrapped by every failed conversion.
var ErrOverflow = errors.New("integer overflow")

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// To converts v to the integer type T. It fails instead of wrapping or
// truncating when v is not representable in T.
func To[T, F integer](v F) (T, error) {
	t := T(v)
	if F(t) != v || (t < 0) != (v < 0) {
		return 0, fmt.Errorf("%w: %d does not fit in %T", ErrOverflow, v, t)
	}
	return t, nil
}

// Handle converts a vector count or position to a graph handle.
func Handle(v int) (uint32, error) { return To[uint32](v) }
