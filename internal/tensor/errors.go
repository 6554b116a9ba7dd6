package tensor

import "errors"

// Tensor errors.
var (
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrDeviceMismatch = errors.New("device mismatch")
	ErrDTypeMismatch  = errors.New("dtype mismatch")
)
