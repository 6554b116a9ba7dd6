package sparse

import "errors"

// Sparse construction errors.
// Shape, device and dtype problems are reported with the tensor package sentinels.
var (
	ErrOutOfRangeCoordinate = errors.New("coordinate out of range")
	ErrDuplicateCoordinate  = errors.New("duplicate coordinate")
)
