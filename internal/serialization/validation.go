package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/sgat/internal/tensor"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorName rejects names that cannot round-trip through the file
// layout or that look like paths.
func ValidateTensorName(name string) error {
	if name == "" || name == MetadataKey {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "reserved or empty name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains a path separator or null byte"}
	}
	return nil
}

// validateEntries checks every entry's dtype and byte size, and that the
// entries tile disjoint ranges of a data section of dataSize bytes.
func validateEntries(entries map[string]Entry, dataSize int64) error {
	if len(entries) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(entries), MaxTensorCount),
		}
	}

	names := make([]string, 0, len(entries))
	for name, e := range entries {
		dt, ok := safeTensorsToDType(e.DType)
		if !ok {
			return &ValidationError{Type: "unsupported_dtype", Tensor: name, Details: e.DType}
		}
		start, end := e.DataOffsets[0], e.DataOffsets[1]
		if start < 0 || end < start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  name,
				Details: fmt.Sprintf("data_offsets [%d, %d]", start, end),
			}
		}
		if end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  name,
				Details: fmt.Sprintf("end %d > data_size %d", end, dataSize),
			}
		}
		elems := int64(1)
		for _, d := range e.Shape {
			if d < 0 {
				return &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("%v", e.Shape)}
			}
			elems *= d
		}
		if want := elems * int64(dt.Size()); want != end-start {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  name,
				Details: fmt.Sprintf("shape %v needs %d bytes, offsets span %d", e.Shape, want, end-start),
			}
		}
		if start < end {
			// Empty regions hold no bytes and cannot overlap anything.
			names = append(names, name)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		oa, ob := entries[a].DataOffsets, entries[b].DataOffsets
		return cmp.Or(cmp.Compare(oa[0], ob[0]), cmp.Compare(oa[1], ob[1]), cmp.Compare(a, b))
	})
	for i := 1; i < len(names); i++ {
		prev, cur := entries[names[i-1]], entries[names[i]]
		if prev.DataOffsets[1] > cur.DataOffsets[0] {
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  names[i-1],
				Tensor2: names[i],
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					prev.DataOffsets[0], prev.DataOffsets[1], cur.DataOffsets[0], cur.DataOffsets[1]),
			}
		}
	}
	return nil
}

func shapeOf(e Entry) tensor.Shape {
	s := make(tensor.Shape, len(e.Shape))
	for i, d := range e.Shape {
		s[i] = int(d)
	}
	return s
}
