// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/sgat/internal/tensor"
)

// RawTensor is the low-level tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device()
//   - Zero-copy typed access via AsFloat32(), AsFloat64(), AsInt64()
//   - Deep copies via Clone()
//
// Gradients are keyed by *RawTensor, so keep the pointer of every leaf you
// want a gradient for.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32() // zero-copy view
//	clone := raw.Clone()    // independent copy
type RawTensor = tensor.RawTensor

// NewRaw creates a new zero-filled raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromValues creates a raw tensor holding a copy of data.
//
// Example:
//
//	indices, _ := tensor.FromValues([]int64{1, 2, 0, 1, 4, 6}, tensor.Shape{2, 3}, tensor.CPU)
func FromValues[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromValues(data, shape, device)
}
