// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensor types used by the sparse package.
//
// # Overview
//
// This package provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - RawTensor, the untyped contiguous storage every backend operates on
//   - NumPy-style broadcasting for element-wise operations
//   - Device tags (CPU, CUDA, WebGPU) checked by every operation
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/sgat/backend/cpu"
//	    "github.com/born-ml/sgat/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    z := x.Add(y)
//	    w := z.MatMul(y.Transpose()) // (2, 2)
//	}
//
// # Supported Data Types
//
//   - float32, float64 (differentiable values)
//   - int64 (sparse coordinates and gather/scatter offsets)
//
// # Broadcasting
//
//	a := tensor.Zeros[float32](tensor.Shape{3, 1}, backend) // (3, 1)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)  // (3, 4)
//	c := a.Add(b)                                           // (3, 4)
//
// # Memory Management
//
// Operations never modify their inputs; each returns a freshly allocated
// tensor. Memory is reclaimed by the garbage collector once no tensor and
// no gradient tape refers to it.
package tensor
