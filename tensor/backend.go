// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/sgat/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends panic on invalid arguments; the sparse package validates its
// operands and returns errors before dispatching.
//
// Implementations:
//   - backend/cpu: Pure Go with gonum BLAS for dense and sparse products
//
// Decorator backends for additional functionality:
//   - autodiff: Automatic differentiation (wraps any backend)
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.

	MulScalar(x *RawTensor, s float64) *RawTensor // Multiply by scalar.

	MatMul(a, b *RawTensor) *RawTensor // Matrix multiplication.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                           // Total sum (0-d result).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Sum along dimension.

	// Sparse kernels over Int64 coordinate vectors.
	SampledMatMul(a, b, rows, cols *RawTensor) *RawTensor                           // (a @ b) at (rows, cols) only.
	SparseMatMul(rows, cols, values *RawTensor, m int, dense *RawTensor) *RawTensor // COO matrix @ dense.
	ScatterAdd(index, src *RawTensor, shape Shape) *RawTensor                       // Accumulate src at flat offsets.
	Take(x, index *RawTensor) *RawTensor                                            // Gather at flat offsets.

	// Metadata.
	Name() string   // Backend name (e.g., "CPU", "Autodiff(CPU)").
	Device() Device // Device type.
}

// Compile-time checks that the public and internal interfaces match.
var (
	_ Backend        = tensor.Backend(nil)
	_ tensor.Backend = Backend(nil)
)
