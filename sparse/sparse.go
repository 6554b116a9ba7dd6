// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package sparse provides differentiable COO sparse tensors.
//
// Example:
//
//	import (
//	    "github.com/born-ml/sgat/autodiff"
//	    "github.com/born-ml/sgat/backend/cpu"
//	    "github.com/born-ml/sgat/sparse"
//	    "github.com/born-ml/sgat/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    defer backend.Tape().Scope()()
//	    sp := sparse.New(backend)
//
//	    v, _ := tensor.FromValues([]float64{0.5, 1, 2}, tensor.Shape{3}, tensor.CPU)
//	    a, _ := sp.BuildFromSlices([][]int64{{1, 2, 0}, {1, 4, 6}}, v, tensor.Shape{3, 7})
//
//	    b := tensor.Rand[float64](tensor.Shape{7, 5}, rng, backend)
//	    out, _ := sp.MatMul(a, b.Raw()) // dense [3 5]
//
//	    grads, _ := autodiff.Grad(backend, backend.Sum(out), v, b.Raw())
//	    gradA, _ := sparse.GradOf(a, grads[0]) // sparse, a's pattern
//	}
package sparse

import (
	"log/slog"

	"github.com/born-ml/sgat/internal/sparse"
	"github.com/born-ml/sgat/tensor"
)

// Tensor is a sparse tensor in coordinate format.
type Tensor = sparse.Tensor

// Ops dispatches sparse operations to a backend.
type Ops = sparse.Ops

// Option configures an Ops engine.
type Option = sparse.Option

// Sparse construction errors. Shape, device and dtype problems are
// reported with tensor.ErrShapeMismatch, tensor.ErrDeviceMismatch and
// tensor.ErrDTypeMismatch.
var (
	ErrOutOfRangeCoordinate = sparse.ErrOutOfRangeCoordinate
	ErrDuplicateCoordinate  = sparse.ErrDuplicateCoordinate
)

// New creates an Ops engine bound to backend.
// Pass an autodiff backend to make the operations differentiable.
func New(backend tensor.Backend, opts ...Option) *Ops {
	return sparse.New(backend, opts...)
}

// WithLogger sets the logger used for debug records. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return sparse.WithLogger(logger)
}

// GradOf wraps grad, the gradient of x.Values(), as a sparse tensor with x's pattern.
func GradOf(x *Tensor, grad *tensor.RawTensor) (*Tensor, error) {
	return sparse.GradOf(x, grad)
}
