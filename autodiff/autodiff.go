// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation (backpropagation)
// using a gradient tape. It wraps any backend to add autodiff capabilities.
//
// Example:
//
//	import (
//	    "github.com/born-ml/sgat/autodiff"
//	    "github.com/born-ml/sgat/backend/cpu"
//	    "github.com/born-ml/sgat/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    defer backend.Tape().Scope()() // record, then release the graph
//
//	    x, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3}, backend)
//	    loss := x.Mul(x).Sum()
//
//	    grads, _ := autodiff.Grad(backend, loss.Raw(), x.Raw()) // [2 4 6]
//	}
package autodiff

import (
	"github.com/born-ml/sgat/internal/autodiff"
	"github.com/born-ml/sgat/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// ErrNothingRecorded is returned when gradients are requested from an empty tape.
var ErrNothingRecorded = autodiff.ErrNothingRecorded

// Grad returns the gradients of output with respect to each of inputs.
// Inputs the output does not depend on receive zeros. The tape is kept, so
// several outputs recorded in one scope can be differentiated in turn.
func Grad(backend BackwardCapable, output *tensor.RawTensor, inputs ...*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return autodiff.Grad(backend, output, inputs...)
}

// Backward computes the gradients of t with respect to every tensor
// recorded on the backend's tape, keyed by RawTensor.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	return autodiff.Backward(t, backend)
}
