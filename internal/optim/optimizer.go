// Package optim implements first-order optimizers over raw parameter tensors.
//
// A parameter is any float tensor that is a leaf of the recorded graph: a
// dense weight, or the Values() of a sparse tensor, in which case only the
// stored entries move and the sparsity pattern stays fixed.
//
// Example usage:
//
//	opt := optim.NewAdam([]*tensor.RawTensor{s.Values(), d}, optim.AdamConfig{LR: 0.01})
//	for range steps {
//	    release := backend.Tape().Scope()
//	    loss := computeLoss()
//	    grads, _ := autodiff.Grad(backend, loss, s.Values(), d)
//	    release()
//	    opt.Step(optim.GradMap([]*tensor.RawTensor{s.Values(), d}, grads))
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Step updates parameters in place. Parameters without an entry in grads
// are left unchanged.
type Optimizer interface {
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
	GetLR() float64
	SetLR(lr float64)
}

// GradMap pairs each parameter with the gradient at the same position, the
// layout autodiff.Grad returns.
func GradMap(params, grads []*tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	m := make(map[*tensor.RawTensor]*tensor.RawTensor, len(params))
	for i, p := range params {
		if i < len(grads) && grads[i] != nil {
			m[p] = grads[i]
		}
	}
	return m
}

// stateFor returns the zero-initialized state tensor of param in states,
// creating it on first use.
func stateFor(states map[*tensor.RawTensor]*tensor.RawTensor, param *tensor.RawTensor) *tensor.RawTensor {
	s, ok := states[param]
	if !ok {
		s = tensor.MustNewRaw(param.Shape(), param.DType(), param.Device())
		states[param] = s
	}
	return s
}

// checkParam panics unless param and grad are float tensors of one shape
// and dtype.
func checkParam(param, grad *tensor.RawTensor) {
	if !param.DType().IsFloat() {
		panic(fmt.Sprintf("optim: parameter must be float32 or float64, got %s", param.DType()))
	}
	if grad.DType() != param.DType() || !grad.Shape().Equal(param.Shape()) {
		panic(fmt.Sprintf("optim: gradient %s%v does not match parameter %s%v",
			grad.DType(), grad.Shape(), param.DType(), param.Shape()))
	}
}
