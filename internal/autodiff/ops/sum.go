package ops

import "github.com/born-ml/sgat/internal/tensor"

// SumOp represents a full reduction: output = sum(x), a 0-d tensor.
//
// Each input element contributes 1.0 to the output, so the gradient is the
// output gradient broadcast back to the input shape.
type SumOp struct {
	base
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{base{inputs: []*tensor.RawTensor{x}, output: output}}
}

// Backward computes input gradients for sum.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{broadcastTo(outputGrad, op.inputs[0].Shape(), backend)}
}

// SumDimOp represents a reduction sum operation along a dimension.
//
// Forward:
//
//	y = sum(x, dim, keepDim)
//
// Backward:
//
//	grad_x = broadcast(grad_y, x.shape)
//
// If keepDim=false, grad_y is first reshaped to put the reduced axis back.
type SumDimOp struct {
	base
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	if dim < 0 {
		dim += len(x.Shape())
	}
	return &SumDimOp{
		base:    base{inputs: []*tensor.RawTensor{x}, output: output},
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward computes input gradients for sum reduction.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		grad = backend.Reshape(grad, keepDimShape(grad.Shape(), op.dim))
	}
	return []*tensor.RawTensor{broadcastTo(grad, op.inputs[0].Shape(), backend)}
}
