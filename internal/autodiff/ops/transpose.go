package ops

import "github.com/born-ml/sgat/internal/tensor"

// TransposeOp represents a permutation of dimensions.
// The gradient is the output gradient permuted back with the inverse axes.
type TransposeOp struct {
	base
	axes []int
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		base: base{inputs: []*tensor.RawTensor{x}, output: output},
		axes: append([]int(nil), axes...),
	}
}

// Backward computes input gradients for transpose.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inversePermutation(op.axes)...)}
}

// ReshapeOp represents a reshape; the gradient is reshaped back.
type ReshapeOp struct {
	base
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{base{inputs: []*tensor.RawTensor{x}, output: output}}
}

// Backward computes input gradients for reshape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}
