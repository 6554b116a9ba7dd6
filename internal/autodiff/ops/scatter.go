package ops

import "github.com/born-ml/sgat/internal/tensor"

// ScatterAddOp represents output = scatter_add(zeros(shape), index, src).
// It densifies sparse values and aggregates colliding coordinates.
//
// Backward: grad_src[e] = outputGrad.flat[index[e]].
type ScatterAddOp struct {
	base
	index *tensor.RawTensor
}

// NewScatterAddOp creates a new ScatterAddOp.
func NewScatterAddOp(index, src, output *tensor.RawTensor) *ScatterAddOp {
	return &ScatterAddOp{
		base:  base{inputs: []*tensor.RawTensor{src}, output: output},
		index: index,
	}
}

// Backward gathers the output gradient at the scattered offsets.
func (op *ScatterAddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Take(outputGrad, op.index)}
}

// TakeOp represents output[e] = x.flat[index[e]].
//
// Backward: grad_x = scatter_add(zeros(x.shape), index, outputGrad), so
// repeated indices accumulate.
type TakeOp struct {
	base
	index *tensor.RawTensor
}

// NewTakeOp creates a new TakeOp.
func NewTakeOp(x, index, output *tensor.RawTensor) *TakeOp {
	return &TakeOp{
		base:  base{inputs: []*tensor.RawTensor{x}, output: output},
		index: index,
	}
}

// Backward scatters the output gradient back to the gathered offsets.
func (op *TakeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.ScatterAdd(op.index, outputGrad, op.inputs[0].Shape())}
}
