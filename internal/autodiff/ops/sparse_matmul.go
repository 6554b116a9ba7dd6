package ops

import "github.com/born-ml/sgat/internal/tensor"

// SparseMatMulOp represents output = S @ dense, where S is the m×k sparse
// matrix (rows, cols, values).
//
// Backward pass:
//   - grad_values[e] = sum_n outputGrad[rows[e], n] * dense[cols[e], n]
//     (the sampled product outputGrad @ dense^T on S's pattern)
//   - grad_dense = S^T @ outputGrad
type SparseMatMulOp struct {
	base
	rows, cols *tensor.RawTensor
}

// NewSparseMatMulOp creates a new SparseMatMulOp with inputs [values, dense].
func NewSparseMatMulOp(rows, cols, values, dense, output *tensor.RawTensor) *SparseMatMulOp {
	return &SparseMatMulOp{
		base: base{inputs: []*tensor.RawTensor{values, dense}, output: output},
		rows: rows,
		cols: cols,
	}
}

// Backward computes the sparse value gradient and the dense gradient.
func (op *SparseMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	values, dense := op.inputs[0], op.inputs[1]
	k := dense.Shape()[0]

	gradValues := backend.SampledMatMul(outputGrad, backend.Transpose(dense, 1, 0), op.rows, op.cols)
	gradDense := backend.SparseMatMul(op.cols, op.rows, values, k, outputGrad)

	return []*tensor.RawTensor{gradValues, gradDense}
}
