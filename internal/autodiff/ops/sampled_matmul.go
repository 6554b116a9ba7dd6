package ops

import "github.com/born-ml/sgat/internal/tensor"

// SampledMatMulOp represents a masked product: output[e] = (a @ b)[rows[e], cols[e]].
//
// Let G be the m×n sparse matrix holding outputGrad on the (rows, cols)
// pattern. Then:
//   - grad_a = G @ b^T
//   - grad_b = (G^T @ a)^T
//
// Both are computed with the sparse-dense kernel, so the dense product is
// never materialized in either pass.
type SampledMatMulOp struct {
	base
	rows, cols *tensor.RawTensor
}

// NewSampledMatMulOp creates a new SampledMatMulOp.
// rows and cols are coordinate metadata and receive no gradient.
func NewSampledMatMulOp(a, b, rows, cols, output *tensor.RawTensor) *SampledMatMulOp {
	return &SampledMatMulOp{
		base: base{inputs: []*tensor.RawTensor{a, b}, output: output},
		rows: rows,
		cols: cols,
	}
}

// Backward scatters the per-entry gradients back into dense a and b.
func (op *SampledMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	m, n := a.Shape()[0], b.Shape()[1]

	gradA := backend.SparseMatMul(op.rows, op.cols, outputGrad, m, backend.Transpose(b, 1, 0))
	gradB := backend.Transpose(backend.SparseMatMul(op.cols, op.rows, outputGrad, n, a), 1, 0)

	return []*tensor.RawTensor{gradA, gradB}
}
