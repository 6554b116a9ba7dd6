package sparse

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// MatMulMasked computes (a @ b) restricted to the pattern of mask.
//
// a is [m, k], b is [k, n] and mask is a sparse [m, n] tensor whose values
// are ignored. The result shares mask's indices and holds
// out[e] = sum_k a[i_e, k] * b[k, j_e] for every mask entry, including
// entries whose product is exactly zero. The dense product is never formed,
// so the cost is O(nnz * k) rather than O(m * n * k).
//
// Gradients with respect to a and b are dense and equal those of
// (a @ b) * dense(mask).
func (o *Ops) MatMulMasked(a, b *tensor.RawTensor, mask *Tensor) (*Tensor, error) {
	if err := o.checkDevice("matmul_masked", a, b, mask.values); err != nil {
		return nil, err
	}
	if err := checkFloat2D("matmul_masked", "a", a); err != nil {
		return nil, err
	}
	if err := checkFloat2D("matmul_masked", "b", b); err != nil {
		return nil, err
	}
	if a.DType() != b.DType() {
		return nil, fmt.Errorf("matmul_masked: %w: %s vs %s", tensor.ErrDTypeMismatch, a.DType(), b.DType())
	}

	m, k, n := a.Shape()[0], a.Shape()[1], b.Shape()[1]
	if b.Shape()[0] != k {
		return nil, fmt.Errorf("matmul_masked: %w: %v @ %v", tensor.ErrShapeMismatch, a.Shape(), b.Shape())
	}
	if !mask.shape.Equal(tensor.Shape{m, n}) {
		return nil, fmt.Errorf("matmul_masked: %w: mask %v for product [%d %d]", tensor.ErrShapeMismatch, mask.shape, m, n)
	}

	values := o.backend.SampledMatMul(a, b, mask.axis(0), mask.axis(1))

	o.logger.Debug("sparse matmul_masked", "m", m, "k", k, "n", n, "nnz", mask.NNZ())
	return &Tensor{indices: mask.indices, values: values, shape: mask.shape.Clone()}, nil
}

// MatMul computes s @ d for a sparse [m, k] s and a dense [k, n] d, returning
// a dense [m, n] tensor.
//
// The gradient with respect to d is dense. The gradient with respect to
// s.Values() covers exactly s's entries; wrap it with GradOf to obtain it as
// a sparse tensor.
func (o *Ops) MatMul(s *Tensor, d *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := o.checkDevice("matmul", s.values, d); err != nil {
		return nil, err
	}
	if s.NDim() != 2 {
		return nil, fmt.Errorf("matmul: %w: sparse operand must be 2-D, got %v", tensor.ErrShapeMismatch, s.shape)
	}
	if err := checkFloat2D("matmul", "dense operand", d); err != nil {
		return nil, err
	}
	if s.DType() != d.DType() {
		return nil, fmt.Errorf("matmul: %w: %s vs %s", tensor.ErrDTypeMismatch, s.DType(), d.DType())
	}
	if s.shape[1] != d.Shape()[0] {
		return nil, fmt.Errorf("matmul: %w: %v @ %v", tensor.ErrShapeMismatch, s.shape, d.Shape())
	}

	o.logger.Debug("sparse matmul", "m", s.shape[0], "k", s.shape[1], "n", d.Shape()[1], "nnz", s.NNZ())
	return o.backend.SparseMatMul(s.axis(0), s.axis(1), s.values, s.shape[0], d), nil
}
