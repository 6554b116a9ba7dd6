// Package sparse implements COO sparse tensors whose values take part in
// reverse-mode automatic differentiation.
//
// A Tensor stores an Int64 index matrix shaped [ndim, nnz] (one row per
// axis, one column per entry), a value vector shaped [nnz] and a logical
// shape. Indices and shape are immutable metadata; only the values flow
// through the gradient tape.
//
// All operations go through an Ops engine bound to one backend. When that
// backend is an autodiff.AutodiffBackend, every operation is recorded and
// gradients reach the value vectors and dense operands:
//
//	backend := autodiff.New(cpu.New())
//	defer backend.Tape().Scope()()
//	sp := sparse.New(backend)
//
//	mask, _ := sp.BuildFromSlices([][]int64{{0, 1}, {1, 0}}, ones, tensor.Shape{2, 2})
//	scores, _ := sp.MatMulMasked(q, kT, mask)  // sparse, mask pattern
//	out, _ := sp.MatMul(scores, v)             // dense
//	grads, _ := autodiff.Grad(backend, backend.Sum(out), q, kT, v)
//
// Masked products are evaluated entry by entry and never materialize the
// dense product, in either the forward or the backward pass.
package sparse
