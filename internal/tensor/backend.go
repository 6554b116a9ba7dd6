package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations and panic on
// invalid arguments (shape, dtype or device mismatch). Callers that need
// error returns validate before dispatching.
//
// Implementations:
//   - CPU: pure Go kernels with gonum BLAS for dense products
//   - AutodiffBackend: decorator that records operations on a gradient tape
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by s.
	MulScalar(x *RawTensor, s float64) *RawTensor

	// MatMul computes (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                           // total sum (0-d result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension

	// Sparse kernels. rows and cols are Int64 vectors of equal length nnz
	// describing the coordinates of a 2-D sparse matrix.

	// SampledMatMul computes out[e] = sum_k a[rows[e], k] * b[k, cols[e]]
	// without materializing a @ b. Result shape is [nnz].
	SampledMatMul(a, b, rows, cols *RawTensor) *RawTensor

	// SparseMatMul computes S @ dense where S is the m×K sparse matrix with
	// entries (rows[e], cols[e], values[e]). Result shape is [m, N].
	// Entries sharing a coordinate accumulate.
	SparseMatMul(rows, cols, values *RawTensor, m int, dense *RawTensor) *RawTensor

	// ScatterAdd creates a zero tensor of the given shape and adds src[e]
	// at flat offset index[e].
	ScatterAdd(index, src *RawTensor, shape Shape) *RawTensor

	// Take gathers out[e] = x.flat[index[e]]. Result shape is [len(index)].
	Take(x, index *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
