package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/sgat/internal/tensor"
)

// coordinates validates a (rows, cols) coordinate pair list against an
// m×k extent and returns the raw index slices.
func coordinates(op string, rows, cols *tensor.RawTensor, m, k int) ([]int64, []int64) {
	if rows.DType() != tensor.Int64 || cols.DType() != tensor.Int64 {
		panic(fmt.Sprintf("%s: %v: coordinates must be int64", op, tensor.ErrDTypeMismatch))
	}
	r, c := rows.AsInt64(), cols.AsInt64()
	if len(r) != len(c) {
		panic(fmt.Sprintf("%s: %v: %d rows vs %d cols", op, tensor.ErrShapeMismatch, len(r), len(c)))
	}
	for e := range r {
		if r[e] < 0 || int(r[e]) >= m || c[e] < 0 || int(c[e]) >= k {
			panic(fmt.Sprintf("%s: coordinate (%d, %d) out of range for [%d, %d]", op, r[e], c[e], m, k))
		}
	}
	return r, c
}

// SampledMatMul computes out[e] = sum_k a[rows[e], k] * b[k, cols[e]].
// Only the requested entries of a @ b are evaluated, each as one BLAS dot
// product of a row of a with a strided column of b.
func (cpu *CPUBackend) SampledMatMul(a, b, rows, cols *tensor.RawTensor) *tensor.RawTensor {
	cpu.checkDevice("sampledmatmul", a, b, rows, cols)
	checkSameDType("sampledmatmul", a, b)

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 || aShape[1] != bShape[0] {
		panic(fmt.Sprintf("sampledmatmul: %v: %v @ %v", tensor.ErrShapeMismatch, aShape, bShape))
	}
	m, k, n := aShape[0], aShape[1], bShape[1]
	r, c := coordinates("sampledmatmul", rows, cols, m, n)

	result := cpu.newResult("sampledmatmul", tensor.Shape{len(r)}, a.DType())
	if k == 0 {
		return result
	}

	floatKernel("sampledmatmul", a.DType(),
		func() {
			ad, bd, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
			cpuFor(cpu, len(r), func(e int) {
				i, j := int(r[e]), int(c[e])
				out[e] = blas32.Dot(
					blas32.Vector{N: k, Data: ad[i*k : (i+1)*k], Inc: 1},
					blas32.Vector{N: k, Data: bd[j:], Inc: n})
			})
		},
		func() {
			ad, bd, out := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
			cpuFor(cpu, len(r), func(e int) {
				i, j := int(r[e]), int(c[e])
				out[e] = blas64.Dot(
					blas64.Vector{N: k, Data: ad[i*k : (i+1)*k], Inc: 1},
					blas64.Vector{N: k, Data: bd[j:], Inc: n})
			})
		})

	return result
}

// SparseMatMul computes S @ dense for the m×K sparse matrix S given by
// (rows, cols, values). Entries are bucketed by row so that every output
// row is owned by exactly one worker; within a row, contributions are
// accumulated in entry order with BLAS axpy.
func (cpu *CPUBackend) SparseMatMul(rows, cols, values *tensor.RawTensor, m int, dense *tensor.RawTensor) *tensor.RawTensor {
	cpu.checkDevice("sparsematmul", rows, cols, values, dense)
	checkSameDType("sparsematmul", values, dense)

	dShape := dense.Shape()
	if len(dShape) != 2 {
		panic(fmt.Sprintf("sparsematmul: dense operand must be 2D, got %v", dShape))
	}
	k, n := dShape[0], dShape[1]
	r, c := coordinates("sparsematmul", rows, cols, m, k)
	if values.NumElements() != len(r) {
		panic(fmt.Sprintf("sparsematmul: %v: %d values for %d coordinates", tensor.ErrShapeMismatch, values.NumElements(), len(r)))
	}

	result := cpu.newResult("sparsematmul", tensor.Shape{m, n}, dense.DType())
	if n == 0 {
		return result
	}
	rowPtr, order := bucketByRow(r, m)

	floatKernel("sparsematmul", dense.DType(),
		func() {
			v, d, out := values.AsFloat32(), dense.AsFloat32(), result.AsFloat32()
			cpuFor(cpu, m, func(i int) {
				y := blas32.Vector{N: n, Data: out[i*n : (i+1)*n], Inc: 1}
				for _, e := range order[rowPtr[i]:rowPtr[i+1]] {
					j := int(c[e])
					blas32.Axpy(v[e], blas32.Vector{N: n, Data: d[j*n : (j+1)*n], Inc: 1}, y)
				}
			})
		},
		func() {
			v, d, out := values.AsFloat64(), dense.AsFloat64(), result.AsFloat64()
			cpuFor(cpu, m, func(i int) {
				y := blas64.Vector{N: n, Data: out[i*n : (i+1)*n], Inc: 1}
				for _, e := range order[rowPtr[i]:rowPtr[i+1]] {
					j := int(c[e])
					blas64.Axpy(v[e], blas64.Vector{N: n, Data: d[j*n : (j+1)*n], Inc: 1}, y)
				}
			})
		})

	return result
}

// bucketByRow returns CSR row pointers and the entry permutation that lists
// entries row by row, preserving entry order within each row.
func bucketByRow(rows []int64, m int) ([]int, []int) {
	rowPtr := make([]int, m+1)
	for _, r := range rows {
		rowPtr[r+1]++
	}
	for i := 0; i < m; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	next := append([]int(nil), rowPtr[:m]...)
	order := make([]int, len(rows))
	for e, r := range rows {
		order[next[r]] = e
		next[r]++
	}
	return rowPtr, order
}

// ScatterAdd creates a zero tensor of the given shape and adds src[e] at
// flat offset index[e]. Colliding offsets accumulate in entry order.
func (cpu *CPUBackend) ScatterAdd(index, src *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	cpu.checkDevice("scatteradd", index, src)
	if index.DType() != tensor.Int64 {
		panic(fmt.Sprintf("scatteradd: %v: index must be int64", tensor.ErrDTypeMismatch))
	}
	idx := index.AsInt64()
	if len(idx) != src.NumElements() {
		panic(fmt.Sprintf("scatteradd: %v: %d indices for %d values", tensor.ErrShapeMismatch, len(idx), src.NumElements()))
	}

	result := cpu.newResult("scatteradd", shape, src.DType())
	size := shape.NumElements()
	for _, off := range idx {
		if off < 0 || int(off) >= size {
			panic(fmt.Sprintf("scatteradd: offset %d out of range for %v", off, shape))
		}
	}

	floatKernel("scatteradd", src.DType(),
		func() { scatterAddKernel(result.AsFloat32(), src.AsFloat32(), idx) },
		func() { scatterAddKernel(result.AsFloat64(), src.AsFloat64(), idx) })
	return result
}

func scatterAddKernel[T tensor.Float](dst, src []T, idx []int64) {
	for e, off := range idx {
		dst[off] += src[e]
	}
}

// Take gathers out[e] = x.flat[index[e]].
func (cpu *CPUBackend) Take(x, index *tensor.RawTensor) *tensor.RawTensor {
	cpu.checkDevice("take", x, index)
	if index.DType() != tensor.Int64 {
		panic(fmt.Sprintf("take: %v: index must be int64", tensor.ErrDTypeMismatch))
	}
	idx := index.AsInt64()
	size := x.NumElements()
	for _, off := range idx {
		if off < 0 || int(off) >= size {
			panic(fmt.Sprintf("take: offset %d out of range for %v", off, x.Shape()))
		}
	}

	result := cpu.newResult("take", tensor.Shape{len(idx)}, x.DType())
	switch x.DType() {
	case tensor.Float32:
		takeKernel(cpu, result.AsFloat32(), x.AsFloat32(), idx)
	case tensor.Float64:
		takeKernel(cpu, result.AsFloat64(), x.AsFloat64(), idx)
	case tensor.Int64:
		takeKernel(cpu, result.AsInt64(), x.AsInt64(), idx)
	default:
		panic(fmt.Sprintf("take: unsupported dtype %s", x.DType()))
	}
	return result
}

func takeKernel[T tensor.DType](cpu *CPUBackend, dst, src []T, idx []int64) {
	cpuFor(cpu, len(idx), func(e int) {
		dst[e] = src[idx[e]]
	})
}
