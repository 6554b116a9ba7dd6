package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/sgat/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N), computed with BLAS GEMM.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	cpu.checkDevice("matmul", a, b)
	checkSameDType("matmul", a, b)

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: %v: [%d,%d] @ [%d,%d]", tensor.ErrShapeMismatch, m, k, kAlt, n))
	}

	result := cpu.newResult("matmul", tensor.Shape{m, n}, a.DType())
	if m == 0 || n == 0 || k == 0 {
		return result
	}

	floatKernel("matmul", a.DType(),
		func() {
			blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
				blas32.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat32()},
				blas32.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat32()},
				0,
				blas32.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat32()})
		},
		func() {
			blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
				blas64.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat64()},
				blas64.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat64()},
				0,
				blas64.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat64()})
		})

	return result
}
