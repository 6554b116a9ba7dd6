package cpu

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// Reshape returns a copy of t with a new shape and the same number of elements.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	cpu.checkDevice("reshape", t)
	result, err := t.Clone().View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose permutes the dimensions of t. With no axes the dimensions are
// reversed (standard 2D transpose).
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	cpu.checkDevice("transpose", t)
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	result := cpu.newResult("transpose", outShape, t.DType())

	switch t.DType() {
	case tensor.Float32:
		permute(result.AsFloat32(), t.AsFloat32(), shape, outShape, axes)
	case tensor.Float64:
		permute(result.AsFloat64(), t.AsFloat64(), shape, outShape, axes)
	case tensor.Int64:
		permute(result.AsInt64(), t.AsInt64(), shape, outShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

// permute writes dst[out coords] = src[coords permuted back through axes].
func permute[T tensor.DType](dst, src []T, srcShape, dstShape tensor.Shape, axes []int) {
	srcStrides := srcShape.ComputeStrides()
	coord := make([]int, len(dstShape))
	for i := range dst {
		srcIdx := 0
		for d, c := range coord {
			srcIdx += c * srcStrides[axes[d]]
		}
		dst[i] = src[srcIdx]

		// Advance the output coordinate (row-major odometer).
		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < dstShape[d] {
				break
			}
			coord[d] = 0
		}
	}
}
