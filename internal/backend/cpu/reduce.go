package cpu

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// Sum reduces all elements to a 0-d tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	cpu.checkDevice("sum", x)
	result := cpu.newResult("sum", tensor.Shape{}, x.DType())

	floatKernel("sum", x.DType(),
		func() { result.AsFloat32()[0] = sumSlice(x.AsFloat32()) },
		func() { result.AsFloat64()[0] = sumSlice(x.AsFloat64()) })

	return result
}

func sumSlice[T tensor.Float](data []T) T {
	var s T
	for _, v := range data {
		s += v
	}
	return s
}

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	y := backend.SumDim(x, -1, true)   // [2, 3, 4] -> [2, 3, 1]
//	z := backend.SumDim(x, -1, false)  // [2, 3, 4] -> [2, 3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	cpu.checkDevice("sumdim", x)
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		outShape = append(outShape, shape[:dim]...)
		outShape = append(outShape, shape[dim+1:]...)
	}
	result := cpu.newResult("sumdim", outShape, x.DType())

	outer := tensor.Shape(shape[:dim]).NumElements()
	inner := tensor.Shape(shape[dim+1:]).NumElements()
	floatKernel("sumdim", x.DType(),
		func() { sumDimKernel(result.AsFloat32(), x.AsFloat32(), outer, shape[dim], inner) },
		func() { sumDimKernel(result.AsFloat64(), x.AsFloat64(), outer, shape[dim], inner) })

	return result
}

// sumDimKernel reduces the middle axis of an [outer, size, inner] layout.
// Each output accumulates in increasing order along the reduced axis.
func sumDimKernel[T tensor.Float](dst, src []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		out := dst[o*inner : (o+1)*inner]
		for j := 0; j < size; j++ {
			row := src[(o*size+j)*inner : (o*size+j+1)*inner]
			for i, v := range row {
				out[i] += v
			}
		}
	}
}
