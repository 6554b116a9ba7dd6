package cpu

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// MulScalar multiplies every element of x by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	cpu.checkDevice("mulscalar", x)
	result := cpu.newResult("mulscalar", x.Shape(), x.DType())
	floatKernel("mulscalar", x.DType(),
		func() {
			dst, src := result.AsFloat32(), x.AsFloat32()
			for i, v := range src {
				dst[i] = v * float32(s)
			}
		},
		func() {
			dst, src := result.AsFloat64(), x.AsFloat64()
			for i, v := range src {
				dst[i] = v * s
			}
		})
	return result
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float64) float64) *tensor.RawTensor {
	cpu.checkDevice(op, a, b)
	checkSameDType(op, a, b)

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	result := cpu.newResult(op, outShape, a.DType())

	floatKernel(op, a.DType(),
		func() {
			binaryKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast,
				func(x, y float32) float32 { return float32(f(float64(x), float64(y))) })
		},
		func() {
			binaryKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, f)
		})
	return result
}

// binaryKernel applies f element-wise, mapping broadcast offsets when needed.
func binaryKernel[T tensor.Float](dst, a, b []T, aShape, bShape, outShape tensor.Shape, needsBroadcast bool, f func(x, y T) T) {
	if !needsBroadcast {
		// Fast path: same shape
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
		return
	}
	for i := range dst {
		dst[i] = f(a[tensor.BroadcastOffset(i, aShape, outShape)], b[tensor.BroadcastOffset(i, bShape, outShape)])
	}
}
