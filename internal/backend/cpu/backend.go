// Package cpu implements the CPU backend: pure Go element-wise and reduction
// kernels, gonum BLAS for dense products, and the sparse kernels used by the
// sparse package.
package cpu

import (
	"fmt"

	"github.com/born-ml/sgat/internal/parallel"
	"github.com/born-ml/sgat/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend with the default parallel configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend using cfg for its row and entry level
// parallel kernels.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// ParallelConfig returns the parallel configuration used by the kernels.
func (cpu *CPUBackend) ParallelConfig() parallel.Config {
	return cpu.parallel
}

// cpuFor runs f over [0, n) with the backend's parallel configuration.
func cpuFor(cpu *CPUBackend, n int, f func(i int)) {
	parallel.For(n, f, cpu.parallel)
}

// checkDevice panics if any tensor does not live on this backend's device.
func (cpu *CPUBackend) checkDevice(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.Device() != cpu.device {
			panic(fmt.Sprintf("%s: %v: tensor on %s, backend on %s", op, tensor.ErrDeviceMismatch, t.Device(), cpu.device))
		}
	}
}

// checkSameDType panics unless all tensors share a's dtype.
func checkSameDType(op string, a *tensor.RawTensor, others ...*tensor.RawTensor) {
	for _, o := range others {
		if o.DType() != a.DType() {
			panic(fmt.Sprintf("%s: %v: %s vs %s", op, tensor.ErrDTypeMismatch, a.DType(), o.DType()))
		}
	}
}

// floatKernel runs f32 or f64 according to dt.
func floatKernel(op string, dt tensor.DataType, f32, f64 func()) {
	switch dt {
	case tensor.Float32:
		f32()
	case tensor.Float64:
		f64()
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, dt))
	}
}

// newResult allocates a zeroed tensor on the backend's device.
func (cpu *CPUBackend) newResult(op string, shape tensor.Shape, dt tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dt, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
