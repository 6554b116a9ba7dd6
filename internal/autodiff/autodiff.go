// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient
// tracking capabilities through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: Records operations during forward pass
//   - Operation interface: Each op (Add, MatMul, SampledMatMul, ...) implements backward pass
//   - Reverse-mode AD: Computes gradients efficiently using chain rule
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	defer backend.Tape().Scope()()
//
//	x, _ := tensor.FromSlice([]float64{2}, tensor.Shape{1}, backend)
//	y := backend.Mul(x.Raw(), x.Raw()) // y = x²
//
//	grads, _ := autodiff.Grad(backend, backend.Sum(y), x.Raw())
//	fmt.Println(grads[0].AsFloat64()) // dy/dx = 2x = [4]
package autodiff

import (
	"github.com/born-ml/sgat/internal/autodiff/ops"
	"github.com/born-ml/sgat/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend (CPU, ...)
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// record adds op to the tape if it is recording.
func (b *AutodiffBackend[B]) record(op ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op)
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.record(ops.NewAddOp(a, c, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	b.record(ops.NewMulOp(a, c, result))
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, s)
	b.record(ops.NewMulScalarOp(x, result, s))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.record(ops.NewMatMulOp(a, c, result))
	return result
}

// Reshape reshapes a tensor and records the operation.
//
// The backend returns a new tensor, so without recording the gradient would
// stop at the reshaped copy and never reach the original.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose transposes a tensor and records the operation.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	// Handle default axes (reverse all dimensions)
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	b.record(ops.NewTransposeOp(t, result, axes))
	return result
}

// Sum reduces all elements and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	b.record(ops.NewSumOp(x, result))
	return result
}

// SumDim sums along a dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	b.record(ops.NewSumDimOp(x, result, dim, keepDim))
	return result
}

// SampledMatMul computes the masked product and records the operation.
func (b *AutodiffBackend[B]) SampledMatMul(a, c, rows, cols *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.SampledMatMul(a, c, rows, cols)
	b.record(ops.NewSampledMatMulOp(a, c, rows, cols, result))
	return result
}

// SparseMatMul computes sparse @ dense and records the operation.
func (b *AutodiffBackend[B]) SparseMatMul(rows, cols, values *tensor.RawTensor, m int, dense *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.SparseMatMul(rows, cols, values, m, dense)
	b.record(ops.NewSparseMatMulOp(rows, cols, values, dense, result))
	return result
}

// ScatterAdd scatters values into a dense tensor and records the operation.
func (b *AutodiffBackend[B]) ScatterAdd(index, src *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.ScatterAdd(index, src, shape)
	b.record(ops.NewScatterAddOp(index, src, result))
	return result
}

// Take gathers flat elements and records the operation.
func (b *AutodiffBackend[B]) Take(x, index *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Take(x, index)
	b.record(ops.NewTakeOp(x, index, result))
	return result
}
