package sparse

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// ToDense scatters the values of x into a dense tensor of x.Shape().
// The conversion is differentiable: the gradient of each value is the
// dense gradient at its coordinate.
func (o *Ops) ToDense(x *Tensor) (*tensor.RawTensor, error) {
	if err := o.checkDevice("to_dense", x.values); err != nil {
		return nil, err
	}
	if _, ok := denseSize(x.shape); !ok {
		return nil, fmt.Errorf("to_dense: %w: shape %v has too many elements for a dense tensor", tensor.ErrShapeMismatch, x.shape)
	}
	return o.backend.ScatterAdd(x.flatOffsets(), x.values, x.shape), nil
}

// FromDense creates a sparse tensor holding the non-zero elements of d in
// row-major order. The values are copied into a new leaf tensor, so the
// result is not connected to d on the gradient tape.
func (o *Ops) FromDense(d *tensor.RawTensor) (*Tensor, error) {
	if err := o.checkDevice("from_dense", d); err != nil {
		return nil, err
	}

	var (
		offsets []int64
		values  *tensor.RawTensor
		err     error
	)
	switch d.DType() {
	case tensor.Float32:
		offsets, values, err = nonZero(d.AsFloat32(), d.Device())
	case tensor.Float64:
		offsets, values, err = nonZero(d.AsFloat64(), d.Device())
	default:
		return nil, fmt.Errorf("from_dense: %w: expected float32 or float64, got %s", tensor.ErrDTypeMismatch, d.DType())
	}
	if err != nil {
		return nil, fmt.Errorf("from_dense: %w", err)
	}

	return &Tensor{
		indices: unravel(offsets, d.Shape(), d.Device()),
		values:  values,
		shape:   d.Shape().Clone(),
	}, nil
}

// unravel converts row-major offsets within shape into an index matrix
// shaped [len(shape), len(offsets)].
func unravel(offsets []int64, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	nnz := len(offsets)
	indices := tensor.MustNewRaw(tensor.Shape{len(shape), nnz}, tensor.Int64, device)
	idx := indices.AsInt64()
	for e, off := range offsets {
		for d := len(shape) - 1; d >= 0; d-- {
			extent := int64(shape[d])
			idx[d*nnz+e] = off % extent
			off /= extent
		}
	}
	return indices
}

func nonZero[T tensor.Float](data []T, device tensor.Device) ([]int64, *tensor.RawTensor, error) {
	var (
		offsets []int64
		kept    []T
	)
	for i, v := range data {
		if v != 0 {
			offsets = append(offsets, int64(i))
			kept = append(kept, v)
		}
	}
	values, err := tensor.FromValues(kept, tensor.Shape{len(kept)}, device)
	return offsets, values, err
}

// GradOf wraps grad, the gradient of x.Values(), as a sparse tensor with
// x's pattern. A nil grad yields zero values, for a tensor that did not
// influence the differentiated output.
func GradOf(x *Tensor, grad *tensor.RawTensor) (*Tensor, error) {
	if grad == nil {
		zeros, err := tensor.NewRaw(x.values.Shape(), x.DType(), x.Device())
		if err != nil {
			return nil, err
		}
		grad = zeros
	}
	if !grad.Shape().Equal(x.values.Shape()) {
		return nil, fmt.Errorf("grad: %w: gradient %v for values %v", tensor.ErrShapeMismatch, grad.Shape(), x.values.Shape())
	}
	if grad.Device() != x.Device() {
		return nil, fmt.Errorf("grad: %w: gradient on %s, tensor on %s", tensor.ErrDeviceMismatch, grad.Device(), x.Device())
	}
	return &Tensor{indices: x.indices, values: grad, shape: x.shape.Clone()}, nil
}
