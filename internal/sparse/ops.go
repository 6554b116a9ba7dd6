package sparse

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/sgat/internal/tensor"
)

// Ops dispatches sparse operations to a backend.
//
// Every operand must live on the backend's device. Operations validate
// their arguments and return wrapped sentinel errors, so the backend
// kernels they call never see invalid input.
type Ops struct {
	backend tensor.Backend
	logger  *slog.Logger
}

// Option configures an Ops engine.
type Option func(*Ops)

// WithLogger sets the logger used for debug records. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Ops) {
		o.logger = logger
	}
}

// New creates an Ops engine bound to backend.
// Pass an autodiff backend to make the operations differentiable.
func New(backend tensor.Backend, opts ...Option) *Ops {
	o := &Ops{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Backend returns the backend operations dispatch to.
func (o *Ops) Backend() tensor.Backend {
	return o.backend
}

// Build creates a sparse tensor from an Int64 index matrix shaped
// [len(shape), nnz], a float value vector shaped [nnz] and a shape.
//
// values is stored by reference so that gradients flow back to it.
func (o *Ops) Build(indices, values *tensor.RawTensor, shape tensor.Shape) (*Tensor, error) {
	if err := o.checkDevice("build", indices, values); err != nil {
		return nil, err
	}
	if indices.DType() != tensor.Int64 {
		return nil, fmt.Errorf("build: %w: indices must be int64, got %s", tensor.ErrDTypeMismatch, indices.DType())
	}
	if !values.DType().IsFloat() {
		return nil, fmt.Errorf("build: %w: values must be float32 or float64, got %s", tensor.ErrDTypeMismatch, values.DType())
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	vShape, iShape := values.Shape(), indices.Shape()
	if len(vShape) != 1 {
		return nil, fmt.Errorf("build: %w: values must be 1-D, got %v", tensor.ErrShapeMismatch, vShape)
	}
	nnz := vShape[0]
	if len(iShape) != 2 || iShape[0] != len(shape) || iShape[1] != nnz {
		return nil, fmt.Errorf("build: %w: indices %v do not match [%d, %d] for shape %v",
			tensor.ErrShapeMismatch, iShape, len(shape), nnz, shape)
	}

	x := &Tensor{indices: indices, values: values, shape: shape.Clone()}
	if err := validateCoordinates(x); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	o.logger.Debug("sparse build", "shape", shape, "nnz", nnz, "dtype", values.DType())
	return x, nil
}

// BuildFromSlices is like Build but takes the index matrix as one []int64
// per dimension, each of length nnz.
func (o *Ops) BuildFromSlices(indices [][]int64, values *tensor.RawTensor, shape tensor.Shape) (*Tensor, error) {
	nnz := values.NumElements()
	flat := make([]int64, 0, len(indices)*nnz)
	for d, row := range indices {
		if len(row) != nnz {
			return nil, fmt.Errorf("build: %w: index row %d has %d entries, values have %d",
				tensor.ErrShapeMismatch, d, len(row), nnz)
		}
		flat = append(flat, row...)
	}

	raw, err := tensor.FromValues(flat, tensor.Shape{len(indices), nnz}, values.Device())
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return o.Build(raw, values, shape)
}

// Values returns the value vector of x, identical to the one it was built from.
func (o *Ops) Values(x *Tensor) *tensor.RawTensor {
	return x.values
}

// validateCoordinates checks that every coordinate lies within x.shape and
// that no coordinate occurs twice.
func validateCoordinates(x *Tensor) error {
	nnz, idx := x.NNZ(), x.indices.AsInt64()
	for d, extent := range x.shape {
		for e := 0; e < nnz; e++ {
			if c := idx[d*nnz+e]; c < 0 || c >= int64(extent) {
				return fmt.Errorf("%w: entry %d has index %d in dimension %d of extent %d",
					ErrOutOfRangeCoordinate, e, c, d, extent)
			}
		}
	}

	all := make([]int, x.NDim())
	for d := range all {
		all[d] = d
	}
	order := x.sortedEntries(all)
	for i := 1; i < len(order); i++ {
		if compareAt(idx, nnz, all, order[i-1], order[i]) == 0 {
			first, e := order[i-1], order[i] // stable: first < e
			return fmt.Errorf("%w: entries %d and %d both at %v",
				ErrDuplicateCoordinate, first, e, x.Coordinate(e))
		}
	}
	return nil
}

// checkDevice reports ErrDeviceMismatch unless every tensor lives on the
// backend's device.
func (o *Ops) checkDevice(op string, ts ...*tensor.RawTensor) error {
	want := o.backend.Device()
	for _, t := range ts {
		if t.Device() != want {
			return fmt.Errorf("%s: %w: tensor on %s, backend %s on %s",
				op, tensor.ErrDeviceMismatch, t.Device(), o.backend.Name(), want)
		}
	}
	return nil
}

// checkFloat2D validates a dense matrix operand.
func checkFloat2D(op, name string, t *tensor.RawTensor) error {
	if !t.DType().IsFloat() {
		return fmt.Errorf("%s: %w: %s must be float32 or float64, got %s", op, tensor.ErrDTypeMismatch, name, t.DType())
	}
	if len(t.Shape()) != 2 {
		return fmt.Errorf("%s: %w: %s must be 2-D, got %v", op, tensor.ErrShapeMismatch, name, t.Shape())
	}
	return nil
}
