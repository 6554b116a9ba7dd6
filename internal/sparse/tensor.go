package sparse

import (
	"cmp"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/born-ml/sgat/internal/tensor"
)

// Tensor is a sparse tensor in coordinate (COO) format.
//
// Entry e sits at coordinate (indices[0, e], ..., indices[ndim-1, e]) and
// holds values[e]. A Tensor is only created through Ops, which validates the
// invariants; it is never modified afterwards.
type Tensor struct {
	indices *tensor.RawTensor // Int64 [ndim, nnz]
	values  *tensor.RawTensor // float [nnz], differentiable
	shape   tensor.Shape
}

// Indices returns the Int64 index matrix shaped [ndim, nnz].
//
// WARNING: the matrix is shared between tensors with the same pattern and
// must not be modified.
func (x *Tensor) Indices() *tensor.RawTensor {
	return x.indices
}

// Values returns the value vector. It is the same RawTensor the tensor was
// built from, so gradients computed for it are gradients of the sparse tensor.
func (x *Tensor) Values() *tensor.RawTensor {
	return x.values
}

// Shape returns the logical dense shape.
func (x *Tensor) Shape() tensor.Shape {
	return x.shape
}

// NDim returns the number of dimensions.
func (x *Tensor) NDim() int {
	return len(x.shape)
}

// NNZ returns the number of stored entries.
func (x *Tensor) NNZ() int {
	return x.values.NumElements()
}

// DType returns the element type of the values.
func (x *Tensor) DType() tensor.DataType {
	return x.values.DType()
}

// Device returns the device the tensor lives on.
func (x *Tensor) Device() tensor.Device {
	return x.values.Device()
}

// Coordinate returns the coordinate of entry e.
func (x *Tensor) Coordinate(e int) []int64 {
	nnz, idx := x.NNZ(), x.indices.AsInt64()
	coord := make([]int64, x.NDim())
	for d := range coord {
		coord[d] = idx[d*nnz+e]
	}
	return coord
}

// axis returns a copy of row d of the index matrix as an Int64 vector.
func (x *Tensor) axis(d int) *tensor.RawTensor {
	nnz := x.NNZ()
	row, err := tensor.FromValues(x.indices.AsInt64()[d*nnz:(d+1)*nnz], tensor.Shape{nnz}, x.indices.Device())
	if err != nil {
		panic(err) // length matches by construction
	}
	return row
}

// flatOffsets returns the row-major offset of every entry within shape.
// Callers must first check that the shape fits in an int with denseSize.
func (x *Tensor) flatOffsets() *tensor.RawTensor {
	nnz, ndim, idx := x.NNZ(), x.NDim(), x.indices.AsInt64()
	offsets := tensor.MustNewRaw(tensor.Shape{nnz}, tensor.Int64, x.indices.Device())
	out := offsets.AsInt64()
	for e := range out {
		off := int64(0)
		for d := 0; d < ndim; d++ {
			off = off*int64(x.shape[d]) + idx[d*nnz+e]
		}
		out[e] = off
	}
	return offsets
}

// denseSize returns the element count of shape, or false when it does not
// fit in an int.
func denseSize(shape tensor.Shape) (int, bool) {
	n := uint64(1)
	for _, d := range shape {
		hi, lo := bits.Mul64(n, uint64(d))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		n = lo
	}
	return int(n), true
}

// compareAt orders entries a and b lexicographically by their coordinates
// along dims.
func compareAt(idx []int64, nnz int, dims []int, a, b int) int {
	for _, d := range dims {
		if c := cmp.Compare(idx[d*nnz+a], idx[d*nnz+b]); c != 0 {
			return c
		}
	}
	return 0
}

// sortedEntries returns the entry numbers of x ordered by their coordinates
// along dims. Entries with equal coordinates keep their stored order.
func (x *Tensor) sortedEntries(dims []int) []int {
	nnz, idx := x.NNZ(), x.indices.AsInt64()
	order := make([]int, nnz)
	for e := range order {
		order[e] = e
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return compareAt(idx, nnz, dims, a, b)
	})
	return order
}

// String returns a human-readable description.
func (x *Tensor) String() string {
	return fmt.Sprintf("SparseTensor[%s]%v nnz=%d on %s", x.DType(), x.shape, x.NNZ(), x.Device())
}
