package sparse

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// Sum reduces x over dims and returns a sparse result.
//
// Without dims every dimension is summed and the result has shape [] with at
// most one entry. With dims the summed axes are kept with extent 1. Entries
// whose coordinates collide once the summed axes are dropped are added
// together; the others stay distinct. Result entries are ordered
// lexicographically by coordinate.
//
// Negative dims count from the end. Repeated or out-of-range dims report
// tensor.ErrShapeMismatch.
func (o *Ops) Sum(x *Tensor, dims ...int) (*Tensor, error) {
	if err := o.checkDevice("sum", x.values); err != nil {
		return nil, err
	}

	ndim := x.NDim()
	reduced := make([]bool, ndim)
	for _, d := range dims {
		nd := d
		if nd < 0 {
			nd += ndim
		}
		if nd < 0 || nd >= ndim {
			return nil, fmt.Errorf("sum: %w: dimension %d out of range for %d-D tensor", tensor.ErrShapeMismatch, d, ndim)
		}
		if reduced[nd] {
			return nil, fmt.Errorf("sum: %w: dimension %d given more than once", tensor.ErrShapeMismatch, d)
		}
		reduced[nd] = true
	}

	var outShape tensor.Shape
	if len(dims) == 0 {
		outShape = tensor.Shape{}
		for d := range reduced {
			reduced[d] = true
		}
	} else {
		outShape = x.shape.Clone()
		for d, r := range reduced {
			if r {
				outShape[d] = 1
			}
		}
	}

	segments, indices, nOut := projectSegments(x, reduced)
	values := o.backend.ScatterAdd(segments, x.values, tensor.Shape{nOut})

	o.logger.Debug("sparse sum", "shape", x.shape, "dims", dims, "nnz_in", x.NNZ(), "nnz_out", nOut)
	return &Tensor{
		indices: indices,
		values:  values,
		shape:   outShape,
	}, nil
}

// projectSegments maps every entry of x onto the output by zeroing the
// reduced axes. Entries are grouped by their coordinates along the kept
// axes, compared as tuples so any logical shape is handled. It returns, per
// entry, the index of its output entry, the output index matrix in
// lexicographic order, and the number of output entries.
func projectSegments(x *Tensor, reduced []bool) (*tensor.RawTensor, *tensor.RawTensor, int) {
	nnz, ndim, idx := x.NNZ(), x.NDim(), x.indices.AsInt64()
	kept := make([]int, 0, ndim)
	for d, r := range reduced {
		if !r {
			kept = append(kept, d)
		}
	}

	order := x.sortedEntries(kept)
	segments := tensor.MustNewRaw(tensor.Shape{nnz}, tensor.Int64, x.indices.Device())
	seg := segments.AsInt64()
	var heads []int // first entry of each output group
	for i, e := range order {
		if i == 0 || compareAt(idx, nnz, kept, order[i-1], e) != 0 {
			heads = append(heads, e)
		}
		seg[e] = int64(len(heads) - 1)
	}

	nOut := len(heads)
	indices := tensor.MustNewRaw(tensor.Shape{ndim, nOut}, tensor.Int64, x.indices.Device())
	out := indices.AsInt64()
	for _, d := range kept {
		for g, e := range heads {
			out[d*nOut+g] = idx[d*nnz+e]
		}
	}
	return segments, indices, nOut
}
