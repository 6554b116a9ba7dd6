package ops

import (
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	// NumPy broadcasting aligns shapes from the right: leading dims are summed away.
	for len(grad.Shape()) > len(targetShape) {
		grad = backend.SumDim(grad, 0, false)
	}

	for i, dim := range targetShape {
		if dim == 1 && grad.Shape()[i] != 1 {
			grad = backend.SumDim(grad, i, true)
		}
	}

	if !grad.Shape().Equal(targetShape) {
		panic(fmt.Sprintf("reduceBroadcast: cannot reduce %v to %v", grad.Shape(), targetShape))
	}
	return grad
}

// broadcastTo expands t to targetShape by adding it to a zero tensor.
func broadcastTo(t *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if t.Shape().Equal(targetShape) {
		return t
	}
	zeros := tensor.MustNewRaw(targetShape, t.DType(), backend.Device())
	return backend.Add(zeros, t)
}

// keepDimShape returns shape with extent 1 inserted at dim.
func keepDimShape(shape tensor.Shape, dim int) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape)+1)
	out = append(out, shape[:dim]...)
	out = append(out, 1)
	return append(out, shape[dim:]...)
}

// inversePermutation returns q with q[axes[i]] = i.
func inversePermutation(axes []int) []int {
	inv := make([]int, len(axes))
	for i, ax := range axes {
		inv[ax] = i
	}
	return inv
}
