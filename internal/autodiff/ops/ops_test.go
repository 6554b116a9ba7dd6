package ops_test

import (
	"testing"

	"github.com/born-ml/sgat/internal/autodiff/ops"
	"github.com/born-ml/sgat/internal/backend/cpu"
	"github.com/born-ml/sgat/internal/tensor"
)

// Helper to check float64 slices are equal within epsilon.
func float64Equal(a, b []float64, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func raw64(t *testing.T, data []float64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromValues(data, shape, tensor.CPU)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	return r
}

func index(t *testing.T, data ...int64) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromValues(data, tensor.Shape{len(data)}, tensor.CPU)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	return r
}

// TestAddOp_Backward tests AddOp backward pass with broadcasting.
func TestAddOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := raw64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := raw64(t, []float64{1, 1, 1}, tensor.Shape{1, 3})
	op := ops.NewAddOp(a, b, backend.Add(a, b))

	grads := op.Backward(raw64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}), backend)

	if !float64Equal(grads[0].AsFloat64(), []float64{1, 2, 3, 4, 5, 6}, 1e-12) {
		t.Errorf("grad_a = %v", grads[0].AsFloat64())
	}
	if !grads[1].Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("grad_b shape = %v, want [1 3]", grads[1].Shape())
	}
	if !float64Equal(grads[1].AsFloat64(), []float64{5, 7, 9}, 1e-12) {
		t.Errorf("grad_b = %v, want [5 7 9]", grads[1].AsFloat64())
	}
}

// TestMulOp_Backward tests MulOp backward pass.
func TestMulOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := raw64(t, []float64{2, 3}, tensor.Shape{2})
	b := raw64(t, []float64{5, 7}, tensor.Shape{2})
	op := ops.NewMulOp(a, b, backend.Mul(a, b))

	grads := op.Backward(raw64(t, []float64{1, 1}, tensor.Shape{2}), backend)

	if !float64Equal(grads[0].AsFloat64(), []float64{5, 7}, 1e-12) {
		t.Errorf("grad_a = %v, want [5 7]", grads[0].AsFloat64())
	}
	if !float64Equal(grads[1].AsFloat64(), []float64{2, 3}, 1e-12) {
		t.Errorf("grad_b = %v, want [2 3]", grads[1].AsFloat64())
	}
}

// TestSumDimOp_Backward tests that the reduced axis is restored.
func TestSumDimOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := raw64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	op := ops.NewSumDimOp(x, backend.SumDim(x, -1, false), -1, false)

	grads := op.Backward(raw64(t, []float64{10, 20}, tensor.Shape{2}), backend)

	if !grads[0].Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want [2 3]", grads[0].Shape())
	}
	want := []float64{10, 10, 10, 20, 20, 20}
	if !float64Equal(grads[0].AsFloat64(), want, 1e-12) {
		t.Errorf("grad = %v, want %v", grads[0].AsFloat64(), want)
	}
}

// TestTransposeOp_Backward tests that the gradient is permuted back.
func TestTransposeOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := raw64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	op := ops.NewTransposeOp(x, backend.Transpose(x, 1, 0), []int{1, 0})

	grads := op.Backward(raw64(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}), backend)

	if !grads[0].Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want [2 3]", grads[0].Shape())
	}
	if !float64Equal(grads[0].AsFloat64(), []float64{1, 3, 5, 2, 4, 6}, 1e-12) {
		t.Errorf("grad = %v", grads[0].AsFloat64())
	}
}

// TestSampledMatMulOp_Backward checks both dense gradients of a masked product.
//
//	A = [[1 2] [3 4]], B = [[5 6] [7 8]], entries (0,1) and (1,0)
//	outputGrad = [1 10]
//	grad_A = G @ B^T = [[6 8] [50 70]]
//	grad_B = A^T @ G = [[30 1] [40 2]]
func TestSampledMatMulOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := raw64(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := raw64(t, []float64{5, 6, 7, 8}, tensor.Shape{2, 2})
	rows, cols := index(t, 0, 1), index(t, 1, 0)
	out := backend.SampledMatMul(a, b, rows, cols)

	if !float64Equal(out.AsFloat64(), []float64{22, 43}, 1e-12) {
		t.Fatalf("forward = %v, want [22 43]", out.AsFloat64())
	}

	op := ops.NewSampledMatMulOp(a, b, rows, cols, out)
	if len(op.Inputs()) != 2 {
		t.Fatalf("Inputs() has %d tensors, want 2 (coordinates are not differentiable)", len(op.Inputs()))
	}

	grads := op.Backward(raw64(t, []float64{1, 10}, tensor.Shape{2}), backend)
	if !float64Equal(grads[0].AsFloat64(), []float64{6, 8, 50, 70}, 1e-12) {
		t.Errorf("grad_a = %v, want [6 8 50 70]", grads[0].AsFloat64())
	}
	if !float64Equal(grads[1].AsFloat64(), []float64{30, 1, 40, 2}, 1e-12) {
		t.Errorf("grad_b = %v, want [30 1 40 2]", grads[1].AsFloat64())
	}
}

// TestSparseMatMulOp_Backward checks the sparse value gradient and the dense gradient.
//
//	S = [[0 2] [3 4]] as entries (0,1)=2 (1,0)=3 (1,1)=4, D = [[1 2] [3 4]]
//	outputGrad = I
//	grad_values = [3 2 4], grad_D = S^T = [[0 3] [2 4]]
func TestSparseMatMulOp_Backward(t *testing.T) {
	backend := cpu.New()

	rows, cols := index(t, 0, 1, 1), index(t, 1, 0, 1)
	values := raw64(t, []float64{2, 3, 4}, tensor.Shape{3})
	dense := raw64(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	out := backend.SparseMatMul(rows, cols, values, 2, dense)

	if !float64Equal(out.AsFloat64(), []float64{6, 8, 15, 22}, 1e-12) {
		t.Fatalf("forward = %v, want [6 8 15 22]", out.AsFloat64())
	}

	op := ops.NewSparseMatMulOp(rows, cols, values, dense, out)
	grads := op.Backward(raw64(t, []float64{1, 0, 0, 1}, tensor.Shape{2, 2}), backend)

	if !float64Equal(grads[0].AsFloat64(), []float64{3, 2, 4}, 1e-12) {
		t.Errorf("grad_values = %v, want [3 2 4]", grads[0].AsFloat64())
	}
	if !float64Equal(grads[1].AsFloat64(), []float64{0, 3, 2, 4}, 1e-12) {
		t.Errorf("grad_dense = %v, want [0 3 2 4]", grads[1].AsFloat64())
	}
}

// TestScatterAddOp_Backward tests that colliding offsets each receive the gradient.
func TestScatterAddOp_Backward(t *testing.T) {
	backend := cpu.New()

	idx := index(t, 2, 0, 2)
	src := raw64(t, []float64{1, 2, 3}, tensor.Shape{3})
	out := backend.ScatterAdd(idx, src, tensor.Shape{3})

	if !float64Equal(out.AsFloat64(), []float64{2, 0, 4}, 1e-12) {
		t.Fatalf("forward = %v, want [2 0 4]", out.AsFloat64())
	}

	op := ops.NewScatterAddOp(idx, src, out)
	grads := op.Backward(raw64(t, []float64{10, 20, 30}, tensor.Shape{3}), backend)
	if !float64Equal(grads[0].AsFloat64(), []float64{30, 10, 30}, 1e-12) {
		t.Errorf("grad_src = %v, want [30 10 30]", grads[0].AsFloat64())
	}
}

// TestTakeOp_Backward tests that repeated indices accumulate.
func TestTakeOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := raw64(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	idx := index(t, 3, 3, 0)
	op := ops.NewTakeOp(x, idx, backend.Take(x, idx))

	grads := op.Backward(raw64(t, []float64{1, 2, 5}, tensor.Shape{3}), backend)
	if !grads[0].Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("grad shape = %v, want [2 2]", grads[0].Shape())
	}
	if !float64Equal(grads[0].AsFloat64(), []float64{5, 0, 0, 3}, 1e-12) {
		t.Errorf("grad_x = %v, want [5 0 0 3]", grads[0].AsFloat64())
	}
}
