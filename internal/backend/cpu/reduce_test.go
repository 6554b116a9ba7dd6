package cpu

import (
	"testing"

	"github.com/born-ml/sgat/internal/tensor"
)

func TestSum(t *testing.T) {
	backend := newTestBackend()
	x := mustRaw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	result := backend.Sum(x)
	if len(result.Shape()) != 0 {
		t.Fatalf("Expected shape [], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}
}

func TestSumDim_1D(t *testing.T) {
	backend := newTestBackend()
	x := mustRaw(t, []float64{1, 2, 3, 4}, tensor.Shape{4})

	// Sum along dim 0 with keepDim=true -> [1]
	result := backend.SumDim(x, 0, true)
	if !result.Shape().Equal(tensor.Shape{1}) {
		t.Errorf("Expected shape [1], got %v", result.Shape())
	}
	if result.AsFloat64()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat64()[0])
	}

	// Sum along dim 0 with keepDim=false -> []
	result = backend.SumDim(x, 0, false)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected shape [], got %v", result.Shape())
	}
}

func TestSumDim_3D(t *testing.T) {
	backend := newTestBackend()
	data := make([]float64, 24)
	for i := range data {
		data[i] = float64(i)
	}
	x := mustRaw(t, data, tensor.Shape{2, 3, 4})

	tests := []struct {
		name    string
		dim     int
		keepDim bool
		shape   tensor.Shape
		want    []float64
	}{
		{"dim0", 0, true, tensor.Shape{1, 3, 4}, []float64{12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 34}},
		{"dim1", 1, false, tensor.Shape{2, 4}, []float64{12, 15, 18, 21, 48, 51, 54, 57}},
		{"last", -1, true, tensor.Shape{2, 3, 1}, []float64{6, 22, 38, 54, 70, 86}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := backend.SumDim(x, tt.dim, tt.keepDim)
			if !result.Shape().Equal(tt.shape) {
				t.Fatalf("shape = %v, want %v", result.Shape(), tt.shape)
			}
			if !float64SliceEqual(result.AsFloat64(), tt.want, 0) {
				t.Errorf("SumDim = %v, want %v", result.AsFloat64(), tt.want)
			}
		})
	}
}

func TestSumDim_InvalidDim(t *testing.T) {
	backend := newTestBackend()
	x := mustRaw(t, []float64{1, 2}, tensor.Shape{2})
	expectPanic(t, "out of range", func() { backend.SumDim(x, 1, true) })
}
