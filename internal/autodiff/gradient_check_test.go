package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/sgat/internal/autodiff"
	"github.com/born-ml/sgat/internal/backend/cpu"
	"github.com/born-ml/sgat/internal/tensor"
)

// lossFunc builds a scalar loss from inputs using backend b.
type lossFunc func(b tensor.Backend, inputs []*tensor.RawTensor) *tensor.RawTensor

// numericalGradients estimates d(loss)/d(inputs[i]) with central differences.
func numericalGradients(f lossFunc, inputs []*tensor.RawTensor, epsilon float64) [][]float64 {
	plain := cpu.New()
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		data := in.AsFloat64()
		out[i] = make([]float64, len(data))
		for j := range data {
			orig := data[j]
			data[j] = orig + epsilon
			up := f(plain, inputs).AsFloat64()[0]
			data[j] = orig - epsilon
			down := f(plain, inputs).AsFloat64()[0]
			data[j] = orig
			out[i][j] = (up - down) / (2 * epsilon)
		}
	}
	return out
}

// checkGradients compares tape gradients of f against finite differences.
func checkGradients(t *testing.T, f lossFunc, inputs ...*tensor.RawTensor) {
	t.Helper()

	backend := autodiff.New(cpu.New())
	defer backend.Tape().Scope()()

	loss := f(backend, inputs)
	grads, err := autodiff.Grad(backend, loss, inputs...)
	if err != nil {
		t.Fatalf("Grad() error = %v", err)
	}

	numeric := numericalGradients(f, inputs, 1e-6)
	for i := range inputs {
		if !grads[i].Shape().Equal(inputs[i].Shape()) {
			t.Errorf("input %d: gradient shape %v, want %v", i, grads[i].Shape(), inputs[i].Shape())
			continue
		}
		for j, got := range grads[i].AsFloat64() {
			if math.Abs(got-numeric[i][j]) > 1e-5 {
				t.Errorf("input %d[%d]: autodiff %v vs numerical %v", i, j, got, numeric[i][j])
			}
		}
	}
}

func randomRaw(rng *rand.Rand, shape tensor.Shape) *tensor.RawTensor {
	raw := tensor.MustNewRaw(shape, tensor.Float64, tensor.CPU)
	data := raw.AsFloat64()
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return raw
}

func int64Raw(values ...int64) *tensor.RawTensor {
	raw, err := tensor.FromValues(values, tensor.Shape{len(values)}, tensor.CPU)
	if err != nil {
		panic(err)
	}
	return raw
}

// weightedSum returns sum(x * w), which makes every output element matter
// differently to the loss.
func weightedSum(b tensor.Backend, x, w *tensor.RawTensor) *tensor.RawTensor {
	return b.Sum(b.Mul(x, w))
}

func TestGradientCheck_MatMul(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := randomRaw(rng, tensor.Shape{3, 2})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weightedSum(b, b.MatMul(in[0], in[1]), w)
	}, randomRaw(rng, tensor.Shape{3, 4}), randomRaw(rng, tensor.Shape{4, 2}))
}

func TestGradientCheck_TransposeSumDim(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	w := randomRaw(rng, tensor.Shape{4, 1})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weightedSum(b, b.SumDim(b.Transpose(in[0]), 1, true), w)
	}, randomRaw(rng, tensor.Shape{3, 4}))
}

func TestGradientCheck_SampledMatMul(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows := int64Raw(0, 0, 2, 1, 2)
	cols := int64Raw(1, 3, 0, 1, 3)
	w := randomRaw(rng, tensor.Shape{5})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weightedSum(b, b.SampledMatMul(in[0], in[1], rows, cols), w)
	}, randomRaw(rng, tensor.Shape{3, 2}), randomRaw(rng, tensor.Shape{2, 4}))
}

func TestGradientCheck_SparseMatMul(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	rows := int64Raw(0, 2, 2, 3)
	cols := int64Raw(1, 0, 2, 1)
	w := randomRaw(rng, tensor.Shape{4, 5})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		return weightedSum(b, b.SparseMatMul(rows, cols, in[0], 4, in[1]), w)
	}, randomRaw(rng, tensor.Shape{4}), randomRaw(rng, tensor.Shape{3, 5}))
}

func TestGradientCheck_ScatterTake(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	index := int64Raw(4, 0, 4, 2)
	w := randomRaw(rng, tensor.Shape{2, 3})
	gather := int64Raw(1, 1, 5)
	v := randomRaw(rng, tensor.Shape{3})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		dense := b.ScatterAdd(index, in[0], tensor.Shape{2, 3})
		return b.Add(weightedSum(b, dense, w), weightedSum(b, b.Take(in[1], gather), v))
	}, randomRaw(rng, tensor.Shape{4}), randomRaw(rng, tensor.Shape{2, 3}))
}

// TestGradientCheck_SampledChain differentiates a masked product feeding a
// sparse-dense product, the building block of sparse attention.
func TestGradientCheck_SampledChain(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	rows := int64Raw(0, 1, 1, 2, 3)
	cols := int64Raw(0, 0, 2, 1, 3)
	w := randomRaw(rng, tensor.Shape{4, 2})

	checkGradients(t, func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
		scores := b.SampledMatMul(in[0], b.Transpose(in[1]), rows, cols)
		return weightedSum(b, b.SparseMatMul(rows, cols, scores, 4, in[2]), w)
	}, randomRaw(rng, tensor.Shape{4, 3}), randomRaw(rng, tensor.Shape{4, 3}), randomRaw(rng, tensor.Shape{4, 2}))
}
