package main

import (
	"math/rand"

	"github.com/born-ml/sgat/sparse"
	"github.com/born-ml/sgat/tensor"
)

// randomDense returns a [rows, cols] float64 tensor with uniform [-1, 1)
// entries.
func randomDense(rng *rand.Rand, rows, cols int) (*tensor.RawTensor, error) {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return tensor.FromValues(data, tensor.Shape{rows, cols}, tensor.CPU)
}

// randomPattern keeps each coordinate of a [rows, cols] grid with
// probability density. Coordinates come out in row-major order.
func randomPattern(rng *rand.Rand, rows, cols int, density float64) [][]int64 {
	pattern := [][]int64{{}, {}}
	for i := range rows {
		for j := range cols {
			if rng.Float64() < density {
				pattern[0] = append(pattern[0], int64(i))
				pattern[1] = append(pattern[1], int64(j))
			}
		}
	}
	return pattern
}

// randomSparse builds a [rows, cols] sparse tensor on a random pattern.
// With random false every value is one.
func randomSparse(sp *sparse.Ops, rng *rand.Rand, rows, cols int, density float64, random bool) (*sparse.Tensor, error) {
	pattern := randomPattern(rng, rows, cols, density)
	data := make([]float64, len(pattern[0]))
	for i := range data {
		data[i] = 1
		if random {
			data[i] = 2*rng.Float64() - 1
		}
	}
	values, err := tensor.FromValues(data, tensor.Shape{len(data)}, tensor.CPU)
	if err != nil {
		return nil, err
	}
	return sp.BuildFromSlices(pattern, values, tensor.Shape{rows, cols})
}
