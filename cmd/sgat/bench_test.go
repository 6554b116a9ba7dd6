package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sgat/backend/cpu"
)

func smallBench() benchOptions {
	return benchOptions{M: 24, K: 8, N: 20, Density: 0.25, Repeat: 2, Seed: 1, Parallel: cpu.SequentialConfig()}
}

func TestRunBench(t *testing.T) {
	results, nnz, err := runBench(context.Background(), smallBench())
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Positive(t, nnz)

	methods := make([]string, len(results))
	for i, r := range results {
		methods[i] = r.Method
		assert.Positive(t, r.Mean, r.Method)
		assert.LessOrEqual(t, r.Min, r.Mean, r.Method)
		if !r.Dense {
			assert.Less(t, r.MaxDiff, 1e-12, r.Method)
			assert.Positive(t, r.Speedup, r.Method)
		}
	}
	assert.Equal(t, []string{"matmul_masked", "dense matmul * mask", "sparse matmul", "dense matmul"}, methods)
}

func TestRunBench_Parallel(t *testing.T) {
	opts := smallBench()
	opts.Parallel = cpu.ParallelConfig{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	results, _, err := runBench(context.Background(), opts)
	require.NoError(t, err)
	for _, r := range results {
		if !r.Dense {
			assert.Less(t, r.MaxDiff, 1e-12, r.Method)
		}
	}
}

func TestRunBench_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := runBench(ctx, smallBench())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxAbsDiff(t *testing.T) {
	assert.InDelta(t, 0.5, maxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 3}), 0)
	assert.InDelta(t, 0.0, maxAbsDiff(nil, nil), 0)
	assert.True(t, maxAbsDiff([]float64{1}, nil) > 1e300)
}

func TestRenderBenchTable(t *testing.T) {
	var buf bytes.Buffer
	renderBenchTable(&buf, []benchResult{
		{Method: "matmul_masked", MaxDiff: 1e-16, Speedup: 3},
		{Method: "dense matmul", Dense: true},
	})

	out := buf.String()
	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "matmul_masked")
	assert.Contains(t, out, "3.00x")
}

func TestBenchCmd(t *testing.T) {
	out, err := execute(t, "bench", "--bench-m=16", "--bench-k=4", "--bench-n=16", "--bench-density=0.5", "--bench-repeat=1")
	require.NoError(t, err)
	assert.Contains(t, out, "m=16 k=4 n=16")
	assert.Contains(t, out, "sparse matmul")
}
