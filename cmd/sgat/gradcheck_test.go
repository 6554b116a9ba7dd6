package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sgat/backend/cpu"
)

func TestRunGradCheck(t *testing.T) {
	for _, seed := range []int64{1, 42, 2025} {
		results, err := runGradCheck(seed, cpu.SequentialConfig())
		require.NoError(t, err)
		require.Len(t, results, 5)

		for _, r := range results {
			assert.Less(t, r.MaxDiff, 1e-12, "seed %d %s/%s", seed, r.Check, r.Input)
		}
	}
}

func TestRunGradCheck_Parallel(t *testing.T) {
	results, err := runGradCheck(7, cpu.ParallelConfig{Enabled: true, NumWorkers: 3, MinChunkSize: 1})
	require.NoError(t, err)
	for _, r := range results {
		assert.Less(t, r.MaxDiff, 1e-12, "%s/%s", r.Check, r.Input)
	}
}

func TestGradCheckCmd(t *testing.T) {
	out, err := execute(t, "gradcheck", "--gradcheck-seed=3")
	require.NoError(t, err)
	assert.Contains(t, out, "matmul_masked")
	assert.NotContains(t, out, "FAIL")
}

func TestRenderGradCheckTable(t *testing.T) {
	var buf bytes.Buffer
	renderGradCheckTable(&buf, []gradCheckResult{
		{Check: "matmul", Input: "dense", MaxDiff: 1e-16},
		{Check: "sum", Input: "values", MaxDiff: 0.5},
	}, 1e-9)

	out := buf.String()
	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "ok")
	assert.Equal(t, 1, strings.Count(out, "FAIL"))
}
