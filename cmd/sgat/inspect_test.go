package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchSave_ThenInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.safetensors")

	_, err := execute(t, "bench", "--bench-m=10", "--bench-k=3", "--bench-n=6", "--bench-density=1", "--bench-repeat=1", "--save", path)
	require.NoError(t, err)

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mask")
	assert.Contains(t, out, "scores")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "m: 10")
	assert.Contains(t, out, "seed: 42")
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "missing.safetensors"))
	assert.Error(t, err)
}

func TestInspect_RequiresArgument(t *testing.T) {
	_, err := execute(t, "inspect")
	assert.Error(t, err)
}
