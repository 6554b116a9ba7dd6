package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sgat/internal/backend/cpu"
	"github.com/born-ml/sgat/internal/sparse"
	"github.com/born-ml/sgat/internal/tensor"
)

func newOps() *sparse.Ops {
	return sparse.New(cpu.New())
}

func mustBuild(t *testing.T, sp *sparse.Ops, indices [][]int64, values *tensor.RawTensor, shape tensor.Shape) *sparse.Tensor {
	t.Helper()
	x, err := sp.BuildFromSlices(indices, values, shape)
	require.NoError(t, err)
	return x
}

func mustValues[T tensor.DType](t *testing.T, data ...T) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromValues(data, tensor.Shape{len(data)}, tensor.CPU)
	require.NoError(t, err)
	return raw
}

func fixtures(t *testing.T, sp *sparse.Ops) map[string]*sparse.Tensor {
	t.Helper()
	mask := mustBuild(t, sp, [][]int64{{0, 1, 2}, {4, 0, 6}}, mustValues[float64](t, 1, -2.5, 3), tensor.Shape{3, 7})
	total, err := sp.Sum(mask)
	require.NoError(t, err)

	return map[string]*sparse.Tensor{
		"attn.mask": mask,
		"cube":      mustBuild(t, sp, [][]int64{{1, 0}, {0, 2}, {3, 1}}, mustValues[float32](t, 0.5, 7), tensor.Shape{2, 3, 4}),
		"empty":     mustBuild(t, sp, [][]int64{{}, {}}, mustValues[float64](t), tensor.Shape{5, 5}),
		"total":     total,
	}
}

func TestRoundTrip(t *testing.T) {
	sp := newOps()
	want := fixtures(t, sp)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want, map[string]string{"source": "test"}))

	f, err := Read(&buf, sp)
	require.NoError(t, err)
	assert.Equal(t, []string{"attn.mask", "cube", "empty", "total"}, f.Names())
	assert.Equal(t, map[string]string{"source": "test"}, f.Metadata)

	for name, w := range want {
		got := f.Tensors[name]
		require.NotNil(t, got, name)
		if diff := cmp.Diff(w.Shape(), got.Shape()); diff != "" {
			t.Errorf("%s shape mismatch (-want +got):\n%s", name, diff)
		}
		assert.Equal(t, w.DType(), got.DType(), name)
		assert.Equal(t, w.Indices().AsInt64(), got.Indices().AsInt64(), name)
		assert.Equal(t, w.Values().Data(), got.Values().Data(), name)
	}
}

func TestRoundTrip_EmptyTensorsRepeated(t *testing.T) {
	sp := newOps()
	tensors := fixtures(t, sp)

	for i := range 50 {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, tensors, nil))
		f, err := Read(&buf, sp)
		require.NoError(t, err, "run %d", i)
		assert.Equal(t, 0, f.Tensors["empty"].NNZ())
		assert.Equal(t, 1, f.Tensors["total"].NNZ())
	}
}

func TestSaveLoadFile(t *testing.T) {
	sp := newOps()
	path := filepath.Join(t.TempDir(), "mask.safetensors")
	x := mustBuild(t, sp, [][]int64{{0, 2}, {1, 1}}, mustValues[float64](t, 4, 5), tensor.Shape{3, 2})

	require.NoError(t, SaveFile(path, map[string]*sparse.Tensor{"m": x}, nil))

	f, err := LoadFile(path, sp)
	require.NoError(t, err)
	require.Contains(t, f.Tensors, "m")
	assert.Equal(t, []float64{4, 5}, f.Tensors["m"].Values().AsFloat64())
	assert.Empty(t, f.Metadata)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.safetensors"), newOps())
	assert.Error(t, err)
}

func TestWrite_Rejects(t *testing.T) {
	sp := newOps()
	x := mustBuild(t, sp, [][]int64{{0}}, mustValues[float64](t, 1), tensor.Shape{2})

	for _, key := range []string{"format", "sha256", "x.shape"} {
		err := Write(&bytes.Buffer{}, map[string]*sparse.Tensor{"x": x}, map[string]string{key: "v"})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, key)
	}

	for _, name := range []string{"", "__metadata__", "../x", "a/b", "nul\x00"} {
		err := Write(&bytes.Buffer{}, map[string]*sparse.Tensor{name: x}, nil)
		assert.Error(t, err, "name %q", name)
	}
}

func TestRead_ChecksumMismatch(t *testing.T) {
	sp := newOps()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, fixtures(t, sp), nil))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, err := Read(bytes.NewReader(data), sp)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestRead_InvalidHeader(t *testing.T) {
	sp := newOps()

	_, err := Read(bytes.NewReader([]byte{1, 2}), sp)
	assert.ErrorIs(t, err, ErrInvalidHeader, "short size")

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(5)))
	buf.WriteString("{not}")
	_, err = Read(&buf, sp)
	assert.ErrorIs(t, err, ErrInvalidHeader, "bad json")

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	_, err = Read(&buf, sp)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestRead_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	dense := map[string]*tensor.RawTensor{"w": mustValues[float32](t, 1, 2)}
	require.NoError(t, writeDense(&buf, dense, map[string]string{}))

	_, err := Read(&buf, newOps())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRead_MissingEntries(t *testing.T) {
	indices, err := tensor.FromValues([]int64{0, 1}, tensor.Shape{1, 2}, tensor.CPU)
	require.NoError(t, err)
	values := mustValues[float64](t, 1, 2)

	tests := []struct {
		name  string
		dense map[string]*tensor.RawTensor
		meta  map[string]string
	}{
		{"no values", map[string]*tensor.RawTensor{"x.indices": indices}, map[string]string{"x.shape": "[2]"}},
		{"no indices", map[string]*tensor.RawTensor{"x.values": values}, map[string]string{"x.shape": "[2]"}},
		{"no shape", map[string]*tensor.RawTensor{"x.indices": indices, "x.values": values}, map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.meta[formatKey] = FormatName
			require.NoError(t, writeDense(&buf, tt.dense, tt.meta))

			_, err := Read(&buf, newOps())
			assert.ErrorIs(t, err, ErrMissingTensor)
		})
	}
}

func TestRead_InvalidCoordinates(t *testing.T) {
	values := mustValues[float64](t, 1, 2)
	tests := []struct {
		name    string
		indices []int64
		wantErr error
	}{
		{"duplicate", []int64{1, 1}, sparse.ErrDuplicateCoordinate},
		{"out of range", []int64{0, 2}, sparse.ErrOutOfRangeCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indices, err := tensor.FromValues(tt.indices, tensor.Shape{1, 2}, tensor.CPU)
			require.NoError(t, err)

			var buf bytes.Buffer
			dense := map[string]*tensor.RawTensor{"x.indices": indices, "x.values": values}
			meta := map[string]string{formatKey: FormatName, "x.shape": "[2]"}
			require.NoError(t, writeDense(&buf, dense, meta))

			_, err = Read(&buf, newOps())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name     string
		entries  map[string]Entry
		size     int64
		wantType string
	}{
		{
			name:    "ok",
			entries: map[string]Entry{"a": {DType: DTypeF64, Shape: []int64{2}, DataOffsets: [2]int64{0, 16}}},
			size:    16,
		},
		{
			name: "overlap",
			entries: map[string]Entry{
				"a": {DType: DTypeF32, Shape: []int64{2}, DataOffsets: [2]int64{0, 8}},
				"b": {DType: DTypeF32, Shape: []int64{2}, DataOffsets: [2]int64{4, 12}},
			},
			size:     12,
			wantType: "offset_overlap",
		},
		{
			name: "empty regions",
			entries: map[string]Entry{
				"a.values":  {DType: DTypeF64, Shape: []int64{1}, DataOffsets: [2]int64{0, 8}},
				"b.values":  {DType: DTypeF64, Shape: []int64{0}, DataOffsets: [2]int64{8, 8}},
				"c.values":  {DType: DTypeF64, Shape: []int64{1}, DataOffsets: [2]int64{8, 16}},
				"d.indices": {DType: DTypeI64, Shape: []int64{0, 1}, DataOffsets: [2]int64{8, 8}},
				"e.values":  {DType: DTypeF64, Shape: []int64{0}, DataOffsets: [2]int64{12, 12}},
			},
			size: 16,
		},
		{
			name:     "out of bounds",
			entries:  map[string]Entry{"a": {DType: DTypeI64, Shape: []int64{2}, DataOffsets: [2]int64{0, 16}}},
			size:     8,
			wantType: "out_of_bounds",
		},
		{
			name:     "negative",
			entries:  map[string]Entry{"a": {DType: DTypeI64, Shape: []int64{0}, DataOffsets: [2]int64{-8, 0}}},
			size:     8,
			wantType: "negative_offset",
		},
		{
			name:     "size",
			entries:  map[string]Entry{"a": {DType: DTypeF64, Shape: []int64{3}, DataOffsets: [2]int64{0, 16}}},
			size:     16,
			wantType: "size_mismatch",
		},
		{
			name:     "dtype",
			entries:  map[string]Entry{"a": {DType: "BF16", Shape: []int64{1}, DataOffsets: [2]int64{0, 2}}},
			size:     2,
			wantType: "unsupported_dtype",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEntries(tt.entries, tt.size)
			if tt.wantType == "" {
				// Map order varies between calls; the result must not.
				for range 50 {
					require.NoError(t, validateEntries(tt.entries, tt.size))
				}
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantType, verr.Type)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, `offset_overlap: tensors "a" and "b": x`, (&ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "x"}).Error())
	assert.Equal(t, `invalid_name: tensor "a": x`, (&ValidationError{Type: "invalid_name", Tensor: "a", Details: "x"}).Error())
	assert.Equal(t, "too_many_tensors: x", (&ValidationError{Type: "too_many_tensors", Details: "x"}).Error())
}
