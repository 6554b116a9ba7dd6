package serialization

import (
	"github.com/born-ml/sgat/internal/tensor"
)

// Format constants.
const (
	FormatName     = "sgat-sparse-coo"
	MetadataKey    = "__metadata__"
	formatKey      = "format"
	checksumKey    = "sha256"
	indicesSuffix  = ".indices"
	valuesSuffix   = ".values"
	shapeSuffix    = ".shape"
	headerSizeSize = 8
)

// SafeTensors dtype names.
const (
	DTypeF32 = "F32"
	DTypeF64 = "F64"
	DTypeI64 = "I64"
)

// Entry describes one dense tensor in the SafeTensors header.
type Entry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

func dtypeToSafeTensors(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeF32
	case tensor.Float64:
		return DTypeF64
	case tensor.Int64:
		return DTypeI64
	default:
		return "unknown"
	}
}

func safeTensorsToDType(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeF32:
		return tensor.Float32, true
	case DTypeF64:
		return tensor.Float64, true
	case DTypeI64:
		return tensor.Int64, true
	default:
		return 0, false
	}
}
