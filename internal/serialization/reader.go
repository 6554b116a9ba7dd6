package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/born-ml/sgat/internal/sparse"
	"github.com/born-ml/sgat/internal/tensor"
)

// File is the decoded content of a sparse tensor file.
type File struct {
	Tensors  map[string]*sparse.Tensor
	Metadata map[string]string // caller metadata, reserved keys removed
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Read decodes a file written by Write. Tensors are created on the device of
// ops' backend and validated by ops.Build.
func Read(r io.Reader, ops *sparse.Ops) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("%w: read header size: %w", ErrInvalidHeader, err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrHeaderTooLarge, headerSize, MaxHeaderSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalidHeader, err)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	var meta map[string]string
	if raw, ok := header[MetadataKey]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", ErrInvalidHeader, err)
		}
	}
	if meta[formatKey] != FormatName {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrUnsupportedFormat, meta[formatKey], FormatName)
	}

	entries := make(map[string]Entry, len(header))
	for name, raw := range header {
		if name == MetadataKey {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrInvalidHeader, name, err)
		}
		entries[name] = e
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := validateEntries(entries, int64(len(data))); err != nil {
		return nil, err
	}
	if err := ValidateChecksum(data, meta[checksumKey]); err != nil {
		return nil, err
	}

	f := &File{Tensors: make(map[string]*sparse.Tensor), Metadata: make(map[string]string)}
	device := ops.Backend().Device()
	for name := range entries {
		base, ok := strings.CutSuffix(name, indicesSuffix)
		if !ok {
			if base, ok = strings.CutSuffix(name, valuesSuffix); !ok {
				return nil, &ValidationError{Type: "unexpected_entry", Tensor: name, Details: "not an indices or values entry"}
			}
			if _, ok := entries[base+indicesSuffix]; !ok {
				return nil, fmt.Errorf("%w: %s%s", ErrMissingTensor, base, indicesSuffix)
			}
			continue
		}

		valuesEntry, ok := entries[base+valuesSuffix]
		if !ok {
			return nil, fmt.Errorf("%w: %s%s", ErrMissingTensor, base, valuesSuffix)
		}
		shapeText, ok := meta[base+shapeSuffix]
		if !ok {
			return nil, fmt.Errorf("%w: %s%s metadata", ErrMissingTensor, base, shapeSuffix)
		}
		var shape tensor.Shape
		if err := json.Unmarshal([]byte(shapeText), &shape); err != nil {
			return nil, fmt.Errorf("%w: shape of %q: %w", ErrInvalidHeader, base, err)
		}
		if shape == nil {
			shape = tensor.Shape{}
		}

		indices := loadEntry(entries[name], data, device)
		values := loadEntry(valuesEntry, data, device)
		x, err := ops.Build(indices, values, shape)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", base, err)
		}
		f.Tensors[base] = x
	}

	for k, v := range meta {
		if k == formatKey || k == checksumKey || strings.HasSuffix(k, shapeSuffix) {
			continue
		}
		f.Metadata[k] = v
	}
	return f, nil
}

// LoadFile reads the file at path with Read.
func LoadFile(path string, ops *sparse.Ops) (*File, error) {
	//nolint:gosec // G304: the path is chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // read-only
	}()
	return Read(file, ops)
}

// loadEntry copies an entry's bytes into a new tensor. The entry must have
// passed validateEntries.
func loadEntry(e Entry, data []byte, device tensor.Device) *tensor.RawTensor {
	dt, _ := safeTensorsToDType(e.DType)
	raw := tensor.MustNewRaw(shapeOf(e), dt, device)
	copy(raw.Data(), data[e.DataOffsets[0]:e.DataOffsets[1]])
	return raw
}
