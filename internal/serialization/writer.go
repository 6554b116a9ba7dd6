package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/sgat/internal/sparse"
	"github.com/born-ml/sgat/internal/tensor"
)

// Write encodes tensors and metadata to w.
//
// Metadata keys ending in ".shape", and the "format" and "sha256" keys, are
// reserved and rejected.
func Write(w io.Writer, tensors map[string]*sparse.Tensor, metadata map[string]string) error {
	meta := make(map[string]string, len(metadata)+len(tensors)+2)
	for k, v := range metadata {
		if k == formatKey || k == checksumKey || strings.HasSuffix(k, shapeSuffix) {
			return &ValidationError{Type: "reserved_metadata", Details: fmt.Sprintf("key %q is reserved", k)}
		}
		meta[k] = v
	}

	dense := make(map[string]*tensor.RawTensor, 2*len(tensors))
	for name, x := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if x.Device() != tensor.CPU {
			return fmt.Errorf("%s: %w: only cpu tensors can be written, got %s", name, tensor.ErrDeviceMismatch, x.Device())
		}
		dense[name+indicesSuffix] = x.Indices()
		dense[name+valuesSuffix] = x.Values()
		meta[name+shapeSuffix] = formatShape(x.Shape())
	}
	meta[formatKey] = FormatName
	return writeDense(w, dense, meta)
}

// writeDense writes dense entries with meta, adding the checksum of the data
// section to meta.
func writeDense(w io.Writer, dense map[string]*tensor.RawTensor, meta map[string]string) error {
	// Entries are laid out in name order.
	names := make([]string, 0, len(dense))
	for name := range dense {
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	for _, name := range names {
		raw := dense[name]
		start := int64(data.Len())
		data.Write(raw.Data())

		shape := make([]int64, len(raw.Shape()))
		for i, d := range raw.Shape() {
			shape[i] = int64(d)
		}
		header[name] = Entry{
			DType:       dtypeToSafeTensors(raw.DType()),
			Shape:       shape,
			DataOffsets: [2]int64{start, int64(data.Len())},
		}
	}
	meta[checksumKey] = ComputeChecksum(data.Bytes())
	header[MetadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// SaveFile writes tensors to path, replacing any existing file.
func SaveFile(path string, tensors map[string]*sparse.Tensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: the path is chosen by the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, tensors, metadata)
}

// formatShape renders a shape the way it is stored in the metadata.
func formatShape(s tensor.Shape) string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
