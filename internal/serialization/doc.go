// Package serialization stores sparse tensors in SafeTensors files.
//
// Each sparse tensor NAME becomes two dense entries, NAME.indices (I64,
// shape [ndim, nnz]) and NAME.values (F32 or F64, shape [nnz]). Its dense
// shape is kept in the metadata under "NAME.shape" as a JSON array, so any
// SafeTensors reader can open the file:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, entries plus "__metadata__"]
//	[tensor data: raw little-endian bytes, entries in name order]
//
// The metadata also carries "format" = "sgat-sparse-coo" and "sha256", the
// checksum of the data section. Reading validates the header, the checksum
// and every tensor through sparse.Ops.Build, so a file holding out-of-range
// or duplicate coordinates is rejected like any other invalid input.
//
// Example usage:
//
//	err := serialization.SaveFile("mask.safetensors", map[string]*sparse.Tensor{"mask": mask}, nil)
//
//	f, err := serialization.LoadFile("mask.safetensors", sp)
//	mask := f.Tensors["mask"]
package serialization
