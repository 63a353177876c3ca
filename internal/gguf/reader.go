package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// tensorDescriptor is the on-disk shape of one tensor entry, before its
// byte window into the mmap'd data region has been resolved.
type tensorDescriptor struct {
	name   string
	dims   []uint64
	kind   ggufKind
	offset uint64
}

// readGGUF reads a fixed-width little-endian value of type T, the same
// generic binary-read helper pattern used throughout GGUF parsers: one
// function serves every scalar numeric type the format needs.
func readGGUF[T any](r io.Reader) (T, error) {
	var v T
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return v, err
	}
	return v, nil
}

// readGGUFString reads a u64 length prefix followed by that many raw
// UTF-8 bytes.
func readGGUFString(r io.Reader) (string, error) {
	n, err := readGGUF[uint64](r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// decode parses the GGUF header, metadata key-value section, and tensor
// descriptor block from r, returning the metadata and raw descriptors.
// path is used only to annotate FormatError messages.
func decode(r io.Reader, path string) (KV, []tensorDescriptor, error) {
	m, err := readGGUF[uint32](r)
	if err != nil {
		return nil, nil, formatErrorf(path, "reading magic: %v", err)
	}
	if m != magic {
		return nil, nil, formatErrorf(path, "bad magic %#x", m)
	}

	version, err := readGGUF[uint32](r)
	if err != nil {
		return nil, nil, formatErrorf(path, "reading version: %v", err)
	}
	if version != 2 && version != 3 {
		return nil, nil, formatErrorf(path, "unsupported version %d", version)
	}

	tensorCount, err := readGGUF[uint64](r)
	if err != nil {
		return nil, nil, formatErrorf(path, "reading tensor count: %v", err)
	}
	kvCount, err := readGGUF[uint64](r)
	if err != nil {
		return nil, nil, formatErrorf(path, "reading metadata count: %v", err)
	}

	kv := make(KV, kvCount)
	for i := uint64(0); i < kvCount; i++ {
		key, err := readGGUFString(r)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading metadata key %d: %v", i, err)
		}
		val, err := readValue(r, path)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading metadata value %q: %v", key, err)
		}
		kv[key] = val
	}

	tensors := make([]tensorDescriptor, tensorCount)
	for i := uint64(0); i < tensorCount; i++ {
		name, err := readGGUFString(r)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading tensor name %d: %v", i, err)
		}
		if len(name) > maxTensorName {
			return nil, nil, formatErrorf(path, "tensor name %q exceeds %d bytes", name, maxTensorName)
		}

		nDims, err := readGGUF[uint32](r)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading n_dims for %q: %v", name, err)
		}
		if nDims > maxTensorDims {
			return nil, nil, formatErrorf(path, "tensor %q has %d dims, max %d", name, nDims, maxTensorDims)
		}

		dims := make([]uint64, nDims)
		for d := range dims {
			dims[d], err = readGGUF[uint64](r)
			if err != nil {
				return nil, nil, formatErrorf(path, "reading dims for %q: %v", name, err)
			}
		}

		kind, err := readGGUF[uint32](r)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading type for %q: %v", name, err)
		}
		offset, err := readGGUF[uint64](r)
		if err != nil {
			return nil, nil, formatErrorf(path, "reading offset for %q: %v", name, err)
		}

		tensors[i] = tensorDescriptor{name: name, dims: dims, kind: ggufKind(kind), offset: offset}
	}

	return kv, tensors, nil
}

// readValue reads one tagged metadata value, recursing for ARRAY.
func readValue(r io.Reader, path string) (any, error) {
	tag, err := readGGUF[uint32](r)
	if err != nil {
		return nil, err
	}
	return readTypedValue(r, valueType(tag), path)
}

func readTypedValue(r io.Reader, t valueType, path string) (any, error) {
	switch t {
	case typeUint8:
		return readGGUF[uint8](r)
	case typeInt8:
		return readGGUF[int8](r)
	case typeUint16:
		return readGGUF[uint16](r)
	case typeInt16:
		return readGGUF[int16](r)
	case typeUint32:
		return readGGUF[uint32](r)
	case typeInt32:
		return readGGUF[int32](r)
	case typeFloat32:
		return readGGUF[float32](r)
	case typeBool:
		b, err := readGGUF[uint8](r)
		return b != 0, err
	case typeString:
		return readGGUFString(r)
	case typeUint64:
		return readGGUF[uint64](r)
	case typeInt64:
		return readGGUF[int64](r)
	case typeFloat64:
		return readGGUF[float64](r)
	case typeArray:
		innerTag, err := readGGUF[uint32](r)
		if err != nil {
			return nil, err
		}
		inner := valueType(innerTag)
		if !inner.valid() {
			return nil, fmt.Errorf("unknown array element type %d", innerTag)
		}
		n, err := readGGUF[uint64](r)
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			out[i], err = readTypedValue(r, inner, path)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown metadata type %d", t)
	}
}

// ggufPadding returns the number of bytes needed after offset to reach
// the next multiple of alignment.
func ggufPadding(offset, alignment uint64) uint64 {
	if alignment == 0 {
		return 0
	}
	rem := offset % alignment
	if rem == 0 {
		return 0
	}
	return alignment - rem
}
