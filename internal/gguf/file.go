package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/mmap"

	"github.com/ariannamethod/yent/internal/ggml"
)

// decodeF32LE decodes little-endian IEEE-754 float32 values from raw into
// dst, which must have len(dst) == len(raw)/4.
func decodeF32LE(raw []byte, dst []float32) error {
	if len(raw) != len(dst)*4 {
		return fmt.Errorf("size mismatch: %d bytes for %d elements", len(raw), len(dst))
	}
	for i := range dst {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		dst[i] = math.Float32frombits(bits)
	}
	return nil
}

// Tensor is a resolved tensor descriptor: its logical shape plus the byte
// window into the memory-mapped file that backs it.
type Tensor struct {
	Name string
	Dims []uint64
	Kind ggml.Kind

	start, end int64 // absolute byte offsets into the mmap'd file
}

// Elements returns the total element count (product of dims).
func (t Tensor) Elements() int {
	n := uint64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return int(n)
}

// File is an open, memory-mapped GGUF file: its decoded metadata and the
// resolved byte windows of every tensor it declares. Each View is a copy
// of its tensor's bytes, so Views stay valid after File.Close.
type File struct {
	path    string
	data    *mmap.ReaderAt
	KV      KV
	Tensors map[string]Tensor
}

// Open memory-maps path and decodes its GGUF header, metadata, and tensor
// table. The tensor data itself is not read eagerly; View resolves a
// named tensor to a ggml.View on demand, copied out of the mmap via
// ReadAt (x/exp/mmap.ReaderAt exposes no direct byte-slice view of the
// mapping, so this is a page-in copy rather than a zero-copy alias).
func Open(path string) (*File, error) {
	data, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gguf: opening %s: %w", path, err)
	}

	sr := io.NewSectionReader(data, 0, int64(data.Len()))
	kv, descriptors, err := decode(sr, path)
	if err != nil {
		data.Close()
		return nil, err
	}

	align := uint64(kv.Uint32("general.alignment", defaultAlign))
	if !ggml.IsPowerOfTwo(align) {
		data.Close()
		return nil, formatErrorf(path, "general.alignment %d is not a power of two", align)
	}

	headerEnd, err := sr.Seek(0, io.SeekCurrent)
	if err != nil {
		data.Close()
		return nil, formatErrorf(path, "seeking to end of tensor descriptors: %v", err)
	}
	base := headerEnd + int64(ggufPadding(uint64(headerEnd), align))

	fileSize := int64(data.Len())
	tensors := make(map[string]Tensor, len(descriptors))
	for _, d := range descriptors {
		kind, ok := d.kind.resolve()
		if !ok {
			data.Close()
			return nil, formatErrorf(path, "tensor %q has unsupported kind %d", d.name, d.kind)
		}

		n := uint64(1)
		for _, dim := range d.dims {
			n *= dim
		}
		size := int64(kind.ByteSize(int(n)))
		start := base + int64(d.offset)
		end := start + size
		if end > fileSize {
			data.Close()
			return nil, formatErrorf(path, "tensor %q window [%d,%d) exceeds file size %d", d.name, start, end, fileSize)
		}

		tensors[d.name] = Tensor{Name: d.name, Dims: d.dims, Kind: kind, start: start, end: end}
	}

	return &File{path: path, data: data, KV: kv, Tensors: tensors}, nil
}

// Close unmaps the underlying file. View must not be called afterward;
// Views already obtained hold their own copies and are unaffected.
func (f *File) Close() error {
	return f.data.Close()
}

// View resolves a tensor name to a ggml.View, copying its byte window
// out of the mmap'd file on demand. Returns an error if no tensor by
// that name was declared.
func (f *File) View(name string) (ggml.View, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return ggml.View{}, formatErrorf(f.path, "no such tensor %q", name)
	}

	raw := make([]byte, t.end-t.start)
	if _, err := f.data.ReadAt(raw, t.start); err != nil {
		return ggml.View{}, formatErrorf(f.path, "reading tensor %q: %v", name, err)
	}

	n := t.Elements()
	if t.Kind == ggml.F32 {
		data := make([]float32, n)
		if err := decodeF32LE(raw, data); err != nil {
			return ggml.View{}, formatErrorf(f.path, "decoding F32 tensor %q: %v", name, err)
		}
		return ggml.NewF32(data), nil
	}
	return ggml.NewQuantized(t.Kind, raw, n), nil
}
