package ggml

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"runtime"

	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"
)

// View is a read-mostly logical sequence of float32 values over a backing
// byte region and a quantization Kind. F32 views additionally support
// Set and in-place mutation; Q8_0 and Q4_0 views dequantize on access and
// are read-only, matching the GGUF weight tensors they are built from.
type View struct {
	kind Kind
	n    int

	f32 []float32 // only populated when kind == F32
	raw []byte     // only populated for quantized kinds
}

// NewF32 wraps a float32 slice (writable) as a View.
func NewF32(data []float32) View {
	return View{kind: F32, n: len(data), f32: data}
}

// NewQuantized wraps raw GGUF tensor bytes of the given kind as a
// read-only View of n logical elements.
func NewQuantized(kind Kind, raw []byte, n int) View {
	if kind == F32 {
		panic("ggml: NewQuantized called with F32 kind")
	}
	want := kind.ByteSize(n)
	if len(raw) < want {
		panic(fmt.Sprintf("ggml: %s view of %d elements needs %d bytes, got %d", kind, n, want, len(raw)))
	}
	return View{kind: kind, n: n, raw: raw[:want]}
}

func (v View) Kind() Kind { return v.kind }
func (v View) Size() int  { return v.n }

// Raw exposes the backing bytes of a quantized view, e.g. for slicing out
// a single embedding row without dequantizing the whole table.
func (v View) Raw() []byte { return v.raw }

// F32Slice exposes the backing slice of an F32 view directly. Panics for
// quantized kinds.
func (v View) F32Slice() []float32 {
	if v.kind != F32 {
		panic("ggml: F32Slice on quantized view")
	}
	return v.f32
}

// Get dequantizes (or reads) the element at logical index i.
func (v View) Get(i int) float32 {
	switch v.kind {
	case F32:
		return v.f32[i]
	case Q8_0:
		block, within := i/32, i%32
		off := block * v.kind.BytesPerBlock()
		d := half(v.raw[off : off+2])
		return float32(int8(v.raw[off+2+within])) * d
	case Q4_0:
		block, within := i/32, i%32
		off := block * v.kind.BytesPerBlock()
		d := half(v.raw[off : off+2])
		b := v.raw[off+2+within%16]
		var nibble int
		if within < 16 {
			nibble = int(b & 0x0F)
		} else {
			nibble = int(b >> 4)
		}
		return float32(nibble-8) * d
	default:
		panic("ggml: unknown kind")
	}
}

// Set writes the element at logical index i. Only valid for F32 views.
func (v View) Set(i int, x float32) {
	if v.kind != F32 {
		panic("ggml: Set on read-only quantized view")
	}
	v.f32[i] = x
}

// Row returns the sub-view for row r of an [rows, cols] matrix, without
// dequantizing. Useful for embedding lookups where only one row is needed.
func (v View) Row(r, cols int) View {
	switch v.kind {
	case F32:
		return NewF32(v.f32[r*cols : (r+1)*cols])
	default:
		bytesPerRow := v.kind.ByteSize(cols)
		return NewQuantized(v.kind, v.raw[r*bytesPerRow:(r+1)*bytesPerRow], cols)
	}
}

// CopyRowInto dequantizes row r of an [rows, cols] matrix into dst.
func (v View) CopyRowInto(dst []float32, r, cols int) {
	row := v.Row(r, cols)
	for i := 0; i < cols; i++ {
		dst[i] = row.Get(i)
	}
}

func half(b []byte) float32 {
	return float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
}

// Dot computes sum(v[offA:offA+n] * x[offB:offB+n]).
func (v View) Dot(offA int, x []float32, offB, n int) float32 {
	switch v.kind {
	case F32:
		return dotF32(v.f32[offA:offA+n], x[offB:offB+n])
	case Q8_0:
		return dotQ8_0(v.raw, offA, x[offB:offB+n])
	case Q4_0:
		return dotQ4_0(v.raw, offA, x[offB:offB+n])
	default:
		panic("ggml: unknown kind")
	}
}

func dotF32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// dotQ8_0 computes the dot product of a run of n elements starting at
// offset off within a Q8_0-quantized byte buffer against x. off need not
// be block-aligned: unaligned heads/tails fall back to scalar decode.
func dotQ8_0(raw []byte, off int, x []float32) float32 {
	const blockSize = 32
	const bytesPerBlock = 34
	n := len(x)
	var sum0, sum1, sum2, sum3 float32
	i := 0

	// Aligned fast path: iterate whole blocks when off is block-aligned.
	if off%blockSize == 0 {
		block := off / blockSize
		for ; i+blockSize <= n; i += blockSize {
			blockOff := (block + i/blockSize) * bytesPerBlock
			d := half(raw[blockOff : blockOff+2])
			data := raw[blockOff+2 : blockOff+bytesPerBlock]
			var s0, s1, s2, s3 float32
			for j := 0; j < blockSize; j += 8 {
				s0 += float32(int8(data[j])) * x[i+j]
				s1 += float32(int8(data[j+1])) * x[i+j+1]
				s2 += float32(int8(data[j+2])) * x[i+j+2]
				s3 += float32(int8(data[j+3])) * x[i+j+3]
				s0 += float32(int8(data[j+4])) * x[i+j+4]
				s1 += float32(int8(data[j+5])) * x[i+j+5]
				s2 += float32(int8(data[j+6])) * x[i+j+6]
				s3 += float32(int8(data[j+7])) * x[i+j+7]
			}
			sum0 += s0 * d
			sum1 += s1 * d
			sum2 += s2 * d
			sum3 += s3 * d
		}
	}

	sum := sum0 + sum1 + sum2 + sum3
	for ; i < n; i++ {
		idx := off + i
		blockOff := (idx / blockSize) * bytesPerBlock
		d := half(raw[blockOff : blockOff+2])
		q := int8(raw[blockOff+2+idx%blockSize])
		sum += float32(q) * d * x[i]
	}
	return sum
}

// dotQ4_0 mirrors dotQ8_0 for the 4-bit packed layout: low nibbles cover
// indices 0..15 of a block, high nibbles cover 16..31.
func dotQ4_0(raw []byte, off int, x []float32) float32 {
	const blockSize = 32
	const bytesPerBlock = 18
	n := len(x)
	var sum0, sum1, sum2, sum3 float32
	i := 0

	if off%blockSize == 0 {
		block := off / blockSize
		for ; i+blockSize <= n; i += blockSize {
			blockOff := (block + i/blockSize) * bytesPerBlock
			d := half(raw[blockOff : blockOff+2])
			data := raw[blockOff+2 : blockOff+bytesPerBlock]
			var s0, s1, s2, s3 float32
			for j := 0; j < 16; j += 4 {
				b0, b1, b2, b3 := data[j], data[j+1], data[j+2], data[j+3]
				s0 += float32(int(b0&0x0F)-8)*x[i+j] + float32(int(b0>>4)-8)*x[i+j+16]
				s1 += float32(int(b1&0x0F)-8)*x[i+j+1] + float32(int(b1>>4)-8)*x[i+j+17]
				s2 += float32(int(b2&0x0F)-8)*x[i+j+2] + float32(int(b2>>4)-8)*x[i+j+18]
				s3 += float32(int(b3&0x0F)-8)*x[i+j+3] + float32(int(b3>>4)-8)*x[i+j+19]
			}
			sum0 += s0 * d
			sum1 += s1 * d
			sum2 += s2 * d
			sum3 += s3 * d
		}
	}

	sum := sum0 + sum1 + sum2 + sum3
	for ; i < n; i++ {
		idx := off + i
		blockOff := (idx / blockSize) * bytesPerBlock
		d := half(raw[blockOff : blockOff+2])
		within := idx % blockSize
		b := raw[blockOff+2+within%16]
		var nibble int
		if within < 16 {
			nibble = int(b & 0x0F)
		} else {
			nibble = int(b >> 4)
		}
		sum += float32(nibble-8) * d * x[i]
	}
	return sum
}

// numWorkers caps the structured fan-out used by Matmul and attention at
// the number of logical CPUs, the same bound the teacher's goroutine pool
// used in its non-errgroup form.
func numWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// Matmul computes out[r] = Dot(r*cols, x, 0, cols) for every row, fanning
// out across goroutines and joining before returning (structured
// parallelism, §5). Small matrices run inline to avoid goroutine overhead.
func (v View) Matmul(x []float32, out []float32, rows, cols int) {
	if rows < numWorkers()*4 {
		for r := 0; r < rows; r++ {
			out[r] = v.Dot(r*cols, x, 0, cols)
		}
		return
	}

	workers := numWorkers()
	chunk := (rows + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, rows)
		if start >= end {
			continue
		}
		g.Go(func() error {
			for r := start; r < end; r++ {
				out[r] = v.Dot(r*cols, x, 0, cols)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// IsPowerOfTwo reports whether n is a power of two (used to validate
// general.alignment while parsing GGUF headers).
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && bits.OnesCount64(n) == 1
}
