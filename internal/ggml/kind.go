// Package ggml provides typed, read-mostly views over raw tensor bytes
// (F32, Q8_0, Q4_0) and the arithmetic primitives the transformer forward
// pass is built from: dot products, row-parallel matmul, reductions,
// softmax, saxpy, and RMSNorm.
package ggml

import "fmt"

// Kind identifies how a tensor's bytes are laid out.
type Kind int

const (
	F32 Kind = iota
	Q8_0
	Q4_0
)

func (k Kind) String() string {
	switch k {
	case F32:
		return "F32"
	case Q8_0:
		return "Q8_0"
	case Q4_0:
		return "Q4_0"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// BlockSize is the number of elements per quantization block. F32 has no
// block structure, so it reports 1.
func (k Kind) BlockSize() int {
	switch k {
	case Q8_0, Q4_0:
		return 32
	default:
		return 1
	}
}

// BytesPerBlock is the on-disk size of one block, scale included.
func (k Kind) BytesPerBlock() int {
	switch k {
	case F32:
		return 4
	case Q8_0:
		return 2 + 32 // fp16 scale + 32 int8 quants
	case Q4_0:
		return 2 + 16 // fp16 scale + 16 bytes of packed nibbles
	default:
		return 0
	}
}

// ByteSize returns the number of bytes needed to store n elements of this
// kind.
func (k Kind) ByteSize(n int) int {
	if k == F32 {
		return n * 4
	}
	blocks := (n + k.BlockSize() - 1) / k.BlockSize()
	return blocks * k.BytesPerBlock()
}
