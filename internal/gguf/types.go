package gguf

import "github.com/ariannamethod/yent/internal/ggml"

// valueType is the 32-bit type tag preceding every metadata value, per
// the GGUF container format.
type valueType uint32

const (
	typeUint8 valueType = iota
	typeInt8
	typeUint16
	typeInt16
	typeUint32
	typeInt32
	typeFloat32
	typeBool
	typeString
	typeArray
	typeUint64
	typeInt64
	typeFloat64
)

func (t valueType) valid() bool {
	return t <= typeFloat64
}

// ggufKind is the on-disk GGML tensor type code. Only the three kinds the
// spec covers (F32, Q4_0, Q8_0) decode successfully; every other code is a
// supported-on-disk-but-out-of-scope format and is rejected as a format
// error rather than silently misread.
type ggufKind uint32

const (
	ggufF32  ggufKind = 0
	ggufF16  ggufKind = 1
	ggufQ4_0 ggufKind = 2
	ggufQ4_1 ggufKind = 3
	ggufQ8_0 ggufKind = 8
)

func (k ggufKind) resolve() (ggml.Kind, bool) {
	switch k {
	case ggufF32:
		return ggml.F32, true
	case ggufQ4_0:
		return ggml.Q4_0, true
	case ggufQ8_0:
		return ggml.Q8_0, true
	default:
		return 0, false
	}
}

const (
	magic          = 0x46554747 // "GGUF" little-endian
	defaultAlign   = 32
	maxTensorDims  = 4
	maxTensorName  = 64
)
