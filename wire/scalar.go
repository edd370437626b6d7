package wire

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// Number is any scalar that can appear in a block.
type Number interface {
	constraints.Integer | constraints.Float
}

type scalar[T Number] struct {
	width int
	put   func(dst []byte, v T)
	get   func(src []byte) T
}

var (
	scalarS8 = scalar[int8]{1,
		func(dst []byte, v int8) { dst[0] = byte(v) },
		func(src []byte) int8 { return int8(src[0]) }}
	scalarU8 = scalar[uint8]{1,
		func(dst []byte, v uint8) { dst[0] = v },
		func(src []byte) uint8 { return src[0] }}
	scalarS16 = scalar[int16]{2,
		func(dst []byte, v int16) { binary.BigEndian.PutUint16(dst, uint16(v)) },
		func(src []byte) int16 { return int16(binary.BigEndian.Uint16(src)) }}
	scalarU16 = scalar[uint16]{2,
		binary.BigEndian.PutUint16,
		binary.BigEndian.Uint16}
	scalarS32 = scalar[int32]{4,
		func(dst []byte, v int32) { binary.BigEndian.PutUint32(dst, uint32(v)) },
		func(src []byte) int32 { return int32(binary.BigEndian.Uint32(src)) }}
	scalarS64 = scalar[int64]{8,
		func(dst []byte, v int64) { binary.BigEndian.PutUint64(dst, uint64(v)) },
		func(src []byte) int64 { return int64(binary.BigEndian.Uint64(src)) }}
	scalarF32 = scalar[float32]{4,
		func(dst []byte, v float32) { binary.BigEndian.PutUint32(dst, math.Float32bits(v)) },
		func(src []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(src)) }}
	scalarF64 = scalar[float64]{8,
		func(dst []byte, v float64) { binary.BigEndian.PutUint64(dst, math.Float64bits(v)) },
		func(src []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(src)) }}
)
