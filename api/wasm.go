// Package api includes the value types and numeric encodings shared between
// the public wasmlite package and the internal interpreter engine.
package api

import (
	"fmt"
	"math"
)

// ValueType describes a numeric type used in the WebAssembly 1.0 (MVP)
// specification. wasmlite stores every value, regardless of type, as a
// single uint64: I32/F32 occupy the low 32 bits with the high bits zero,
// and floats are held by their IEEE-754 bit pattern.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType as used in the
// WebAssembly text format, or "unknown" if t is not a valid ValueType.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// FunctionType is the signature of a function: an ordered sequence of
// parameter types and an optional single result type. The MVP does not
// support multiple results.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders the signature in a form similar to the WebAssembly text
// format, e.g. "(i32, i32) -> (i32)".
func (t *FunctionType) String() string {
	return fmt.Sprintf("%s -> %s", valueTypeNames(t.Params), valueTypeNames(t.Results))
}

func valueTypeNames(types []ValueType) string {
	s := "("
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += ValueTypeName(t)
	}
	return s + ")"
}

// EncodeI32 encodes the input as a ValueTypeI32.
func EncodeI32(input int32) uint64 {
	return uint64(uint32(input))
}

// EncodeI64 encodes the input as a ValueTypeI64.
func EncodeI64(input int64) uint64 {
	return uint64(input)
}

// EncodeF32 encodes the input as a ValueTypeF32, widening its IEEE-754 bit
// pattern to 64 bits.
//
// See DecodeF32
func EncodeF32(input float32) uint64 {
	return uint64(math.Float32bits(input))
}

// DecodeF32 decodes the input as a ValueTypeF32.
//
// See EncodeF32
func DecodeF32(input uint64) float32 {
	return math.Float32frombits(uint32(input))
}

// EncodeF64 encodes the input as a ValueTypeF64.
//
// See DecodeF64
func EncodeF64(input float64) uint64 {
	return math.Float64bits(input)
}

// DecodeF64 decodes the input as a ValueTypeF64.
//
// See EncodeF64
func DecodeF64(input uint64) float64 {
	return math.Float64frombits(input)
}
