package api

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueTypeName(t *testing.T) {
	tests := []struct {
		t        ValueType
		expected string
	}{
		{ValueTypeI32, "i32"},
		{ValueTypeI64, "i64"},
		{ValueTypeF32, "f32"},
		{ValueTypeF64, "f64"},
		{0x00, "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, ValueTypeName(tt.t))
	}
}

func TestEncodeDecodeF32(t *testing.T) {
	for _, v := range []float32{0, 1.5, -1.5, float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		encoded := EncodeF32(v)
		decoded := DecodeF32(encoded)
		if math.IsNaN(float64(v)) {
			require.True(t, math.IsNaN(float64(decoded)))
			continue
		}
		require.Equal(t, v, decoded)
	}
}

func TestEncodeDecodeF64(t *testing.T) {
	for _, v := range []float64{0, 1.5, -1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		encoded := EncodeF64(v)
		decoded := DecodeF64(encoded)
		if math.IsNaN(v) {
			require.True(t, math.IsNaN(decoded))
			continue
		}
		require.Equal(t, v, decoded)
	}
}

func TestFunctionTypeString(t *testing.T) {
	ft := &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
	require.Equal(t, "(i32, i32) -> (i32)", ft.String())
}
