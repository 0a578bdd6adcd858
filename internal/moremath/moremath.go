// Package moremath supplies the floating point semantics the WebAssembly
// MVP numeric instructions require but the Go standard library doesn't
// define identically: NaN-propagating min/max and round-to-even ("nearest").
package moremath

import "math"

// WasmCompatMin doesn't comply with math.Min, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is -Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L74-L91
func WasmCompatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// WasmCompatMax doesn't comply with math.Max, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L42-L59
func WasmCompatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// WasmCompatMin32 is the float32 form of WasmCompatMin.
func WasmCompatMin32(x, y float32) float32 {
	return float32(WasmCompatMin(float64(x), float64(y)))
}

// WasmCompatMax32 is the float32 form of WasmCompatMax.
func WasmCompatMax32(x, y float32) float32 {
	return float32(WasmCompatMax(float64(x), float64(y)))
}

// WasmCompatNearestF32 rounds to the nearest integral value, with ties
// rounding to even, as required by the "nearest" instruction. math.Round
// rounds ties away from zero, which is incompatible.
func WasmCompatNearestF32(f float32) float32 {
	return float32(WasmCompatNearestF64(float64(f)))
}

// WasmCompatNearestF64 rounds to the nearest integral value, with ties
// rounding to even, as required by the "nearest" instruction. math.Round
// rounds ties away from zero, which is incompatible.
func WasmCompatNearestF64(f float64) float64 {
	// RoundToEven already implements round-half-to-even for all inputs,
	// including the negative-tie case math.Round gets wrong (e.g. -4.5).
	return math.RoundToEven(f)
}
