// Package u64 includes little-endian encoding helpers for uint64, giving a
// byte-oriented view of a 64-bit word. No other package of this module
// imports it.
package u64

import "encoding/binary"

// LeBytes encodes v as 8 little-endian bytes.
func LeBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
