// Package u32 includes little-endian encoding helpers for uint32, giving a
// byte-oriented view of a 32-bit word. No other package of this module
// imports it.
package u32

import "encoding/binary"

// LeBytes encodes v as 4 little-endian bytes.
func LeBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
