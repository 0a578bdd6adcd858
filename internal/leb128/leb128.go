// Package leb128 decodes the variable-length integer encodings used
// throughout the WebAssembly binary format: unsigned and signed LEB128.
package leb128

import (
	"errors"
	"io"
)

// ErrOverflow32 is returned when a 32-bit LEB128 value does not fit in 32 bits.
var ErrOverflow32 = errors.New("leb128: overflows a 32-bit integer")

// ErrOverflow64 is returned when a 64-bit LEB128 value does not fit in 64 bits.
var ErrOverflow64 = errors.New("leb128: overflows a 64-bit integer")

type byteReader interface {
	io.ByteReader
}

// DecodeUint32 decodes an unsigned 32-bit LEB128 value, returning the value
// and the number of bytes consumed.
func DecodeUint32(r byteReader) (uint32, uint32, error) {
	v, n, err := decodeUint64(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 decodes an unsigned 64-bit LEB128 value, returning the value
// and the number of bytes consumed.
func DecodeUint64(r byteReader) (uint64, uint32, error) {
	return decodeUint64(r, 64)
}

func decodeUint64(r byteReader, bitSize int) (result uint64, bytesRead uint32, err error) {
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, bytesRead, err
		}
		bytesRead++

		if shift == 63 && b != 0x00 && b != 0x01 {
			return 0, bytesRead, ErrOverflow64
		}

		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if bitSize < 64 && shift+7 < 64 && (result>>uint(bitSize)) != 0 {
				return 0, bytesRead, ErrOverflow32
			}
			return result, bytesRead, nil
		}
		shift += 7
	}
}

// DecodeInt32 decodes a signed 32-bit LEB128 value, returning the value and
// the number of bytes consumed.
func DecodeInt32(r byteReader) (int32, uint32, error) {
	v, n, err := decodeInt64(r, 32)
	return int32(v), n, err
}

// DecodeInt64 decodes a signed 64-bit LEB128 value, returning the value and
// the number of bytes consumed.
func DecodeInt64(r byteReader) (int64, uint32, error) {
	return decodeInt64(r, 64)
}

func decodeInt64(r byteReader, bitSize int) (result int64, bytesRead uint32, err error) {
	var shift uint
	var b byte
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, bytesRead, err
		}
		bytesRead++

		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < uint(bitSize) && (b&0x40) != 0 {
		result |= -1 << shift
	}
	return result, bytesRead, nil
}
