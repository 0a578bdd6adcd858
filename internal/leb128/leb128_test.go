package leb128

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUint32(t *testing.T) {
	tests := []struct {
		in       []byte
		expected uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff},
	}
	for _, tt := range tests {
		v, n, err := DecodeUint32(bytes.NewReader(tt.in))
		require.NoError(t, err)
		require.Equal(t, tt.expected, v)
		require.Equal(t, uint32(len(tt.in)), n)
	}
}

func TestDecodeInt32(t *testing.T) {
	tests := []struct {
		in       []byte
		expected int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0xc0, 0xbb, 0x78}, -123456},
		{[]byte{0xc3, 0x9f, 0x7f}, -12349},
	}
	for _, tt := range tests {
		v, _, err := DecodeInt32(bytes.NewReader(tt.in))
		require.NoError(t, err)
		require.Equal(t, tt.expected, v)
	}
}

func TestDecodeInt64(t *testing.T) {
	v, _, err := DecodeInt64(bytes.NewReader([]byte{0x7f}))
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)
}

func TestDecodeUint32Overflow(t *testing.T) {
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x0f}))
	require.Error(t, err)
}
