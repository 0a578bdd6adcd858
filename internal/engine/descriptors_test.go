package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuncBitsRoundTrip(t *testing.T) {
	b := NewFuncBits(1234, true)
	require.True(t, b.IsTable())
	require.Equal(t, uint16(1234), b.Index())

	b2 := NewFuncBits(42, false)
	require.False(t, b2.IsTable())
	require.Equal(t, uint16(42), b2.Index())
}

func TestFrameDataRoundTrip(t *testing.T) {
	fb := NewFuncBits(7, false)
	f := NewFrameData(10, 20, 30, fb)
	require.Equal(t, uint16(10), f.LabelSize())
	require.Equal(t, uint16(20), f.LocalSize())
	require.Equal(t, uint16(30), f.StackSize())
	require.Equal(t, fb, f.FuncBits())
}

func TestLabelDataRoundTrip(t *testing.T) {
	l := NewLabelData(100, 200, 300, true, false)
	require.Equal(t, uint16(100), l.StackPc())
	require.Equal(t, uint16(200), l.LabelPc())
	require.Equal(t, uint16(300), l.StartPc())
	require.True(t, l.Arity())
	require.False(t, l.IsLoop())

	l2 := NewLabelData(1, 2, 3, false, true)
	require.False(t, l2.Arity())
	require.True(t, l2.IsLoop())
}

func TestOffsetRoundTrip(t *testing.T) {
	o := NewOffset(0xdead, 0xbeef)
	require.Equal(t, uint32(0xdead), o.LabelBase())
	require.Equal(t, uint32(0xbeef), o.StackBase())
}
