package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmlite/wasmlite/api"
)

// The helpers below hand-assemble fragments of a WASM 1.0 binary module, the
// same way wazero's own binary-format tests build fixtures byte by byte
// rather than through an encoder the production code doesn't need.

// uleb128 encodes an unsigned LEB128 integer.
func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			return append(out, b)
		}
	}
}

// sleb128 encodes a signed LEB128 integer.
func sleb128(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// section wraps a payload with its section id and a uleb128 length prefix.
func section(id byte, payload []byte) []byte {
	out := append([]byte{id}, uleb128(uint64(len(payload)))...)
	return append(out, payload...)
}

// vec encodes a WASM vector: a uleb128 count followed by each item's bytes.
func vec(items ...[]byte) []byte {
	out := uleb128(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func wasmName(s string) []byte {
	b := []byte(s)
	return append(uleb128(uint64(len(b))), b...)
}

func funcType(params, results []api.ValueType) []byte {
	paramBytes := make([]byte, len(params))
	copy(paramBytes, params)
	resultBytes := make([]byte, len(results))
	copy(resultBytes, results)
	out := []byte{0x60}
	out = append(out, uleb128(uint64(len(paramBytes)))...)
	out = append(out, paramBytes...)
	out = append(out, uleb128(uint64(len(resultBytes)))...)
	out = append(out, resultBytes...)
	return out
}

func codeEntry(localGroups []byte, body []byte) []byte {
	full := append(append([]byte{}, localGroups...), body...)
	return append(uleb128(uint64(len(full))), full...)
}

func exportEntry(exportName string, kind ExportKind, index uint32) []byte {
	out := wasmName(exportName)
	out = append(out, byte(kind))
	out = append(out, uleb128(uint64(index))...)
	return out
}

// buildModule assembles a full WASM 1.0 binary from pre-built sections.
func buildModule(sections ...[]byte) []byte {
	out := append([]byte{}, magic...)
	out = append(out, version...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func TestDecodeModuleRejectsBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x61, 0x73, 0x00, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecodeModuleAddExport(t *testing.T) {
	typeSec := section(SectionType, vec(
		funcType([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}),
	))
	funcSec := section(SectionFunction, vec([]byte{0x00}))
	exportSec := section(SectionExport, vec(exportEntry("add", ExportFunc, 0)))
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32Add,
		OpEnd,
	}
	codeSec := section(SectionCode, vec(codeEntry([]byte{0x00}, body)))

	data := buildModule(typeSec, funcSec, exportSec, codeSec)
	mod, err := DecodeModule(data)
	require.NoError(t, err)

	idx, ok := mod.ExportedFunc("add")
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)

	in := mod.Instantiate(DefaultLimits)
	res, err := in.Invoke(idx, []uint64{api.EncodeI32(3), api.EncodeI32(4)})
	require.NoError(t, err)
	require.Equal(t, []uint64{api.EncodeI32(7)}, res)
}

func TestDecodeModuleDataSegmentLoad(t *testing.T) {
	typeSec := section(SectionType, vec(
		funcType(nil, []api.ValueType{api.ValueTypeI32}),
	))
	funcSec := section(SectionFunction, vec([]byte{0x00}))
	memSec := section(SectionMemory, vec(append([]byte{0x00}, uleb128(1)...)))
	exportSec := section(SectionExport, vec(exportEntry("load32", ExportFunc, 0)))
	body := []byte{
		OpI32Const, 16,
		OpI32Load, 0x02, 0x00, // align=2, offset=0; base comes from the stack
		OpEnd,
	}
	codeSec := section(SectionCode, vec(codeEntry([]byte{0x00}, body)))

	dataPayload := []byte{0x78, 0x56, 0x34, 0x12}
	dataOffsetExpr := []byte{OpI32Const, 16, OpEnd}
	dataEntry := append([]byte{0x00}, dataOffsetExpr...)
	dataEntry = append(dataEntry, uleb128(uint64(len(dataPayload)))...)
	dataEntry = append(dataEntry, dataPayload...)
	dataSec := section(SectionData, vec(dataEntry))

	data := buildModule(typeSec, funcSec, memSec, exportSec, codeSec, dataSec)
	mod, err := DecodeModule(data)
	require.NoError(t, err)

	idx, ok := mod.ExportedFunc("load32")
	require.True(t, ok)

	in := mod.Instantiate(DefaultLimits)
	res, err := in.Invoke(idx, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), uint32(res[0]))
}

func TestDecodeModuleStartFunctionSideEffect(t *testing.T) {
	typeSec := section(SectionType, vec(
		funcType(nil, nil),
		funcType(nil, []api.ValueType{api.ValueTypeI32}),
	))
	funcSec := section(SectionFunction, vec([]byte{0x00}, []byte{0x01})) // fn0: start, fn1: get
	memSec := section(SectionMemory, vec(append([]byte{0x00}, uleb128(1)...)))
	startSec := section(SectionStart, uleb128(0))
	exportSec := section(SectionExport, vec(exportEntry("get", ExportFunc, 1)))

	const magicValue int32 = -0x21524111 // two's complement bit pattern of 0xDEADBEEF
	startBody := append([]byte{OpI32Const, 0x00, OpI32Const}, sleb128(int64(magicValue))...)
	startBody = append(startBody, OpI32Store, 0x02, 0x00, OpEnd)
	getBody := []byte{OpI32Const, 0x00, OpI32Load, 0x02, 0x00, OpEnd}

	codeSec := section(SectionCode, vec(
		codeEntry([]byte{0x00}, startBody),
		codeEntry([]byte{0x00}, getBody),
	))

	data := buildModule(typeSec, funcSec, memSec, startSec, exportSec, codeSec)
	mod, err := DecodeModule(data)
	require.NoError(t, err)
	require.Equal(t, int32(0), mod.StartFunc)

	in := mod.Instantiate(DefaultLimits)
	// Instantiate itself does not run the start function; that step belongs
	// to the public API (wasmlite.CreateWithLimits). Invoke it explicitly
	// here to exercise the same side effect end to end at the engine layer.
	_, err = in.Invoke(uint32(mod.StartFunc), nil)
	require.NoError(t, err)

	idx, ok := mod.ExportedFunc("get")
	require.True(t, ok)
	res, err := in.Invoke(idx, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), uint32(res[0]))
}
