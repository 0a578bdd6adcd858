package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmlite/wasmlite/api"
	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

// singleFuncInstance builds an Instance exposing exactly one wasm function
// (index 0) decoded from bodyBytes, for exercising the dispatcher without
// going through the binary loader.
func singleFuncInstance(t *testing.T, sig api.FunctionType, locals []api.ValueType, bodyBytes []byte) *Instance {
	t.Helper()
	p := NewPool()
	vec, err := p.ReadExpr(newCursor(bodyBytes))
	require.NoError(t, err)

	mem, err := NewMemory(1, 1)
	require.NoError(t, err)

	in := NewInstance(DefaultLimits)
	in.Pool = p
	in.Memory = mem
	in.Table = NewTable(0, 0)
	in.Types = []api.FunctionType{sig}
	in.Functions = []Function{{
		Signature: sig,
		Wasm:      &WasmFunction{Body: vec, LocalTypes: locals},
	}}
	return in
}

func i32Sig(params, results int) api.FunctionType {
	ps := make([]api.ValueType, params)
	for i := range ps {
		ps[i] = api.ValueTypeI32
	}
	rs := make([]api.ValueType, results)
	for i := range rs {
		rs[i] = api.ValueTypeI32
	}
	return api.FunctionType{Params: ps, Results: rs}
}

func TestInvokeAdd(t *testing.T) {
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32Add,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(2, 1), nil, body)
	res, err := in.Invoke(0, []uint64{api.EncodeI32(2), api.EncodeI32(3)})
	require.NoError(t, err)
	require.Equal(t, []uint64{api.EncodeI32(5)}, res)
}

func TestInvokeDivByZeroTraps(t *testing.T) {
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32DivS,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(2, 1), nil, body)
	_, err := in.Invoke(0, []uint64{api.EncodeI32(1), api.EncodeI32(0)})
	require.Error(t, err)

	// the instance must remain usable after a trap
	res, err := in.Invoke(0, []uint64{api.EncodeI32(10), api.EncodeI32(2)})
	require.NoError(t, err)
	require.Equal(t, []uint64{api.EncodeI32(5)}, res)
}

func TestDivMinIntByNegOneTraps(t *testing.T) {
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32DivS,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(2, 1), nil, body)
	_, err := in.Invoke(0, []uint64{api.EncodeI32(-2147483648), api.EncodeI32(-1)})
	require.Error(t, err)
}

func TestRemMinIntByNegOneIsZero(t *testing.T) {
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32RemS,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(2, 1), nil, body)
	res, err := in.Invoke(0, []uint64{api.EncodeI32(-2147483648), api.EncodeI32(-1)})
	require.NoError(t, err)
	require.Equal(t, int32(0), int32(uint32(res[0])))
}

func TestShiftAmountIsMasked(t *testing.T) {
	// 1 << 33 must behave as 1 << 1 == 2, not 0, since wasm masks the
	// shift amount by the operand width minus one.
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 1,
		OpI32Shl,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(2, 1), nil, body)
	res, err := in.Invoke(0, []uint64{api.EncodeI32(1), api.EncodeI32(33)})
	require.NoError(t, err)
	require.Equal(t, int32(2), int32(uint32(res[0])))
}

func TestClzIsLeadingZeros(t *testing.T) {
	body := []byte{OpLocalGet, 0, OpI32Clz, OpEnd}
	in := singleFuncInstance(t, i32Sig(1, 1), nil, body)
	res, err := in.Invoke(0, []uint64{api.EncodeI32(1)})
	require.NoError(t, err)
	require.Equal(t, int32(31), int32(uint32(res[0])))
}

func TestFactorialViaRecursiveCall(t *testing.T) {
	// fn(n) = n == 0 ? 1 : n * fn(n-1), calling itself via function index 0.
	body := []byte{
		OpLocalGet, 0,
		OpI32Eqz,
		OpIf, api.ValueTypeI32,
		OpI32Const, 1,
		OpElse,
		OpLocalGet, 0,
		OpLocalGet, 0,
		OpI32Const, 1,
		OpI32Sub,
		OpCall, 0,
		OpI32Mul,
		OpEnd,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(1, 1), nil, body)
	res, err := in.Invoke(0, []uint64{api.EncodeI32(5)})
	require.NoError(t, err)
	require.Equal(t, int32(120), int32(uint32(res[0])))
}

func TestBrTableCountsToTen(t *testing.T) {
	// A loop that increments a local until it reaches 10, using br_table
	// to always branch back to the loop (label 0) while i < 10, then
	// falling through to exit the block (label 1) once i == 10.
	//
	//   local 0 = i (starts 0)
	//   block
	//     loop
	//       local.get 0
	//       i32.const 1
	//       i32.add
	//       local.tee 0
	//       i32.const 10
	//       i32.eq
	//       br_table 1 0
	//     end
	//   end
	//   local.get 0
	body := []byte{
		OpBlock, 0x40,
		OpLoop, 0x40,
		OpLocalGet, 0,
		OpI32Const, 1,
		OpI32Add,
		OpLocalTee, 0,
		OpI32Const, 10,
		OpI32Eq,
		OpBrTable, 0x01, 0x00, 0x01, // 1 entry: idx 0 -> depth 0 (loop), else -> depth 1 (exit)
		OpEnd,
		OpEnd,
		OpLocalGet, 0,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 1), []api.ValueType{api.ValueTypeI32}, body)
	res, err := in.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(10), int32(uint32(res[0])))
}

func TestMemoryLoadFromInitializedData(t *testing.T) {
	body := []byte{
		OpI32Const, 0,
		OpI32Load, 0x02, 0x00, // align=2, offset=0
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 1), nil, body)
	require.NoError(t, in.Memory.WriteUint32(0, 0x11223344))

	res, err := in.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), uint32(res[0]))
}

func TestMemoryGrowReturnsNegativeOneAtModuleDeclaredMax(t *testing.T) {
	// The module itself declares a maximum of 2 pages; growing past that is
	// ordinary memory.grow failure, reported as -1, not a trap.
	body := []byte{
		OpI32Const, 5,
		OpMemoryGrow, 0x00,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 1), nil, body)
	mem, err := NewMemory(1, 2)
	require.NoError(t, err)
	in.Memory = mem

	res, err := in.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(-1), int32(uint32(res[0])))
}

func TestMemoryGrowTrapsAtInterpreterPageLimit(t *testing.T) {
	// The module declares no maximum (unbounded), but the interpreter's own
	// configured page ceiling is smaller: exceeding it traps rather than
	// returning -1, distinguishing interpreter policy from module policy.
	body := []byte{
		OpI32Const, 5,
		OpMemoryGrow, 0x00,
		OpEnd,
	}
	limits := DefaultLimits
	limits.MaxPages = 2

	p := NewPool()
	vec, err := p.ReadExpr(newCursor(body))
	require.NoError(t, err)
	mem, err := NewMemory(1, 0) // unbounded per the module
	require.NoError(t, err)

	in := NewInstance(limits)
	in.Pool = p
	in.Memory = mem
	in.Table = NewTable(0, 0)
	sig := i32Sig(0, 1)
	in.Types = []api.FunctionType{sig}
	in.Functions = []Function{{Signature: sig, Wasm: &WasmFunction{Body: vec}}}

	_, err = in.Invoke(0, nil)
	require.Error(t, err)
}

func TestBranchToFunctionEntryLabelReturns(t *testing.T) {
	// (func (result i32) (block (result i32) i32.const 5 br 1))
	//
	// The `br 1` skips past the inner block's own label (depth 0) and
	// targets the function body's implicit entry label (depth 1), which
	// must behave as an ordinary return rather than underflow the label
	// arena.
	body := []byte{
		OpBlock, api.ValueTypeI32,
		OpI32Const, 5,
		OpBr, 1,
		OpEnd,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 1), nil, body)
	res, err := in.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), int32(uint32(res[0])))
}

func TestTruncToI32RangeChecksTheTruncatedValue(t *testing.T) {
	// trunc(-2147483648.5) == -2147483648, which fits i32, even though the
	// raw float itself sits just outside the i32 range.
	require.Equal(t, int32(-2147483648), truncToI32(-2147483648.5))
	require.Panics(t, func() { truncToI32(-2147483649.5) })
	require.Panics(t, func() { truncToI32(math.NaN()) })
}

func TestTruncToI64RangeChecksTheTruncatedValue(t *testing.T) {
	require.Equal(t, int64(5), truncToI64(5.9))
	require.Panics(t, func() { truncToI64(math.NaN()) })
}

func TestCallIndirectTypeMismatchTraps(t *testing.T) {
	// fn 0 is call_indirect's caller (exported, index 0); fn 1 is a real
	// wasm function with a different signature sitting at table slot 0.
	body := []byte{
		OpI32Const, 0,
		OpCallIndirect, 0, 0x00, // type index 0, reserved byte
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 1), nil, body)
	in.Types = append(in.Types, i32Sig(1, 1))
	in.Functions = append(in.Functions, Function{
		Signature: i32Sig(1, 1),
		Wasm:      &WasmFunction{Body: NullInsVec},
	})
	in.Table = NewTable(1, 1)
	require.NoError(t, in.Table.PutElements(0, []FuncBits{NewFuncBits(1, false)}))

	_, err := in.Invoke(0, nil)
	require.Error(t, err)
}

func TestCallIndirectIntoHostFunctionTraps(t *testing.T) {
	body := []byte{
		OpI32Const, 0,
		OpCallIndirect, 0, 0x00,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(0, 0), nil, body)
	in.Types = append(in.Types, i32Sig(0, 0))
	in.Functions = append(in.Functions, Function{
		Signature: i32Sig(0, 0),
		Host:      func(args []uint64) ([]uint64, error) { return nil, nil },
	})
	in.Table = NewTable(1, 1)
	require.NoError(t, in.Table.PutElements(0, []FuncBits{NewFuncBits(1, false)}))

	_, err := in.Invoke(0, nil)
	require.Error(t, err)
}

func TestStackOverflowIsALimitError(t *testing.T) {
	body := []byte{
		OpLocalGet, 0,
		OpLocalGet, 0,
		OpI32Const, 1,
		OpI32Add,
		OpCall, 0,
		OpEnd,
	}
	in := singleFuncInstance(t, i32Sig(1, 1), nil, body)
	_, err := in.Invoke(0, []uint64{api.EncodeI32(0)})
	require.Error(t, err)
	werr, ok := err.(*wasmruntime.Error)
	require.True(t, ok)
	require.Equal(t, wasmruntime.KindLimitError, werr.Kind)
}
