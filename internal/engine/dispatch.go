package engine

import (
	"math"
	"math/bits"

	"github.com/wasmlite/wasmlite/api"
	"github.com/wasmlite/wasmlite/internal/moremath"
	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

// signal reports how a body of instructions stopped running: it fell off
// the end, it is unwinding toward an enclosing label, or the function is
// returning. Control constructs nest by recursing into execBody, so a
// signal only needs to say how many more enclosing labels to unwind through
// (see the Design Notes on native recursion with a bounded depth).
type signal int

const (
	sigNone signal = iota
	sigBranch
	sigReturn
)

func (in *Instance) popI32() int32   { return int32(uint32(in.popValue())) }
func (in *Instance) pushI32(v int32) { in.pushValue(uint64(uint32(v))) }
func (in *Instance) popU32() uint32  { return uint32(in.popValue()) }
func (in *Instance) pushU32(v uint32) { in.pushValue(uint64(v)) }
func (in *Instance) popI64() int64   { return int64(in.popValue()) }
func (in *Instance) pushI64(v int64) { in.pushValue(uint64(v)) }
func (in *Instance) popU64() uint64  { return in.popValue() }
func (in *Instance) pushU64(v uint64) { in.pushValue(v) }
func (in *Instance) popBool() bool   { return in.popU32() != 0 }

func (in *Instance) popF32() float32 { return math.Float32frombits(in.popU32()) }
func (in *Instance) pushF32(v float32) { in.pushU32(math.Float32bits(v)) }
func (in *Instance) popF64() float64 { return math.Float64frombits(in.popU64()) }
func (in *Instance) pushF64(v float64) { in.pushU64(math.Float64bits(v)) }

func sameSignature(a, b api.FunctionType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Invoke calls the function at index funcIdx with the given encoded
// arguments and returns its encoded results. Traps raised anywhere in the
// call tree are recovered here and turned into a *wasmruntime.Error; the
// Instance remains usable afterward (a trap skips popFrame for every frame
// it unwinds through, so this recovery discards all of them at once by
// resetting the stack pointers it captured before the call began).
func (in *Instance) Invoke(funcIdx uint32, args []uint64) (results []uint64, err error) {
	if int(funcIdx) >= len(in.Functions) {
		return nil, wasmruntime.InvocationError("function index %d out of range", funcIdx)
	}
	savedSp, savedFrameSp, savedLabelSp := in.sp, in.frameSp, in.labelSp

	defer func() {
		if r := recover(); r != nil {
			in.sp, in.frameSp, in.labelSp = savedSp, savedFrameSp, savedLabelSp
			err = wasmruntime.Recover(r)
			results = nil
		}
	}()

	fn := &in.Functions[funcIdx]
	if len(args) != len(fn.Signature.Params) {
		return nil, wasmruntime.InvocationError(
			"function %d expects %d arguments, got %d", funcIdx, len(fn.Signature.Params), len(args))
	}
	for _, a := range args {
		in.pushValue(a)
	}
	in.callFunction(NewFuncBits(uint16(funcIdx), false), -1)

	nres := len(fn.Signature.Results)
	out := make([]uint64, nres)
	for i := nres - 1; i >= 0; i-- {
		out[i] = in.popValue()
	}
	return out, nil
}

// callFunction dispatches to a host callback or runs a wasm body, leaving
// exactly the callee's results on the value stack above where its
// parameters were. Arguments must already be pushed by the caller.
// wantTypeIdx is the type index call_indirect declared for this call site,
// or -1 for a direct call, which needs no signature check.
func (in *Instance) callFunction(fb FuncBits, wantTypeIdx int) {
	idx := fb.Index()
	if fb.IsTable() {
		resolved, err := in.Table.Get(uint32(idx))
		if err != nil {
			panic(err)
		}
		fb = resolved
		idx = fb.Index()

		if in.Functions[idx].IsHost() {
			panic(wasmruntime.ErrCallIndirectOverHostFunc)
		}
		if !sameSignature(in.Functions[idx].Signature, in.Types[wantTypeIdx]) {
			panic(wasmruntime.ErrIndirectCallTypeMismatch)
		}
	}

	fn := &in.Functions[idx]
	nparams := len(fn.Signature.Params)
	nresults := len(fn.Signature.Results)

	if fn.IsHost() {
		args := make([]uint64, nparams)
		for i := nparams - 1; i >= 0; i-- {
			args[i] = in.popValue()
		}
		res, err := fn.Host(args)
		if err != nil {
			panic(wasmruntime.Trap("%s", err.Error()))
		}
		for _, v := range res {
			in.pushValue(v)
		}
		return
	}

	w := fn.Wasm
	in.pushFrame(fb, nparams, len(w.LocalTypes))

	// The function body is itself an implicit block: push its entry label
	// so a `br`/`br_table` reaching all the way out of every nested
	// block/loop resolves against this label rather than underflowing into
	// the caller's own label arena. Branching to it behaves like falling
	// off the end of the function (an exit), exactly as for any other
	// non-loop block.
	in.pushLabel(in.sp, 0, nresults > 0, false)
	sig, lvl := in.execBody(w.Body)
	if sig == sigBranch && lvl != 0 {
		panic(wasmruntime.ErrInvalidBrTable)
	}
	in.popFrame(nresults)
}

// execBody runs vec from its first instruction. It returns sigNone if
// control fell off the end, sigReturn if a `return` was executed, or
// sigBranch with the number of additional enclosing labels still to unwind
// through if a `br`/`br_if`/`br_table` targeted an outer label.
func (in *Instance) execBody(vec InsVec) (signal, uint32) {
	var pc uint32
	size := vec.Size()

	for pc < size {
		ins := in.Pool.InsAt(vec, pc)
		pc++

		switch ins.Opcode() {
		case OpUnreachable:
			panic(wasmruntime.ErrUnreachable)
		case OpNop:
			// no-op

		case OpBlock:
			sig, lvl := in.runStructured(ins, false)
			if sig != sigNone {
				return sig, lvl
			}
		case OpLoop:
			sig, lvl := in.runStructured(ins, true)
			if sig != sigNone {
				return sig, lvl
			}
		case OpIf:
			cond := in.popBool()
			sig, lvl := in.runIf(ins, cond)
			if sig != sigNone {
				return sig, lvl
			}

		case OpBr:
			lvl := ins.Payload()
			in.unwindToLabel(lvl)
			return sigBranch, lvl
		case OpBrIf:
			lvl := ins.Payload()
			if in.popBool() {
				in.unwindToLabel(lvl)
				return sigBranch, lvl
			}
		case OpBrTable:
			n := uint32(ins.OperandSize()) - 1
			idx := in.popU32()
			var lvl uint32
			if idx < n {
				lvl = uint32(in.Pool.Operand(ins, idx))
			} else {
				lvl = uint32(in.Pool.Operand(ins, n))
			}
			in.unwindToLabel(lvl)
			return sigBranch, lvl
		case OpReturn:
			return sigReturn, 0

		case OpCall:
			in.callFunction(NewFuncBits(uint16(ins.Payload()), false), -1)
		case OpCallIndirect:
			typeIdx := int(ins.Payload())
			idx := in.popU32()
			in.callFunction(NewFuncBits(uint16(idx), true), typeIdx)

		case OpDrop:
			in.popValue()
		case OpSelect:
			cond := in.popBool()
			b := in.popValue()
			a := in.popValue()
			if cond {
				in.pushValue(a)
			} else {
				in.pushValue(b)
			}

		case OpLocalGet:
			in.pushValue(*in.localSlot(ins.Payload()))
		case OpLocalSet:
			*in.localSlot(ins.Payload()) = in.popValue()
		case OpLocalTee:
			*in.localSlot(ins.Payload()) = in.peekValue()
		case OpGlobalGet:
			in.pushValue(in.Globals[ins.Payload()])
		case OpGlobalSet:
			idx := ins.Payload()
			if !in.GlobalMut[idx] {
				panic(wasmruntime.ErrImmutableGlobalStore)
			}
			in.Globals[idx] = in.popValue()

		case OpMemorySize:
			in.pushI32(int32(in.Memory.Size()))
		case OpMemoryGrow:
			delta := in.popU32()
			if uint64(in.Memory.Size())+uint64(delta) > uint64(in.pageLimit()) {
				panic(wasmruntime.LimitError("memory.grow: interpreter page limit %d exceeded", in.pageLimit()))
			}
			in.pushI32(in.Memory.Grow(delta))

		case OpI32Const:
			in.pushI32(int32(ins.Payload()))
		case OpI64Const:
			in.pushI64(int64(in.Pool.Operand(ins, 0)))
		case OpF32Const:
			in.pushU32(ins.Payload())
		case OpF64Const:
			in.pushU64(in.Pool.Operand(ins, 0))

		default:
			in.execMemOrNumeric(ins)
		}
	}
	return sigNone, 0
}

// runStructured executes a block/loop body, restarting it when a branch
// targets this exact label and it is a loop.
func (in *Instance) runStructured(ins InsBits, isLoop bool) (signal, uint32) {
	_, arity := ins.ResultType()
	body := in.Pool.Branch0(ins)

	in.pushLabel(in.sp, 0, arity, isLoop)
	for {
		sig, lvl := in.execBody(body)

		switch sig {
		case sigNone:
			in.popLabel()
			return sigNone, 0
		case sigReturn:
			return sigReturn, 0
		case sigBranch:
			if lvl == 0 {
				if isLoop {
					// unwindToLabel already reset the operand stack to the
					// label's entry depth and kept the label on the stack;
					// just re-enter the body.
					continue
				}
				return sigNone, 0
			}
			return sigBranch, lvl - 1
		}
	}
}

// runIf executes an if/else, each branch behaving like a non-loop block.
func (in *Instance) runIf(ins InsBits, cond bool) (signal, uint32) {
	_, arity := ins.ResultType()
	var body InsVec
	if cond {
		body = in.Pool.Branch0(ins)
	} else {
		body = in.Pool.Branch1(ins)
		if body.IsNull() {
			return sigNone, 0
		}
	}

	in.pushLabel(in.sp, 0, arity, false)
	sig, lvl := in.execBody(body)

	switch sig {
	case sigNone:
		in.popLabel()
		return sigNone, 0
	case sigReturn:
		return sigReturn, 0
	case sigBranch:
		if lvl == 0 {
			return sigNone, 0
		}
		return sigBranch, lvl - 1
	}
	return sigNone, 0
}

// execMemOrNumeric handles every load/store and every numeric
// arithmetic/comparison/conversion opcode: the ones that carry no control
// flow and need only a handful of stack operands.
func (in *Instance) execMemOrNumeric(ins InsBits) {
	op := ins.Opcode()
	switch {
	case op >= OpI32Load && op <= OpI64Store32:
		in.execMemory(ins)
		return
	}

	switch op {
	// comparisons / eqz
	case OpI32Eqz:
		in.pushI32(boolToI32(in.popI32() == 0))
	case OpI32Eq:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a == b))
	case OpI32Ne:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a != b))
	case OpI32LtS:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a < b))
	case OpI32LtU:
		b, a := in.popU32(), in.popU32()
		in.pushI32(boolToI32(a < b))
	case OpI32GtS:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a > b))
	case OpI32GtU:
		b, a := in.popU32(), in.popU32()
		in.pushI32(boolToI32(a > b))
	case OpI32LeS:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a <= b))
	case OpI32LeU:
		b, a := in.popU32(), in.popU32()
		in.pushI32(boolToI32(a <= b))
	case OpI32GeS:
		b, a := in.popI32(), in.popI32()
		in.pushI32(boolToI32(a >= b))
	case OpI32GeU:
		b, a := in.popU32(), in.popU32()
		in.pushI32(boolToI32(a >= b))

	case OpI64Eqz:
		in.pushI32(boolToI32(in.popI64() == 0))
	case OpI64Eq:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a == b))
	case OpI64Ne:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a != b))
	case OpI64LtS:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a < b))
	case OpI64LtU:
		b, a := in.popU64(), in.popU64()
		in.pushI32(boolToI32(a < b))
	case OpI64GtS:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a > b))
	case OpI64GtU:
		b, a := in.popU64(), in.popU64()
		in.pushI32(boolToI32(a > b))
	case OpI64LeS:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a <= b))
	case OpI64LeU:
		b, a := in.popU64(), in.popU64()
		in.pushI32(boolToI32(a <= b))
	case OpI64GeS:
		b, a := in.popI64(), in.popI64()
		in.pushI32(boolToI32(a >= b))
	case OpI64GeU:
		b, a := in.popU64(), in.popU64()
		in.pushI32(boolToI32(a >= b))

	case OpF32Eq:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a == b))
	case OpF32Ne:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a != b))
	case OpF32Lt:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a < b))
	case OpF32Gt:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a > b))
	case OpF32Le:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a <= b))
	case OpF32Ge:
		b, a := in.popF32(), in.popF32()
		in.pushI32(boolToI32(a >= b))

	case OpF64Eq:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a == b))
	case OpF64Ne:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a != b))
	case OpF64Lt:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a < b))
	case OpF64Gt:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a > b))
	case OpF64Le:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a <= b))
	case OpF64Ge:
		b, a := in.popF64(), in.popF64()
		in.pushI32(boolToI32(a >= b))

	// i32 arithmetic
	case OpI32Clz:
		in.pushI32(int32(bits.LeadingZeros32(in.popU32())))
	case OpI32Ctz:
		in.pushI32(int32(bits.TrailingZeros32(in.popU32())))
	case OpI32Popcnt:
		in.pushI32(int32(bits.OnesCount32(in.popU32())))
	case OpI32Add:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a + b)
	case OpI32Sub:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a - b)
	case OpI32Mul:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a * b)
	case OpI32DivS:
		b, a := in.popI32(), in.popI32()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		if a == math.MinInt32 && b == -1 {
			panic(wasmruntime.ErrIntegerOverflow)
		}
		in.pushI32(a / b)
	case OpI32DivU:
		b, a := in.popU32(), in.popU32()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushU32(a / b)
	case OpI32RemS:
		b, a := in.popI32(), in.popI32()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushI32(a % b)
	case OpI32RemU:
		b, a := in.popU32(), in.popU32()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushU32(a % b)
	case OpI32And:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a & b)
	case OpI32Or:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a | b)
	case OpI32Xor:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a ^ b)
	case OpI32Shl:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a << (b & 31))
	case OpI32ShrS:
		b, a := in.popU32(), in.popI32()
		in.pushI32(a >> (b & 31))
	case OpI32ShrU:
		b, a := in.popU32(), in.popU32()
		in.pushU32(a >> (b & 31))
	case OpI32Rotl:
		b, a := in.popU32(), in.popU32()
		in.pushU32(bits.RotateLeft32(a, int(b&31)))
	case OpI32Rotr:
		b, a := in.popU32(), in.popU32()
		in.pushU32(bits.RotateLeft32(a, -int(b&31)))

	// i64 arithmetic
	case OpI64Clz:
		in.pushI64(int64(bits.LeadingZeros64(in.popU64())))
	case OpI64Ctz:
		in.pushI64(int64(bits.TrailingZeros64(in.popU64())))
	case OpI64Popcnt:
		in.pushI64(int64(bits.OnesCount64(in.popU64())))
	case OpI64Add:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a + b)
	case OpI64Sub:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a - b)
	case OpI64Mul:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a * b)
	case OpI64DivS:
		b, a := in.popI64(), in.popI64()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		if a == math.MinInt64 && b == -1 {
			panic(wasmruntime.ErrIntegerOverflow)
		}
		in.pushI64(a / b)
	case OpI64DivU:
		b, a := in.popU64(), in.popU64()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushU64(a / b)
	case OpI64RemS:
		b, a := in.popI64(), in.popI64()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushI64(a % b)
	case OpI64RemU:
		b, a := in.popU64(), in.popU64()
		if b == 0 {
			panic(wasmruntime.ErrIntegerDivideByZero)
		}
		in.pushU64(a % b)
	case OpI64And:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a & b)
	case OpI64Or:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a | b)
	case OpI64Xor:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a ^ b)
	case OpI64Shl:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a << (b & 63))
	case OpI64ShrS:
		b, a := in.popU64(), in.popI64()
		in.pushI64(a >> (b & 63))
	case OpI64ShrU:
		b, a := in.popU64(), in.popU64()
		in.pushU64(a >> (b & 63))
	case OpI64Rotl:
		b, a := in.popU64(), in.popU64()
		in.pushU64(bits.RotateLeft64(a, int(b&63)))
	case OpI64Rotr:
		b, a := in.popU64(), in.popU64()
		in.pushU64(bits.RotateLeft64(a, -int(b&63)))

	// f32 arithmetic
	case OpF32Abs:
		in.pushF32(float32(math.Abs(float64(in.popF32()))))
	case OpF32Neg:
		in.pushF32(-in.popF32())
	case OpF32Ceil:
		in.pushF32(float32(math.Ceil(float64(in.popF32()))))
	case OpF32Floor:
		in.pushF32(float32(math.Floor(float64(in.popF32()))))
	case OpF32Trunc:
		in.pushF32(float32(math.Trunc(float64(in.popF32()))))
	case OpF32Nearest:
		in.pushF32(moremath.WasmCompatNearestF32(in.popF32()))
	case OpF32Sqrt:
		in.pushF32(float32(math.Sqrt(float64(in.popF32()))))
	case OpF32Add:
		b, a := in.popF32(), in.popF32()
		in.pushF32(a + b)
	case OpF32Sub:
		b, a := in.popF32(), in.popF32()
		in.pushF32(a - b)
	case OpF32Mul:
		b, a := in.popF32(), in.popF32()
		in.pushF32(a * b)
	case OpF32Div:
		b, a := in.popF32(), in.popF32()
		in.pushF32(a / b)
	case OpF32Min:
		b, a := in.popF32(), in.popF32()
		in.pushF32(moremath.WasmCompatMin32(a, b))
	case OpF32Max:
		b, a := in.popF32(), in.popF32()
		in.pushF32(moremath.WasmCompatMax32(a, b))
	case OpF32Copysign:
		b, a := in.popF32(), in.popF32()
		in.pushF32(float32(math.Copysign(float64(a), float64(b))))

	// f64 arithmetic
	case OpF64Abs:
		in.pushF64(math.Abs(in.popF64()))
	case OpF64Neg:
		in.pushF64(-in.popF64())
	case OpF64Ceil:
		in.pushF64(math.Ceil(in.popF64()))
	case OpF64Floor:
		in.pushF64(math.Floor(in.popF64()))
	case OpF64Trunc:
		in.pushF64(math.Trunc(in.popF64()))
	case OpF64Nearest:
		in.pushF64(moremath.WasmCompatNearestF64(in.popF64()))
	case OpF64Sqrt:
		in.pushF64(math.Sqrt(in.popF64()))
	case OpF64Add:
		b, a := in.popF64(), in.popF64()
		in.pushF64(a + b)
	case OpF64Sub:
		b, a := in.popF64(), in.popF64()
		in.pushF64(a - b)
	case OpF64Mul:
		b, a := in.popF64(), in.popF64()
		in.pushF64(a * b)
	case OpF64Div:
		b, a := in.popF64(), in.popF64()
		in.pushF64(a / b)
	case OpF64Min:
		b, a := in.popF64(), in.popF64()
		in.pushF64(moremath.WasmCompatMin(a, b))
	case OpF64Max:
		b, a := in.popF64(), in.popF64()
		in.pushF64(moremath.WasmCompatMax(a, b))
	case OpF64Copysign:
		b, a := in.popF64(), in.popF64()
		in.pushF64(math.Copysign(a, b))

	// conversions
	case OpI32WrapI64:
		in.pushI32(int32(in.popI64()))
	case OpI32TruncF32S:
		in.pushI32(truncToI32(float64(in.popF32())))
	case OpI32TruncF32U:
		in.pushU32(truncToU32(float64(in.popF32())))
	case OpI32TruncF64S:
		in.pushI32(truncToI32(in.popF64()))
	case OpI32TruncF64U:
		in.pushU32(truncToU32(in.popF64()))
	case OpI64ExtendI32S:
		in.pushI64(int64(in.popI32()))
	case OpI64ExtendI32U:
		in.pushI64(int64(in.popU32()))
	case OpI64TruncF32S:
		in.pushI64(truncToI64(float64(in.popF32())))
	case OpI64TruncF32U:
		in.pushU64(truncToU64(float64(in.popF32())))
	case OpI64TruncF64S:
		in.pushI64(truncToI64(in.popF64()))
	case OpI64TruncF64U:
		in.pushU64(truncToU64(in.popF64()))
	case OpF32ConvertI32S:
		in.pushF32(float32(in.popI32()))
	case OpF32ConvertI32U:
		in.pushF32(float32(in.popU32()))
	case OpF32ConvertI64S:
		in.pushF32(float32(in.popI64()))
	case OpF32ConvertI64U:
		in.pushF32(float32(in.popU64()))
	case OpF32DemoteF64:
		in.pushF32(float32(in.popF64()))
	case OpF64ConvertI32S:
		in.pushF64(float64(in.popI32()))
	case OpF64ConvertI32U:
		in.pushF64(float64(in.popU32()))
	case OpF64ConvertI64S:
		in.pushF64(float64(in.popI64()))
	case OpF64ConvertI64U:
		in.pushF64(float64(in.popU64()))
	case OpF64PromoteF32:
		in.pushF64(float64(in.popF32()))
	case OpI32ReinterpretF32:
		in.pushU32(math.Float32bits(in.popF32()))
	case OpI64ReinterpretF64:
		in.pushU64(math.Float64bits(in.popF64()))
	case OpF32ReinterpretI32:
		in.pushF32(math.Float32frombits(in.popU32()))
	case OpF64ReinterpretI64:
		in.pushF64(math.Float64frombits(in.popU64()))

	default:
		panic(wasmruntime.LoadError("unimplemented opcode %#x reached dispatcher", op))
	}
}

func truncToI32(f float64) int32 {
	if math.IsNaN(f) {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	v := math.Trunc(f)
	if v < math.MinInt32 || v > math.MaxInt32 {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	return int32(v)
}

func truncToU32(f float64) uint32 {
	if math.IsNaN(f) {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	v := math.Trunc(f)
	if v < 0 || v > math.MaxUint32 {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	return uint32(v)
}

func truncToI64(f float64) int64 {
	if math.IsNaN(f) {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	v := math.Trunc(f)
	if v < math.MinInt64 || v >= 1<<63 {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	return int64(v)
}

func truncToU64(f float64) uint64 {
	if math.IsNaN(f) {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	v := math.Trunc(f)
	if v < 0 || v >= 1<<64 {
		panic(wasmruntime.ErrInvalidConversionToInteger)
	}
	return uint64(v)
}

// execMemory handles every load/store opcode: pop the dynamic base address,
// add the static offset immediate, and access memory at that effective
// address with the width and sign-extension the opcode names.
func (in *Instance) execMemory(ins InsBits) {
	op := ins.Opcode()
	addr := func() uint64 { return uint64(in.popU32()) + uint64(ins.Payload()) }

	raise := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	switch op {
	case OpI32Load:
		v, err := in.Memory.ReadUint32(addr())
		raise(err)
		in.pushU32(v)
	case OpI64Load:
		v, err := in.Memory.ReadUint64(addr())
		raise(err)
		in.pushU64(v)
	case OpF32Load:
		v, err := in.Memory.ReadFloat32(addr())
		raise(err)
		in.pushF32(v)
	case OpF64Load:
		v, err := in.Memory.ReadFloat64(addr())
		raise(err)
		in.pushF64(v)
	case OpI32Load8S:
		v, err := in.Memory.ReadByte(addr())
		raise(err)
		in.pushI32(int32(int8(v)))
	case OpI32Load8U:
		v, err := in.Memory.ReadByte(addr())
		raise(err)
		in.pushU32(uint32(v))
	case OpI32Load16S:
		v, err := in.Memory.ReadUint16(addr())
		raise(err)
		in.pushI32(int32(int16(v)))
	case OpI32Load16U:
		v, err := in.Memory.ReadUint16(addr())
		raise(err)
		in.pushU32(uint32(v))
	case OpI64Load8S:
		v, err := in.Memory.ReadByte(addr())
		raise(err)
		in.pushI64(int64(int8(v)))
	case OpI64Load8U:
		v, err := in.Memory.ReadByte(addr())
		raise(err)
		in.pushU64(uint64(v))
	case OpI64Load16S:
		v, err := in.Memory.ReadUint16(addr())
		raise(err)
		in.pushI64(int64(int16(v)))
	case OpI64Load16U:
		v, err := in.Memory.ReadUint16(addr())
		raise(err)
		in.pushU64(uint64(v))
	case OpI64Load32S:
		v, err := in.Memory.ReadUint32(addr())
		raise(err)
		in.pushI64(int64(int32(v)))
	case OpI64Load32U:
		v, err := in.Memory.ReadUint32(addr())
		raise(err)
		in.pushU64(uint64(v))

	case OpI32Store:
		v := in.popU32()
		raise(in.Memory.WriteUint32(addr(), v))
	case OpI64Store:
		v := in.popU64()
		raise(in.Memory.WriteUint64(addr(), v))
	case OpF32Store:
		v := in.popF32()
		raise(in.Memory.WriteFloat32(addr(), v))
	case OpF64Store:
		v := in.popF64()
		raise(in.Memory.WriteFloat64(addr(), v))
	case OpI32Store8:
		v := in.popU32()
		raise(in.Memory.WriteByte(addr(), byte(v)))
	case OpI32Store16:
		v := in.popU32()
		raise(in.Memory.WriteUint16(addr(), uint16(v)))
	case OpI64Store8:
		v := in.popU64()
		raise(in.Memory.WriteByte(addr(), byte(v)))
	case OpI64Store16:
		v := in.popU64()
		raise(in.Memory.WriteUint16(addr(), uint16(v)))
	case OpI64Store32:
		v := in.popU64()
		raise(in.Memory.WriteUint32(addr(), uint32(v)))
	}
}
