package engine

import (
	"github.com/wasmlite/wasmlite/api"
	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

// HostFunction is a trap-only host callback: it receives the raw encoded
// arguments and must return encoded results matching its signature, or an
// error which the engine turns into a trap.
type HostFunction func(args []uint64) ([]uint64, error)

// WasmFunction is a function defined by the module itself: a slice of the
// shared instruction pool plus the locals it declares beyond its parameters.
type WasmFunction struct {
	Body       InsVec
	LocalTypes []api.ValueType // declared locals only, not parameters
}

// Function is a tagged union of a module-defined function and a host
// function, the two things FuncBits can refer to.
type Function struct {
	Signature api.FunctionType
	Wasm      *WasmFunction // nil for a host function
	Host      HostFunction  // nil for a wasm function
}

// IsHost reports whether this Function is a host callback rather than a
// decoded wasm body.
func (f *Function) IsHost() bool { return f.Host != nil }

// Limits bounds every preallocated arena an Instance owns, plus the one
// arena that is allowed to grow at runtime: linear memory. All four are
// fixed at creation time. MaxPages is the interpreter's own ceiling on
// memory.grow, independent of whatever maximum the module itself declares
// (0 means "no extra restriction beyond MaxPages pages"); exceeding it is a
// LimitError trap, never the ordinary -1 memory.grow reports when the
// module's own declared maximum is exceeded.
type Limits struct {
	MaxValueStack uint32
	MaxFrames     uint32
	MaxLabels     uint32
	MaxPages      uint32
}

// DefaultLimits mirrors the depth a native Go goroutine stack can sustain
// comfortably while still catching runaway recursion well before it would
// exhaust memory.
var DefaultLimits = Limits{
	MaxValueStack: 1 << 16,
	MaxFrames:     1 << 12,
	MaxLabels:     1 << 14,
	MaxPages:      MaxPages,
}

// pageLimit resolves the effective interpreter-configured page ceiling: 0
// means "use the full 32-bit address space", same convention Memory itself
// uses for a module's declared maximum of 0.
func (in *Instance) pageLimit() uint32 {
	if in.limits.MaxPages == 0 {
		return MaxPages
	}
	return in.limits.MaxPages
}

// Instance is one instantiated module: its linear memory, table, globals,
// functions, and the preallocated arenas the frame/label machine runs
// against. Every arena here is fixed-size, allocated once in NewInstance and never
// reallocated, per the no-heap-on-the-hot-path design the bit-packed
// descriptors exist to support.
type Instance struct {
	Types     []api.FunctionType
	Functions []Function
	Memory    *Memory
	Table     *Table
	Globals   []uint64
	GlobalMut []bool
	Pool      *Pool

	StartFunc int32 // -1 if the module declares no start function

	values  []uint64
	sp      uint32
	labels  []LabelData
	labelSp uint32
	frames  []FrameData
	offsets []Offset
	frameSp uint32

	limits Limits
}

// NewInstance allocates an Instance's runtime arenas. The module data
// (Types, Functions, Memory, Table, Globals, Pool) must be filled in by the
// loader before Invoke is called.
func NewInstance(limits Limits) *Instance {
	return &Instance{
		StartFunc: -1,
		values:    make([]uint64, limits.MaxValueStack),
		labels:    make([]LabelData, limits.MaxLabels),
		frames:    make([]FrameData, limits.MaxFrames),
		offsets:   make([]Offset, limits.MaxFrames),
		limits:    limits,
	}
}

func (in *Instance) pushValue(v uint64) {
	if in.sp >= uint32(len(in.values)) {
		panic(wasmruntime.ErrStackOverflow)
	}
	in.values[in.sp] = v
	in.sp++
}

func (in *Instance) popValue() uint64 {
	if in.sp == 0 {
		panic(wasmruntime.ErrStackUnderflow)
	}
	in.sp--
	return in.values[in.sp]
}

func (in *Instance) peekValue() uint64 {
	if in.sp == 0 {
		panic(wasmruntime.ErrStackUnderflow)
	}
	return in.values[in.sp-1]
}

// pushFrame reserves stack space for localCount locals (zero-initialized)
// plus the params already sitting on the value stack, and records a
// FrameData/Offset pair; popFrame restores the caller's view from the Offset.
func (in *Instance) pushFrame(fn FuncBits, paramCount, localCount int) {
	if in.frameSp >= uint32(len(in.frames)) {
		panic(wasmruntime.ErrFrameOverflow)
	}
	stackBase := in.sp - uint32(paramCount)
	for i := 0; i < localCount; i++ {
		in.pushValue(0)
	}

	in.offsets[in.frameSp] = NewOffset(in.labelSp, stackBase)
	in.frames[in.frameSp] = NewFrameData(uint16(in.labelSp), uint16(paramCount+localCount), uint16(in.sp), fn)
	in.frameSp++
}

func (in *Instance) currentFrame() (FrameData, Offset) {
	return in.frames[in.frameSp-1], in.offsets[in.frameSp-1]
}

// popFrame truncates the value stack back to the frame's base, preserving
// only the top `results` values (the callee's return values).
func (in *Instance) popFrame(results int) {
	_, off := in.currentFrame()
	in.frameSp--
	in.labelSp = off.LabelBase()

	base := off.StackBase()
	src := in.sp - uint32(results)
	for i := 0; i < results; i++ {
		in.values[base+uint32(i)] = in.values[src+uint32(i)]
	}
	in.sp = base + uint32(results)
}

func (in *Instance) localSlot(index uint32) *uint64 {
	_, off := in.currentFrame()
	return &in.values[off.StackBase()+index]
}

// pushLabel records a branch target: stackPc is the operand-stack depth to
// restore on branch, startPc the label's entry program counter (recorded
// only; a loop branch always re-enters its body at the first instruction).
func (in *Instance) pushLabel(stackDepth uint32, startPc uint16, arity, isLoop bool) {
	if in.labelSp >= uint32(len(in.labels)) {
		panic(wasmruntime.ErrLabelOverflow)
	}
	in.labels[in.labelSp] = NewLabelData(uint16(stackDepth), 0, startPc, arity, isLoop)
	in.labelSp++
}

func (in *Instance) popLabel() LabelData {
	off := in.currentFrameLabelBase()
	if in.labelSp <= off {
		panic(wasmruntime.ErrLabelUnderflow)
	}
	in.labelSp--
	return in.labels[in.labelSp]
}

func (in *Instance) currentFrameLabelBase() uint32 {
	_, off := in.currentFrame()
	return off.LabelBase()
}

// unwindToLabel pops down to and including the target label, restoring the
// operand stack depth the label recorded, and reports where execution
// should resume: the loop's start (isLoop) or just past the label's block.
func (in *Instance) unwindToLabel(l uint32) (resumeAtStart bool, target LabelData) {
	for i := uint32(0); i < l; i++ {
		in.popLabel()
	}
	target = in.labels[in.labelSp-1]
	if !target.IsLoop() {
		in.labelSp--
	}

	stackDepth := uint32(target.StackPc())
	if target.Arity() {
		v := in.peekValue()
		in.sp = stackDepth
		in.pushValue(v)
	} else {
		in.sp = stackDepth
	}
	return target.IsLoop(), target
}
