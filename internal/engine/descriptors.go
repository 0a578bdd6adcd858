package engine

// This file defines the packed 64-bit descriptors the frame/label machine
// and instruction pool use to avoid any per-frame or per-instruction heap
// allocation on the hot path. Each type is a thin wrapper around a uint64
// with accessor methods that pack/unpack fixed-width bitfields; the runtime
// arrays that hold them (see instance.go) are plain contiguous []uint64 or
// typed slices, never slices of pointers.

// funcIndexMask isolates the low 15 bits of a FuncBits word.
const funcIndexMask = 0x7fff
const funcIsTableMask = 0x8000

// FuncBits is a 16-bit tagged reference to a function: either a direct index
// into Instance.functions, or (when IsTable is set) an index to resolve
// through the table at call_indirect time.
//
//	{ isTable:1, index:15 }
type FuncBits uint16

// NewFuncBits packs a function index. index must be ≤ 0x7fff.
func NewFuncBits(index uint16, isTable bool) FuncBits {
	b := index & funcIndexMask
	if isTable {
		b |= funcIsTableMask
	}
	return FuncBits(b)
}

// IsTable reports whether this reference must be resolved through the table.
func (b FuncBits) IsTable() bool { return uint16(b)&funcIsTableMask != 0 }

// Index is the direct function index, or the table index when IsTable.
func (b FuncBits) Index() uint16 { return uint16(b) & funcIndexMask }

const (
	frameLabelSizeShift = 48
	frameLocalSizeShift = 32
	frameStackSizeShift = 16
	frameFuncBitsShift  = 0
	frame16Mask         = 0xffff
)

// FrameData describes a frame. pushFrame records one for each new frame:
// the label depth and value-stack height at push time, the new frame's
// parameter-plus-local count, and its FuncBits. popFrame does not read it
// back; the caller's view is restored from the frame's Offset.
//
//	{ labelSize:16, localSize:16, stackSize:16, funcBits:16 }
type FrameData uint64

// NewFrameData packs a frame snapshot.
func NewFrameData(labelSize, localSize, stackSize uint16, funcBits FuncBits) FrameData {
	return FrameData(uint64(labelSize)<<frameLabelSizeShift |
		uint64(localSize)<<frameLocalSizeShift |
		uint64(stackSize)<<frameStackSizeShift |
		uint64(funcBits)<<frameFuncBitsShift)
}

func (f FrameData) LabelSize() uint16 { return uint16((uint64(f) >> frameLabelSizeShift) & frame16Mask) }
func (f FrameData) LocalSize() uint16 { return uint16((uint64(f) >> frameLocalSizeShift) & frame16Mask) }
func (f FrameData) StackSize() uint16 { return uint16((uint64(f) >> frameStackSizeShift) & frame16Mask) }
func (f FrameData) FuncBits() FuncBits {
	return FuncBits((uint64(f) >> frameFuncBitsShift) & frame16Mask)
}

const (
	labelStackPcShift = 48
	labelLabelPcShift = 32
	labelStartPcShift = 16
	labelArityBit     = 1
	labelLoopBit      = 0
)

// LabelData describes a label (a branch target); pushLabel writes one into
// the label arena when the label is entered.
//
//	{ stackPc:16, labelPc:16, startPc:16, reserved:14, arity:1, isLoop:1 }
type LabelData uint64

// NewLabelData packs a label descriptor. startPc records the label's entry
// program counter; the dispatcher does not read it or labelPc back.
func NewLabelData(stackPc, labelPc, startPc uint16, arity, isLoop bool) LabelData {
	v := uint64(stackPc)<<labelStackPcShift | uint64(labelPc)<<labelLabelPcShift | uint64(startPc)<<labelStartPcShift
	if arity {
		v |= 1 << labelArityBit
	}
	if isLoop {
		v |= 1 << labelLoopBit
	}
	return LabelData(v)
}

func (l LabelData) StackPc() uint16 { return uint16((uint64(l) >> labelStackPcShift) & frame16Mask) }
func (l LabelData) LabelPc() uint16 { return uint16((uint64(l) >> labelLabelPcShift) & frame16Mask) }
func (l LabelData) StartPc() uint16 { return uint16((uint64(l) >> labelStartPcShift) & frame16Mask) }
func (l LabelData) Arity() bool     { return uint64(l)&(1<<labelArityBit) != 0 }
func (l LabelData) IsLoop() bool    { return uint64(l)&(1<<labelLoopBit) != 0 }

const (
	offsetStackBaseMask  = 0x7fffffff
	offsetLabelBaseShift = 32
)

// Offset holds the base indices into the label and stack arenas for a frame.
//
//	{ labelBase:32, stackBase:32 }
type Offset uint64

// NewOffset packs a frame's arena bases. Both bases must fit in 31 bits:
// the top bit of each half is reserved to keep the packed value free of
// sign-extension surprises if ever treated as int64.
func NewOffset(labelBase, stackBase uint32) Offset {
	return Offset(uint64(labelBase)<<offsetLabelBaseShift | uint64(stackBase&offsetStackBaseMask))
}

func (o Offset) LabelBase() uint32 { return uint32(uint64(o) >> offsetLabelBaseShift) }
func (o Offset) StackBase() uint32 { return uint32(uint64(o) & offsetStackBaseMask) }
