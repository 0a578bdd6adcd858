package engine

import (
	"encoding/binary"
	"math"

	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

// PageSize is the WebAssembly page size: every Memory grows in units of
// 65536 bytes.
const PageSize = 65536

// MaxPages is the largest page count a 32-bit linear memory can reach.
const MaxPages = 65536

// Memory is the module's linear memory: a single contiguous, bounds-checked,
// byte-addressable buffer that grows only by whole pages and never shrinks.
// Effective addresses are carried as uint64 because a dynamic i32 base added
// to a static offset immediate can exceed the 32-bit range before the bounds
// check rejects it.
type Memory struct {
	data []byte
	// moduleMax is the module's own declared maximum (limits.maximum from
	// the memory section), capped to MaxPages. Exceeding it is ordinary
	// growth failure: Grow reports -1, as the module itself forbids it.
	moduleMax uint32
}

// NewMemory allocates a linear memory with an initial page count and an
// optional module-declared maximum (0 means "unbounded up to MaxPages").
func NewMemory(initialPages, moduleMax uint32) (*Memory, error) {
	if moduleMax == 0 || moduleMax > MaxPages {
		moduleMax = MaxPages
	}
	if initialPages > moduleMax {
		return nil, wasmruntime.LoadError("memory initial pages %d exceeds max %d", initialPages, moduleMax)
	}
	return &Memory{
		data:      make([]byte, uint64(initialPages)*PageSize),
		moduleMax: moduleMax,
	}, nil
}

// Size returns the current size in pages.
func (m *Memory) Size() uint32 { return uint32(len(m.data) / PageSize) }

// Grow attempts to grow the memory by delta pages, returning the previous
// page count, or -1 if growth would exceed the module's own declared
// maximum. This is module policy, checked independently of (and after)
// the interpreter-configured page ceiling, which the caller — the
// dispatcher's memory.grow handler — enforces as a trap before ever
// calling Grow; see Instance.limits.MaxPages.
func (m *Memory) Grow(delta uint32) int32 {
	cur := m.Size()
	if uint64(cur)+uint64(delta) > uint64(m.moduleMax) {
		return -1
	}
	prev := cur
	m.data = append(m.data, make([]byte, uint64(delta)*PageSize)...)
	return int32(prev)
}

func (m *Memory) bounds(offset uint64, width uint32) ([]byte, error) {
	end := offset + uint64(width)
	if end > uint64(len(m.data)) || end < offset {
		return nil, wasmruntime.ErrOutOfBoundsMemoryAccess
	}
	return m.data[offset:end], nil
}

// ReadByte loads a single unsigned byte.
func (m *Memory) ReadByte(offset uint64) (byte, error) {
	b, err := m.bounds(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte stores a single byte.
func (m *Memory) WriteByte(offset uint64, v byte) error {
	b, err := m.bounds(offset, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// ReadUint16 loads a little-endian u16.
func (m *Memory) ReadUint16(offset uint64) (uint16, error) {
	b, err := m.bounds(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// WriteUint16 stores a little-endian u16.
func (m *Memory) WriteUint16(offset uint64, v uint16) error {
	b, err := m.bounds(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

// ReadUint32 loads a little-endian u32.
func (m *Memory) ReadUint32(offset uint64) (uint32, error) {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// WriteUint32 stores a little-endian u32.
func (m *Memory) WriteUint32(offset uint64, v uint32) error {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// ReadUint64 loads a little-endian u64.
func (m *Memory) ReadUint64(offset uint64) (uint64, error) {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteUint64 stores a little-endian u64.
func (m *Memory) WriteUint64(offset uint64, v uint64) error {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// ReadFloat32 loads an IEEE-754 f32 from its little-endian bit pattern.
func (m *Memory) ReadFloat32(offset uint64) (float32, error) {
	v, err := m.ReadUint32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// WriteFloat32 stores an IEEE-754 f32 as its little-endian bit pattern.
func (m *Memory) WriteFloat32(offset uint64, v float32) error {
	return m.WriteUint32(offset, math.Float32bits(v))
}

// ReadFloat64 loads an IEEE-754 f64 from its little-endian bit pattern.
func (m *Memory) ReadFloat64(offset uint64) (float64, error) {
	v, err := m.ReadUint64(offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// WriteFloat64 stores an IEEE-754 f64 as its little-endian bit pattern.
func (m *Memory) WriteFloat64(offset uint64, v float64) error {
	return m.WriteUint64(offset, math.Float64bits(v))
}

// Read copies a byte range out of memory, for host-facing memory access.
func (m *Memory) Read(offset uint64, length uint32) ([]byte, error) {
	b, err := m.bounds(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b)
	return out, nil
}

// Write copies host-supplied bytes into memory.
func (m *Memory) Write(offset uint64, src []byte) error {
	b, err := m.bounds(offset, uint32(len(src)))
	if err != nil {
		return err
	}
	copy(b, src)
	return nil
}
