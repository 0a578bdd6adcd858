package engine

import "github.com/wasmlite/wasmlite/internal/wasmruntime"

// Table is the module's function table: a sparse vector of optional
// function references used by call_indirect, grown by Grow and PutElements.
// Unpopulated slots are marked absent in present, and calling through one
// traps.
type Table struct {
	elems   []FuncBits
	present []bool
	max     uint32
}

// NewTable allocates a table with an initial size and an optional maximum
// (0 means unbounded).
func NewTable(initial, max uint32) *Table {
	return &Table{
		elems:   make([]FuncBits, initial),
		present: make([]bool, initial),
		max:     max,
	}
}

// Size is the current number of table slots.
func (t *Table) Size() uint32 { return uint32(len(t.elems)) }

// Grow appends delta empty slots, returning the previous size, or -1 if that
// would exceed the table's maximum.
func (t *Table) Grow(delta uint32) int32 {
	prev := t.Size()
	if t.max != 0 && uint64(prev)+uint64(delta) > uint64(t.max) {
		return -1
	}
	t.elems = append(t.elems, make([]FuncBits, delta)...)
	t.present = append(t.present, make([]bool, delta)...)
	return int32(prev)
}

// PutElements populates a run of table slots starting at offset, as an
// element segment does during instantiation. A write past the current size
// grows the table to at least offset+len(funcs), doubling the size rather
// than growing to the exact requirement. If the doubled size would exceed
// the table's declared maximum, it grows to exactly offset+len(funcs)
// instead, and fails if even that exceeds the maximum.
func (t *Table) PutElements(offset uint32, funcs []FuncBits) error {
	required := uint64(offset) + uint64(len(funcs))
	if required > uint64(len(t.elems)) {
		newSize := uint64(len(t.elems))
		if newSize == 0 {
			newSize = 1
		}
		for newSize < required {
			newSize *= 2
		}
		if t.max != 0 && newSize > uint64(t.max) {
			newSize = required
			if newSize > uint64(t.max) {
				return wasmruntime.LoadError("element segment out of table bounds")
			}
		}
		t.elems = append(t.elems, make([]FuncBits, newSize-uint64(len(t.elems)))...)
		t.present = append(t.present, make([]bool, newSize-uint64(len(t.present)))...)
	}
	for i, f := range funcs {
		t.elems[uint64(offset)+uint64(i)] = f
		t.present[uint64(offset)+uint64(i)] = true
	}
	return nil
}

// Get resolves a table index to a function reference for call_indirect,
// trapping if the index is out of bounds or the slot is empty.
func (t *Table) Get(index uint32) (FuncBits, error) {
	if index >= uint32(len(t.elems)) || !t.present[index] {
		return 0, wasmruntime.ErrInvalidTableAccess
	}
	return t.elems[index], nil
}
