package engine

import "github.com/wasmlite/wasmlite/api"

// ExportKind tags what an export entry refers to.
type ExportKind byte

const (
	ExportFunc   ExportKind = 0x00
	ExportTable  ExportKind = 0x01
	ExportMemory ExportKind = 0x02
	ExportGlobal ExportKind = 0x03
)

// Export is one entry of the module's export section: a name bound to an
// index into one of the module's four index spaces.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Module is the fully decoded, not-yet-instantiated result of reading a
// binary module: everything Instantiate needs to build a runnable Instance.
// A Module carries no per-call runtime state (the value stack, frames, and
// labels all belong to the Instance), so one decoded Module can seed many
// independent Instances.
type Module struct {
	Types     []api.FunctionType
	Functions []Function
	Memory    *Memory
	Table     *Table
	Globals   []uint64
	GlobalMut []bool
	Pool      *Pool
	Exports   []Export
	StartFunc int32
}

// Instantiate builds a fresh, independent Instance from this Module: its
// own value stack, frame arena, and label arena, and its own copies of the
// declared memory, table, and global values, sharing only the Module's
// immutable instruction pool, types, functions, and global mutability flags.
func (m *Module) Instantiate(limits Limits) *Instance {
	in := NewInstance(limits)
	in.Types = m.Types
	in.Functions = m.Functions
	mem := *m.Memory
	mem.data = append([]byte(nil), m.Memory.data...)
	in.Memory = &mem
	tbl := *m.Table
	tbl.elems = append([]FuncBits(nil), m.Table.elems...)
	tbl.present = append([]bool(nil), m.Table.present...)
	in.Table = &tbl
	in.Globals = append([]uint64(nil), m.Globals...)
	in.GlobalMut = m.GlobalMut
	in.Pool = m.Pool
	in.StartFunc = m.StartFunc
	return in
}

// ExportedFunc resolves an export name to a function index, reporting false
// if the export doesn't exist or doesn't name a function.
func (m *Module) ExportedFunc(name string) (uint32, bool) {
	for _, e := range m.Exports {
		if e.Kind == ExportFunc && e.Name == name {
			return e.Index, true
		}
	}
	return 0, false
}
