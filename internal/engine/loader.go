package engine

import (
	"bytes"
	"encoding/binary"

	"github.com/wasmlite/wasmlite/api"
	"github.com/wasmlite/wasmlite/internal/leb128"
	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}
var version = []byte{0x01, 0x00, 0x00, 0x00}

const (
	importKindFunc   byte = 0x00
	importKindTable  byte = 0x01
	importKindMemory byte = 0x02
	importKindGlobal byte = 0x03

	elemKindFuncref byte = 0x70
)

// DecodeModule decodes a WebAssembly 1.0 (MVP) binary module into a Module:
// the header, then the type, import, function, table, memory, global,
// export, start, element, code, and data sections. Every section is
// optional. Each section is decoded as it is met; their relative order is
// not checked. A custom section (id 0) may appear anywhere and is skipped.
func DecodeModule(data []byte) (*Module, error) {
	c := newCursor(data)

	hdr := make([]byte, 4)
	for i := range hdr {
		b, ok := c.next()
		if !ok {
			return nil, wasmruntime.LoadError("truncated module header")
		}
		hdr[i] = b
	}
	if !bytes.Equal(hdr, magic) {
		return nil, wasmruntime.LoadError("not a wasm module: bad magic")
	}
	for i := range hdr {
		b, ok := c.next()
		if !ok {
			return nil, wasmruntime.LoadError("truncated module header")
		}
		hdr[i] = b
	}
	if !bytes.Equal(hdr, version) {
		return nil, wasmruntime.LoadError("unsupported wasm version")
	}

	m := &Module{Pool: NewPool(), StartFunc: -1}
	var funcTypeIdx []uint32 // type index per module-defined (non-imported) function
	var codeBodies [][]byte

	for {
		id, ok := c.next()
		if !ok {
			break
		}
		size, _, err := leb128.DecodeUint32(c)
		if err != nil {
			return nil, wasmruntime.LoadError("decode section %d size: %v", id, err)
		}
		if c.pos+int(size) > len(c.data) {
			return nil, wasmruntime.LoadError("section %d overruns module", id)
		}
		payload := c.data[c.pos : c.pos+int(size)]
		c.pos += int(size)
		sc := newCursor(payload)

		switch id {
		case SectionCustom:
			// Skipped: custom sections carry no semantics the core
			// interpreter needs.

		case SectionType:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			m.Types = make([]api.FunctionType, n)
			for i := uint32(0); i < n; i++ {
				ft, err := decodeFuncType(sc)
				if err != nil {
					return nil, err
				}
				m.Types[i] = ft
			}

		case SectionImport:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				modName, err := readName(sc)
				if err != nil {
					return nil, err
				}
				fieldName, err := readName(sc)
				if err != nil {
					return nil, err
				}
				kind, ok := sc.next()
				if !ok {
					return nil, wasmruntime.LoadError("truncated import entry")
				}
				switch kind {
				case importKindFunc:
					typeIdx, _, err := leb128.DecodeUint32(sc)
					if err != nil {
						return nil, err
					}
					if int(typeIdx) >= len(m.Types) {
						return nil, wasmruntime.LoadError("import %s.%s: type index out of range", modName, fieldName)
					}
					sig := m.Types[typeIdx]
					m.Functions = append(m.Functions, Function{
						Signature: sig,
						Host:      trapHostImport(modName, fieldName),
					})
				default:
					return nil, wasmruntime.LoadError(
						"import %s.%s: only function imports are supported", modName, fieldName)
				}
			}

		case SectionFunction:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			funcTypeIdx = make([]uint32, n)
			for i := uint32(0); i < n; i++ {
				idx, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				funcTypeIdx[i] = idx
			}

		case SectionTable:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			if n > 1 {
				return nil, wasmruntime.LoadError("multiple tables are not supported")
			}
			for i := uint32(0); i < n; i++ {
				elemKind, ok := sc.next()
				if !ok || elemKind != elemKindFuncref {
					return nil, wasmruntime.LoadError("unsupported table element type")
				}
				min, max, err := decodeLimits(sc)
				if err != nil {
					return nil, err
				}
				m.Table = NewTable(min, max)
			}

		case SectionMemory:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			if n > 1 {
				return nil, wasmruntime.LoadError("multiple memories are not supported")
			}
			for i := uint32(0); i < n; i++ {
				min, max, err := decodeLimits(sc)
				if err != nil {
					return nil, err
				}
				mem, err := NewMemory(min, max)
				if err != nil {
					return nil, err
				}
				m.Memory = mem
			}

		case SectionGlobal:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			m.Globals = make([]uint64, n)
			m.GlobalMut = make([]bool, n)
			for i := uint32(0); i < n; i++ {
				_, ok := sc.next() // valtype; every encodable constant self-describes its width
				if !ok {
					return nil, wasmruntime.LoadError("truncated global entry")
				}
				mut, ok := sc.next()
				if !ok {
					return nil, wasmruntime.LoadError("truncated global entry")
				}
				v, err := evalConstExpr(sc)
				if err != nil {
					return nil, err
				}
				m.Globals[i] = v
				m.GlobalMut[i] = mut == 1
			}

		case SectionExport:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			m.Exports = make([]Export, n)
			for i := uint32(0); i < n; i++ {
				name, err := readName(sc)
				if err != nil {
					return nil, err
				}
				kind, ok := sc.next()
				if !ok {
					return nil, wasmruntime.LoadError("truncated export entry")
				}
				idx, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				m.Exports[i] = Export{Name: name, Kind: ExportKind(kind), Index: idx}
			}

		case SectionStart:
			idx, _, err := leb128.DecodeUint32(sc)
			if err != nil {
				return nil, err
			}
			m.StartFunc = int32(idx)

		case SectionElement:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				flag, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				if flag != 0 {
					return nil, wasmruntime.LoadError("only active table-0 element segments are supported")
				}
				offsetVal, err := evalConstExpr(sc)
				if err != nil {
					return nil, err
				}
				cnt, err := readVecCount(sc)
				if err != nil {
					return nil, err
				}
				funcs := make([]FuncBits, cnt)
				for j := uint32(0); j < cnt; j++ {
					idx, _, err := leb128.DecodeUint32(sc)
					if err != nil {
						return nil, err
					}
					funcs[j] = NewFuncBits(uint16(idx), false)
				}
				if m.Table == nil {
					return nil, wasmruntime.LoadError("element segment with no table declared")
				}
				if err := m.Table.PutElements(uint32(offsetVal), funcs); err != nil {
					return nil, err
				}
			}

		case SectionCode:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			codeBodies = make([][]byte, n)
			for i := uint32(0); i < n; i++ {
				bodySize, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				if sc.pos+int(bodySize) > len(sc.data) {
					return nil, wasmruntime.LoadError("function body overruns code section")
				}
				codeBodies[i] = sc.data[sc.pos : sc.pos+int(bodySize)]
				sc.pos += int(bodySize)
			}

		case SectionData:
			n, err := readVecCount(sc)
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				flag, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				if flag != 0 {
					return nil, wasmruntime.LoadError("only active memory-0 data segments are supported")
				}
				offsetVal, err := evalConstExpr(sc)
				if err != nil {
					return nil, err
				}
				blen, _, err := leb128.DecodeUint32(sc)
				if err != nil {
					return nil, err
				}
				if sc.pos+int(blen) > len(sc.data) {
					return nil, wasmruntime.LoadError("data segment overruns data section")
				}
				bytesIn := sc.data[sc.pos : sc.pos+int(blen)]
				sc.pos += int(blen)
				if m.Memory == nil {
					return nil, wasmruntime.LoadError("data segment with no memory declared")
				}
				if err := m.Memory.Write(uint64(offsetVal), bytesIn); err != nil {
					return nil, err
				}
			}

		default:
			return nil, wasmruntime.LoadError("unknown section id %d", id)
		}
	}

	if len(funcTypeIdx) != len(codeBodies) {
		return nil, wasmruntime.LoadError(
			"function section declares %d functions but code section has %d bodies",
			len(funcTypeIdx), len(codeBodies))
	}
	if m.Memory == nil {
		mem, err := NewMemory(0, 0)
		if err != nil {
			return nil, err
		}
		m.Memory = mem
	}
	if m.Table == nil {
		m.Table = NewTable(0, 0)
	}

	for i, body := range codeBodies {
		fn, err := m.decodeFunctionBody(funcTypeIdx[i], body)
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}

	if m.StartFunc >= 0 && int(m.StartFunc) >= len(m.Functions) {
		return nil, wasmruntime.LoadError("start function index out of range")
	}
	return m, nil
}

func (m *Module) decodeFunctionBody(typeIdx uint32, body []byte) (Function, error) {
	if int(typeIdx) >= len(m.Types) {
		return Function{}, wasmruntime.LoadError("function type index %d out of range", typeIdx)
	}
	bc := newCursor(body)

	groupCount, _, err := leb128.DecodeUint32(bc)
	if err != nil {
		return Function{}, err
	}
	var locals []api.ValueType
	for i := uint32(0); i < groupCount; i++ {
		count, _, err := leb128.DecodeUint32(bc)
		if err != nil {
			return Function{}, err
		}
		vt, ok := bc.next()
		if !ok {
			return Function{}, wasmruntime.LoadError("truncated local declaration")
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, vt)
		}
	}

	vec, err := m.Pool.ReadExpr(bc)
	if err != nil {
		return Function{}, err
	}
	return Function{
		Signature: m.Types[typeIdx],
		Wasm:      &WasmFunction{Body: vec, LocalTypes: locals},
	}, nil
}

// trapHostImport builds the stub every imported function resolves to: the
// interpreter's host-call bridge is trap-only, so calling an import always
// fails with a well-defined trap rather than running real host code.
func trapHostImport(module, field string) HostFunction {
	return func(args []uint64) ([]uint64, error) {
		return nil, wasmruntime.Trap("call to unresolved import %s.%s", module, field)
	}
}

func readVecCount(c *cursor) (uint32, error) {
	n, _, err := leb128.DecodeUint32(c)
	if err != nil {
		return 0, wasmruntime.LoadError("decode vector length: %v", err)
	}
	return n, nil
}

func readName(c *cursor) (string, error) {
	n, err := readVecCount(c)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	for i := range b {
		v, ok := c.next()
		if !ok {
			return "", wasmruntime.LoadError("truncated name")
		}
		b[i] = v
	}
	return string(b), nil
}

func decodeFuncType(c *cursor) (api.FunctionType, error) {
	tag, ok := c.next()
	if !ok || tag != 0x60 {
		return api.FunctionType{}, wasmruntime.LoadError("invalid functype tag")
	}
	params, err := readValTypeVec(c)
	if err != nil {
		return api.FunctionType{}, err
	}
	results, err := readValTypeVec(c)
	if err != nil {
		return api.FunctionType{}, err
	}
	if len(results) > 1 {
		return api.FunctionType{}, wasmruntime.LoadError("multi-value results are not supported")
	}
	return api.FunctionType{Params: params, Results: results}, nil
}

func readValTypeVec(c *cursor) ([]api.ValueType, error) {
	n, err := readVecCount(c)
	if err != nil {
		return nil, err
	}
	out := make([]api.ValueType, n)
	for i := uint32(0); i < n; i++ {
		b, ok := c.next()
		if !ok {
			return nil, wasmruntime.LoadError("truncated value type vector")
		}
		out[i] = b
	}
	return out, nil
}

// decodeLimits reads a `limits` field: a flag byte (1 if a maximum
// follows), a minimum, and an optional maximum.
func decodeLimits(c *cursor) (min, max uint32, err error) {
	flag, ok := c.next()
	if !ok {
		return 0, 0, wasmruntime.LoadError("truncated limits")
	}
	min, _, err = leb128.DecodeUint32(c)
	if err != nil {
		return 0, 0, err
	}
	if flag == 1 {
		max, _, err = leb128.DecodeUint32(c)
		if err != nil {
			return 0, 0, err
		}
		return min, max, nil
	}
	return min, 0, nil
}

// evalConstExpr evaluates the restricted constant expressions allowed in
// global initializers, element offsets, and data offsets: a single
// i32/i64/f32/f64 const instruction followed by end. Any other opcode,
// global.get included, is rejected with a load error.
func evalConstExpr(c *cursor) (uint64, error) {
	op, ok := c.next()
	if !ok {
		return 0, wasmruntime.LoadError("truncated constant expression")
	}
	var v uint64
	switch op {
	case OpI32Const:
		n, _, err := leb128.DecodeInt32(c)
		if err != nil {
			return 0, err
		}
		v = uint64(uint32(n))
	case OpI64Const:
		n, _, err := leb128.DecodeInt64(c)
		if err != nil {
			return 0, err
		}
		v = uint64(n)
	case OpF32Const:
		var buf [4]byte
		for i := range buf {
			b, ok := c.next()
			if !ok {
				return 0, wasmruntime.LoadError("truncated f32.const")
			}
			buf[i] = b
		}
		v = uint64(binary.LittleEndian.Uint32(buf[:]))
	case OpF64Const:
		var buf [8]byte
		for i := range buf {
			b, ok := c.next()
			if !ok {
				return 0, wasmruntime.LoadError("truncated f64.const")
			}
			buf[i] = b
		}
		v = binary.LittleEndian.Uint64(buf[:])
	default:
		return 0, wasmruntime.LoadError("unsupported constant expression opcode %#x", op)
	}
	end, ok := c.next()
	if !ok || end != OpEnd {
		return 0, wasmruntime.LoadError("constant expression missing end")
	}
	return v, nil
}
