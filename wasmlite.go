// Package wasmlite is a minimal interpreter for the WebAssembly 1.0 (MVP)
// binary format: decode a module, instantiate it, and invoke its exported
// functions. It implements exactly the MVP instruction set — no threads,
// SIMD, reference types, bulk memory, multi-value, multi-memory, or
// memory64 — and performs no JIT compilation; every instruction is
// interpreted directly off a flat instruction pool.
//
// # Usage
//
//	instance, err := wasmlite.Create(wasmBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer instance.Close()
//
//	results, err := instance.Invoke("add", wasmlite.EncodeI32(1), wasmlite.EncodeI32(2))
//
// # Errors
//
// Every error Create and Invoke return is a *wasmruntime.Error, categorized
// as a load error, a limit error, a trap, or an invocation error. A trap
// during Invoke does not leave the Instance unusable: it may be invoked
// again afterward.
package wasmlite

import (
	"github.com/wasmlite/wasmlite/api"
	"github.com/wasmlite/wasmlite/internal/engine"
	"github.com/wasmlite/wasmlite/internal/wasmruntime"
)

// Re-export the value encoding helpers so callers never need to import the
// api package directly.
var (
	EncodeI32 = api.EncodeI32
	EncodeI64 = api.EncodeI64
	EncodeF32 = api.EncodeF32
	EncodeF64 = api.EncodeF64
	DecodeF32 = api.DecodeF32
	DecodeF64 = api.DecodeF64
)

// Limits bounds the fixed-size arenas an Instance preallocates — the operand
// value stack, the call-frame arena, and the branch-label arena — plus
// MaxPages, the interpreter's own ceiling on how far memory.grow may ever
// take linear memory, independent of whatever maximum the module itself
// declares. The zero value is not valid; use DefaultLimits as a starting
// point.
type Limits = engine.Limits

// DefaultLimits is a generous bound suitable for ordinary modules.
var DefaultLimits = engine.DefaultLimits

// Instance is one instantiated module: its own memory, table, globals, and
// the call/value/label arenas its functions execute against.
type Instance struct {
	module *engine.Module
	rt     *engine.Instance
	closed bool
}

// Create decodes a WebAssembly 1.0 binary module, instantiates it with
// DefaultLimits, populates its table and memory from any element and data
// segments, and — if the module declares a start function — runs it before
// returning.
func Create(wasmBytes []byte) (*Instance, error) {
	return CreateWithLimits(wasmBytes, DefaultLimits)
}

// CreateWithLimits is Create with caller-supplied arena limits.
func CreateWithLimits(wasmBytes []byte, limits Limits) (*Instance, error) {
	mod, err := engine.DecodeModule(wasmBytes)
	if err != nil {
		if _, ok := err.(*wasmruntime.Error); !ok {
			err = wasmruntime.LoadError("%v", err)
		}
		return nil, err
	}
	rt := mod.Instantiate(limits)

	inst := &Instance{module: mod, rt: rt}
	if rt.StartFunc >= 0 {
		if _, err := rt.Invoke(uint32(rt.StartFunc), nil); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Invoke calls the exported function named name with the given encoded
// arguments, returning its encoded results. Use the Encode*/Decode* helpers
// to convert to and from Go numeric types.
func (i *Instance) Invoke(name string, args ...uint64) ([]uint64, error) {
	if i.closed {
		return nil, wasmruntime.InvocationError("instance is closed")
	}
	idx, ok := i.module.ExportedFunc(name)
	if !ok {
		return nil, wasmruntime.InvocationError("no exported function named %q", name)
	}
	return i.rt.Invoke(idx, args)
}

// ReadMemory copies length bytes out of the instance's linear memory
// starting at offset.
func (i *Instance) ReadMemory(offset, length uint32) ([]byte, error) {
	if i.closed {
		return nil, wasmruntime.InvocationError("instance is closed")
	}
	return i.rt.Memory.Read(uint64(offset), length)
}

// WriteMemory copies data into the instance's linear memory starting at
// offset.
func (i *Instance) WriteMemory(offset uint32, data []byte) error {
	if i.closed {
		return wasmruntime.InvocationError("instance is closed")
	}
	return i.rt.Memory.Write(uint64(offset), data)
}

// Close marks the instance unusable. wasmlite holds no external resources
// (no file descriptors, no goroutines), so Close never fails; it exists so
// callers have a single symmetric lifecycle to follow.
func (i *Instance) Close() error {
	i.closed = true
	return nil
}
