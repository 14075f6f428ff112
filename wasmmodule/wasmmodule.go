// Package wasmmodule is the facade over a parsed WebAssembly module
// that the rest of wasmut programs against: loading from disk,
// enumerating functions/files/call-removal candidates, applying a
// single mutation to produce an independent mutant, inserting
// instruction-cost trace points, and serializing back to bytes.
package wasmmodule

import (
	"bytes"
	"fmt"
	"os"

	"github.com/lwagner94/wasmut-sub000/addressresolver"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/encoding"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
	"github.com/lwagner94/wasmut-sub000/mutation"
	"github.com/lwagner94/wasmut-sub000/operator"
	"github.com/lwagner94/wasmut-sub000/runtime/tracepoint"
	"github.com/lwagner94/wasmut-sub000/walker"
	"github.com/lwagner94/wasmut-sub000/wasmuterr"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

// WasmModule wraps a parsed module together with the address resolver
// built from its debug sections at load time.
type WasmModule struct {
	path     string
	raw      *module.Module
	resolver *addressresolver.AddressResolver
}

// FromFile loads and parses the WebAssembly binary at path.
func FromFile(path string) (*WasmModule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wasmuterr.BytecodeDeserialization(err)
	}
	defer f.Close()

	m, err := encoding.ReadModule(f)
	if err != nil {
		return nil, wasmuterr.BytecodeDeserialization(err)
	}

	if !m.HasNamesSection() {
		wasmutlog.Warn("module has no name section, make sure to enable debug info when building it")
	}

	resolver, err := addressresolver.New(m)
	if err != nil {
		return nil, wasmuterr.AddressResolution(err)
	}

	return &WasmModule{path: path, raw: m, resolver: resolver}, nil
}

// Path returns the file path the module was loaded from.
func (w *WasmModule) Path() string { return w.path }

// Raw exposes the underlying parsed module, e.g. for package walker.
func (w *WasmModule) Raw() *module.Module { return w.raw }

// Resolver exposes the module's address resolver.
func (w *WasmModule) Resolver() *addressresolver.AddressResolver { return w.resolver }

// Functions returns the deduplicated, sorted set of function names
// resolved anywhere in the module's debug information.
func (w *WasmModule) Functions() ([]string, error) {
	return walker.CollectStrings(w.raw, w.resolver, func(loc walker.Location) (string, bool) {
		return loc.Function, loc.HasFunction
	})
}

// SourceFiles returns the deduplicated, sorted set of source file
// names resolved anywhere in the module's debug information.
func (w *WasmModule) SourceFiles() ([]string, error) {
	return walker.CollectStrings(w.raw, w.resolver, func(loc walker.Location) (string, bool) {
		return loc.File, loc.HasFile
	})
}

// CallRemovalCandidates examines the type, import and function
// sections to determine which call sites the call_remove_* operators
// may target: every imported or module-defined function returning
// zero or exactly one value.
func (w *WasmModule) CallRemovalCandidates() ([]operator.CallRemovalCandidate, error) {
	if len(w.raw.Type.Functions) == 0 {
		return nil, fmt.Errorf("module has no type section")
	}

	checkType := func(index uint32, typeRef int) (operator.CallRemovalCandidate, bool) {
		if typeRef < 0 || typeRef >= len(w.raw.Type.Functions) {
			return operator.CallRemovalCandidate{}, false
		}
		ft := w.raw.Type.Functions[typeRef]

		switch len(ft.Results) {
		case 0:
			return operator.CallRemovalCandidate{
				Kind:      operator.FuncReturningVoid,
				FuncIndex: index,
				Params:    len(ft.Params),
			}, true
		case 1:
			return operator.CallRemovalCandidate{
				Kind:       operator.FuncReturningScalar,
				FuncIndex:  index,
				Params:     len(ft.Params),
				ReturnType: scalarTypeOf(ft.Results[0]),
			}, true
		default:
			return operator.CallRemovalCandidate{}, false
		}
	}

	var candidates []operator.CallRemovalCandidate

	importIndex := uint32(0)
	for _, imp := range w.raw.Import.Imports {
		if imp.Kind != module.ExternalFunction {
			continue
		}
		if c, ok := checkType(importIndex, int(imp.TypeIndex)); ok {
			candidates = append(candidates, c)
		}
		importIndex++
	}

	numImports := w.raw.FunctionIndexOffset()
	for i, typeIdx := range w.raw.Function.TypeIndices {
		index := numImports + uint32(i)
		if c, ok := checkType(index, int(typeIdx)); ok {
			candidates = append(candidates, c)
		}
	}

	return candidates, nil
}

func scalarTypeOf(v module.ValueType) operator.ScalarType {
	switch v {
	case module.ValueTypeI32:
		return operator.ValueI32
	case module.ValueTypeI64:
		return operator.ValueI64
	case module.ValueTypeF32:
		return operator.ValueF32
	default:
		return operator.ValueF64
	}
}

// ToBytes serializes the module back into WebAssembly binary form.
// Debug information present in the originally loaded module (the name
// section, DWARF custom sections and any other custom sections) is
// discarded: it describes offsets into the original code section,
// which mutation and trace-point insertion invalidate. The memory,
// global, start and data sections, which ReadModule keeps in Customs
// under names starting with a zero byte, are re-emitted.
func (w *WasmModule) ToBytes() ([]byte, error) {
	out := w.raw.Clone()
	var kept []module.CustomSection
	for _, c := range out.Customs {
		if len(c.Name) > 0 && c.Name[0] == 0 {
			kept = append(kept, c)
		}
	}
	out.Customs = kept
	out.Names = module.NamesSection{}

	var buf bytes.Buffer
	if err := encoding.WriteModule(&buf, out); err != nil {
		return nil, wasmuterr.BytecodeSerialization(err)
	}
	return buf.Bytes(), nil
}

// Clone returns an independent deep copy of the module, sharing the
// (immutable, read-only) address resolver.
func (w *WasmModule) Clone() *WasmModule {
	return &WasmModule{path: w.path, raw: w.raw.Clone(), resolver: w.resolver}
}

// MutatedClone returns a deep copy of the module with m applied at
// its own recorded function and instruction index.
func (w *WasmModule) MutatedClone(m mutation.Mutation) (*WasmModule, error) {
	mutant := w.Clone()

	if int(m.FunctionIndex) >= len(mutant.raw.Code.Bodies) {
		return nil, fmt.Errorf("unexpected function index %d", m.FunctionIndex)
	}
	body := &mutant.raw.Code.Bodies[m.FunctionIndex]
	if int(m.InstructionIndex) >= len(body.Code) {
		return nil, fmt.Errorf("unexpected instruction index %d", m.InstructionIndex)
	}

	instrs := make([]instruction.Instruction, len(body.Code))
	for i, off := range body.Code {
		instrs[i] = off.Instruction
	}

	instrs = m.Operator.Apply(instrs, int(m.InstructionIndex))

	newCode := make([]module.Offset, len(instrs))
	for i, instr := range instrs {
		var rawOffset uint64
		if i < len(body.Code) {
			rawOffset = body.Code[i].RawOffset
		}
		newCode[i] = module.Offset{Instruction: instr, RawOffset: rawOffset}
	}
	body.Code = newCode

	return mutant, nil
}

// InsertTracePoints rewrites the module in place so that every
// original instruction is preceded by a call recording the code-
// section-relative byte offset it occupied before rewriting. See
// package tracepoint for the five-step algorithm.
func (w *WasmModule) InsertTracePoints() {
	tracepoint.Insert(w.raw)
}
