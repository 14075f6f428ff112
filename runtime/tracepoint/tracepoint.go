// Package tracepoint rewrites a parsed module so that every original
// instruction is preceded by a call recording the code-section-
// relative byte offset it used to occupy, giving the execution
// runtime instruction-level cost metering without native engine
// support.
package tracepoint

import (
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

// ImportModule and ImportField name the host import every Runtime
// backend must provide for an instrumented module to run.
const (
	ImportModule = "wasmut_api"
	ImportField  = "__wasmut_trace"

	// FunctionIndex is always 0: Insert places the import first so
	// every existing function index only ever needs incrementing by
	// exactly one, regardless of how many functions the module
	// already imports.
	FunctionIndex = 0
)

// Insert performs the five-step rewrite in place:
//  1. find or add a (i64) -> () function type
//  2. import a host function of that type at function index 0
//  3. shift every existing Call target up by one
//  4. shift every exported function index and function-table element
//     up by one, so that together with step 3 every reference accounts
//     for the new import occupying index 0 of the function index space
//  5. emit [i64.const offset, call FunctionIndex, originalInstr] for
//     every instruction of every function body
func Insert(m *module.Module) {
	typeIndex := findOrInsertType(m)
	addImport(m, typeIndex)

	fixCalls(m)
	fixTables(m)
	fixExports(m)

	insertCalls(m)
}

func findOrInsertType(m *module.Module) uint32 {
	for i, ft := range m.Type.Functions {
		if len(ft.Params) == 1 && ft.Params[0] == module.ValueTypeI64 && len(ft.Results) == 0 {
			return uint32(i)
		}
	}
	m.Type.Functions = append(m.Type.Functions, module.FuncType{
		Params: []module.ValueType{module.ValueTypeI64},
	})
	return uint32(len(m.Type.Functions) - 1)
}

func addImport(m *module.Module, typeIndex uint32) {
	imp := module.Import{
		Module:    ImportModule,
		Field:     ImportField,
		Kind:      module.ExternalFunction,
		TypeIndex: typeIndex,
	}
	m.Import.Imports = append([]module.Import{imp}, m.Import.Imports...)
}

func fixCalls(m *module.Module) {
	for bi := range m.Code.Bodies {
		code := m.Code.Bodies[bi].Code
		for ci, off := range code {
			if call, ok := off.Instruction.(instruction.Call); ok {
				call.FuncIndex++
				code[ci].Instruction = call
			}
		}
	}
}

func fixTables(m *module.Module) {
	functionTables := make(map[uint32]bool)
	for i, t := range m.Table.Tables {
		if t.ElementType == module.AnyFunc {
			functionTables[uint32(i)] = true
		}
	}

	for si := range m.Element.Segments {
		seg := &m.Element.Segments[si]
		if !functionTables[seg.TableIndex] {
			continue
		}
		for fi := range seg.FuncIndices {
			seg.FuncIndices[fi]++
		}
	}
}

func fixExports(m *module.Module) {
	for i := range m.Export.Exports {
		exp := &m.Export.Exports[i]
		if exp.Kind == module.ExternalFunction {
			exp.Index++
		}
	}
}

func insertCalls(m *module.Module) {
	sectionOffset := m.Code.SectionOffset

	for bi := range m.Code.Bodies {
		body := &m.Code.Bodies[bi]

		rewritten := make([]module.Offset, 0, len(body.Code)*3)
		for _, off := range body.Code {
			relOffset := off.RawOffset - sectionOffset

			rewritten = append(rewritten,
				module.Offset{Instruction: instruction.I64Const{Value: int64(relOffset)}},
				module.Offset{Instruction: instruction.Call{FuncIndex: FunctionIndex}},
				off,
			)
		}
		body.Code = rewritten
	}
}
