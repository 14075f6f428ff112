package tracepoint

import (
	"testing"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

func exampleModule() *module.Module {
	return &module.Module{
		Type: module.TypeSection{
			Functions: []module.FuncType{{}},
		},
		Import: module.ImportSection{
			Imports: []module.Import{
				{Module: "env", Field: "helper", Kind: module.ExternalFunction, TypeIndex: 0},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0}},
		Table: module.TableSection{
			Tables: []module.Table{{ElementType: module.AnyFunc}},
		},
		Element: module.ElementSection{
			Segments: []module.ElementSegment{
				{TableIndex: 0, FuncIndices: []uint32{0, 1}},
			},
		},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: "_start", Kind: module.ExternalFunction, Index: 1},
			},
		},
		Code: module.CodeSection{
			SectionOffset: 10,
			Bodies: []module.FunctionBody{
				{Code: []module.Offset{
					{Instruction: instruction.Call{FuncIndex: 0}, RawOffset: 12},
					{Instruction: instruction.Nop{}, RawOffset: 13},
				}},
			},
		},
	}
}

func TestInsertAddsHostImportAtIndexZero(t *testing.T) {
	m := exampleModule()
	Insert(m)

	if len(m.Import.Imports) != 2 {
		t.Fatalf("expected 2 imports after insertion, got %d", len(m.Import.Imports))
	}
	imp := m.Import.Imports[0]
	if imp.Module != ImportModule || imp.Field != ImportField {
		t.Errorf("expected the trace import first, got %+v", imp)
	}
}

func TestInsertShiftsExistingCallTargets(t *testing.T) {
	m := exampleModule()
	Insert(m)

	// The original function body's lone Call(0) referred to the single
	// pre-existing import; after Insert it must refer to index 1.
	body := m.Code.Bodies[0]
	var sawShiftedCall bool
	for _, off := range body.Code {
		if call, ok := off.Instruction.(instruction.Call); ok && call.FuncIndex == 0 {
			// FuncIndex 0 now belongs to the trace import itself,
			// inserted by insertCalls, which is expected and distinct
			// from the original (shifted) call below.
			continue
		}
		if call, ok := off.Instruction.(instruction.Call); ok && call.FuncIndex == 1 {
			sawShiftedCall = true
		}
	}
	if !sawShiftedCall {
		t.Error("expected the original Call(0) to become Call(1) after the import shift")
	}
}

func TestInsertShiftsTableAndExportIndices(t *testing.T) {
	m := exampleModule()
	Insert(m)

	want := []uint32{1, 2}
	got := m.Element.Segments[0].FuncIndices
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element segment index %d: got %d, want %d", i, got[i], want[i])
		}
	}

	if m.Export.Exports[0].Index != 2 {
		t.Errorf("expected export index shifted to 2, got %d", m.Export.Exports[0].Index)
	}
}

func TestInsertEmitsTraceSequencePerInstruction(t *testing.T) {
	m := exampleModule()
	original := append([]module.Offset(nil), m.Code.Bodies[0].Code...)
	sectionOffset := m.Code.SectionOffset

	Insert(m)

	code := m.Code.Bodies[0].Code
	if len(code) != len(original)*3 {
		t.Fatalf("expected %d instructions (3 per original), got %d", len(original)*3, len(code))
	}

	for i, orig := range original {
		base := i * 3
		constInstr, ok := code[base].Instruction.(instruction.I64Const)
		if !ok {
			t.Fatalf("instruction %d: expected I64Const, got %T", base, code[base].Instruction)
		}
		wantOffset := int64(orig.RawOffset - sectionOffset)
		if constInstr.Value != wantOffset {
			t.Errorf("instruction %d: got trace offset %d, want %d", base, constInstr.Value, wantOffset)
		}

		callInstr, ok := code[base+1].Instruction.(instruction.Call)
		if !ok || callInstr.FuncIndex != FunctionIndex {
			t.Fatalf("instruction %d: expected Call(%d), got %#v", base+1, FunctionIndex, code[base+1].Instruction)
		}

		wantInstr := orig.Instruction
		if call, ok := wantInstr.(instruction.Call); ok {
			// Insert shifts every pre-existing call target past the new import.
			call.FuncIndex++
			wantInstr = call
		}
		if code[base+2].Instruction != wantInstr {
			t.Errorf("instruction %d: expected the original instruction (call targets shifted), got %#v, want %#v", base+2, code[base+2].Instruction, wantInstr)
		}
	}
}
