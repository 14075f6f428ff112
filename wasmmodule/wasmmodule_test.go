package wasmmodule

import (
	"bytes"
	"testing"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/encoding"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
	"github.com/lwagner94/wasmut-sub000/mutation"
	"github.com/lwagner94/wasmut-sub000/operator"
)

// twoAddFunctionsModule builds a module with two functions, each
// computing a single i32.add, so a mutation to one function's body can
// be checked for not leaking into the other's encoded bytes.
func twoAddFunctionsModule() *WasmModule {
	raw := &module.Module{
		Type: module.TypeSection{
			Functions: []module.FuncType{{Results: []module.ValueType{module.ValueTypeI32}}},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0, 0}},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: "a", Kind: module.ExternalFunction, Index: 0},
				{Name: "b", Kind: module.ExternalFunction, Index: 1},
			},
		},
		Code: module.CodeSection{
			Bodies: []module.FunctionBody{
				{Code: []module.Offset{
					{Instruction: instruction.I32Const{Value: 1}},
					{Instruction: instruction.I32Const{Value: 2}},
					{Instruction: instruction.Binary(0x6A)}, // i32.add
				}},
				{Code: []module.Offset{
					{Instruction: instruction.I32Const{Value: 3}},
					{Instruction: instruction.I32Const{Value: 4}},
					{Instruction: instruction.Binary(0x6A)}, // i32.add
				}},
			},
		},
	}
	return &WasmModule{path: "two_add.wasm", raw: raw}
}

func addToSubReplacement(t *testing.T) operator.Replacement {
	t.Helper()
	reg := operator.NewRegistry([]string{"binop_add_to_sub"})
	reps := reg.MutantsForInstruction(instruction.Binary(0x6A), operator.Context{})
	if len(reps) != 1 {
		t.Fatalf("expected exactly one binop_add_to_sub replacement, got %d", len(reps))
	}
	return reps[0]
}

func TestMutatedCloneOnlyChangesTargetedFunction(t *testing.T) {
	w := twoAddFunctionsModule()
	rep := addToSubReplacement(t)

	originalBytes, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	mutant, err := w.MutatedClone(mutation.Mutation{
		FunctionIndex:    0,
		InstructionIndex: 2,
		Operator:         rep,
	})
	if err != nil {
		t.Fatalf("MutatedClone: %v", err)
	}

	mutantBytes, err := mutant.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes (mutant): %v", err)
	}

	if bytes.Equal(originalBytes, mutantBytes) {
		t.Fatal("expected mutated bytes to differ from the original")
	}

	// Function 1's body is untouched: check the mutant's own struct
	// rather than diffing whole modules, since the code section as a
	// whole necessarily shifts.
	if mutant.raw.Code.Bodies[1].Code[2].Instruction != instruction.Binary(0x6A) {
		t.Errorf("expected function 1's instruction unchanged, got %#v", mutant.raw.Code.Bodies[1].Code[2].Instruction)
	}
	if mutant.raw.Code.Bodies[0].Code[2].Instruction == instruction.Binary(0x6A) {
		t.Error("expected function 0's targeted instruction to have changed")
	}

	// The original module itself must be untouched (Clone must be a
	// true deep copy).
	if w.raw.Code.Bodies[0].Code[2].Instruction != instruction.Binary(0x6A) {
		t.Error("MutatedClone must not mutate the receiver")
	}
}

func TestCallRemovalCandidatesClassifiesByReturnArity(t *testing.T) {
	raw := &module.Module{
		Type: module.TypeSection{
			Functions: []module.FuncType{
				{}, // void
				{Results: []module.ValueType{module.ValueTypeI32}},                     // scalar
				{Results: []module.ValueType{module.ValueTypeI32, module.ValueTypeI32}}, // excluded
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0, 1, 2}},
	}
	w := &WasmModule{raw: raw}

	candidates, err := w.CallRemovalCandidates()
	if err != nil {
		t.Fatalf("CallRemovalCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (multi-result excluded), got %d", len(candidates))
	}
	if candidates[0].Kind != operator.FuncReturningVoid {
		t.Errorf("expected first candidate void, got %v", candidates[0].Kind)
	}
	if candidates[1].Kind != operator.FuncReturningScalar || candidates[1].ReturnType != operator.ValueI32 {
		t.Errorf("expected second candidate i32 scalar, got %+v", candidates[1])
	}
}

func TestToBytesDropsDebugCustomSections(t *testing.T) {
	w := twoAddFunctionsModule()
	w.raw.Customs = []module.CustomSection{{Name: "debug_info", Data: []byte{1, 2, 3}}}
	w.raw.Names = module.NamesSection{Present: true, Module: "test"}

	out, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	back, err := encoding.ReadModule(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("re-reading serialized module: %v", err)
	}
	if len(back.Customs) != 0 {
		t.Errorf("expected no custom sections in round-tripped bytes, got %d", len(back.Customs))
	}
	if back.Names.Present {
		t.Error("expected no name section in round-tripped bytes")
	}
}
