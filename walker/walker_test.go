package walker

import (
	"testing"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

func twoFunctionModule() *module.Module {
	return &module.Module{
		Code: module.CodeSection{
			SectionOffset: 50,
			Bodies: []module.FunctionBody{
				{Code: []module.Offset{
					{Instruction: instruction.I32Const{Value: 1}, RawOffset: 52},
					{Instruction: instruction.I32Const{Value: 2}, RawOffset: 54},
				}},
				{Code: []module.Offset{
					{Instruction: instruction.Nop{}, RawOffset: 60},
				}},
			},
		},
	}
}

func TestWalkProducesSectionRelativeOffsets(t *testing.T) {
	m := twoFunctionModule()

	type recorded struct {
		funcIndex uint64
		offset    uint64
	}

	results, err := Walk(m, nil, func(_ instruction.Instruction, loc Location) []recorded {
		return []recorded{{funcIndex: loc.FunctionIndex, offset: loc.InstructionOffset}}
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 recorded instructions, got %d", len(results))
	}

	want := map[uint64][]uint64{
		0: {2, 4},
		1: {10},
	}
	got := map[uint64][]uint64{}
	for _, r := range results {
		got[r.funcIndex] = append(got[r.funcIndex], r.offset)
	}

	for fi, offsets := range want {
		gotOffsets := got[fi]
		if len(gotOffsets) != len(offsets) {
			t.Fatalf("function %d: expected %d offsets, got %v", fi, len(offsets), gotOffsets)
		}
		for i, o := range offsets {
			if gotOffsets[i] != o {
				t.Errorf("function %d instruction %d: got offset %d, want %d (RawOffset %d minus SectionOffset %d)",
					fi, i, gotOffsets[i], o, o+m.Code.SectionOffset, m.Code.SectionOffset)
			}
		}
	}
}

func TestWalkWithNilResolverLeavesFileAndFunctionUnset(t *testing.T) {
	m := twoFunctionModule()

	results, err := Walk(m, nil, func(_ instruction.Instruction, loc Location) []Location {
		return []Location{loc}
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, loc := range results {
		if loc.HasFile || loc.HasFunction {
			t.Errorf("expected no file/function resolution without a resolver, got %+v", loc)
		}
	}
}

func TestCollectStringsDedupesAndSorts(t *testing.T) {
	m := twoFunctionModule()

	// Deterministic per (function, instruction) mapping, with a
	// duplicate across functions, so the extractor needs no shared
	// mutable state: Walk runs one goroutine per function.
	out, err := CollectStrings(m, nil, func(loc Location) (string, bool) {
		switch {
		case loc.FunctionIndex == 0 && loc.InstructionIndex == 0:
			return "banana", true
		case loc.FunctionIndex == 0 && loc.InstructionIndex == 1:
			return "apple", true
		case loc.FunctionIndex == 1 && loc.InstructionIndex == 0:
			return "banana", true
		default:
			return "", false
		}
	})
	if err != nil {
		t.Fatalf("CollectStrings: %v", err)
	}
	want := []string{"apple", "banana"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("got %v, want %v", out, want)
			break
		}
	}
}
