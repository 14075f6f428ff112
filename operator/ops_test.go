package operator

import (
	"testing"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/opcode"
)

func TestAllOperatorNamesCoversEveryFamily(t *testing.T) {
	names := AllOperatorNames()

	want := map[string]bool{
		"unop_neg_to_nop":       false,
		constReplaceZeroName:    false,
		constReplaceNonZeroName: false,
		callRemoveVoidName:      false,
		callRemoveScalarName:    false,
	}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("AllOperatorNames missing %q", name)
		}
	}
}

func TestRegistryMutantsForInstruction(t *testing.T) {
	ctx := NewContext([]CallRemovalCandidate{
		{Kind: FuncReturningVoid, FuncIndex: 0, Params: 1},
		{Kind: FuncReturningScalar, FuncIndex: 1, Params: 0, ReturnType: ValueI32},
	})

	tests := []struct {
		name    string
		enabled []string
		instr   instruction.Instruction
		want    int
	}{
		{
			name:    "add is replaced by sub when binop_add_to_sub enabled",
			enabled: []string{"binop_add_to_sub"},
			instr:   instruction.Binary(opcode.I32Add),
			want:    1,
		},
		{
			name:    "add is untouched when its operator is disabled",
			enabled: nil,
			instr:   instruction.Binary(opcode.I32Add),
			want:    0,
		},
		{
			name:    "zero const matches const_replace_zero only",
			enabled: []string{constReplaceZeroName, constReplaceNonZeroName},
			instr:   instruction.I32Const{Value: 0},
			want:    1,
		},
		{
			name:    "void call removal requires a matching candidate",
			enabled: []string{callRemoveVoidName},
			instr:   instruction.Call{FuncIndex: 0},
			want:    1,
		},
		{
			name:    "call to an unknown function index yields no mutants",
			enabled: []string{callRemoveVoidName, callRemoveScalarName},
			instr:   instruction.Call{FuncIndex: 99},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.enabled)
			got := r.MutantsForInstruction(tt.instr, ctx)
			if len(got) != tt.want {
				t.Fatalf("got %d mutants, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSimpleReplacementApply(t *testing.T) {
	r, ok := matchConstReplaceZero(instruction.I32Const{Value: 0})
	if !ok {
		t.Fatal("expected a match")
	}

	code := []instruction.Instruction{instruction.I32Const{Value: 0}, instruction.Nop{}}
	code = r.Apply(code, 0)

	want := instruction.I32Const{Value: 42}
	if code[0] != instruction.Instruction(want) {
		t.Fatalf("got %#v, want %#v", code[0], want)
	}
}

func TestCallRemovalApplyDropsArguments(t *testing.T) {
	ctx := NewContext([]CallRemovalCandidate{{Kind: FuncReturningVoid, FuncIndex: 0, Params: 2}})
	r, ok := matchCallRemoveVoid(instruction.Call{FuncIndex: 0}, ctx)
	if !ok {
		t.Fatal("expected a match")
	}

	code := []instruction.Instruction{instruction.Call{FuncIndex: 0}}
	code = r.Apply(code, 0)

	if len(code) != 3 {
		t.Fatalf("got %d instructions, want 3 (2 drops + nop)", len(code))
	}
	if _, ok := code[0].(instruction.Drop); !ok {
		t.Errorf("code[0] = %#v, want Drop", code[0])
	}
	if _, ok := code[1].(instruction.Drop); !ok {
		t.Errorf("code[1] = %#v, want Drop", code[1])
	}
	if _, ok := code[2].(instruction.Nop); !ok {
		t.Errorf("code[2] = %#v, want Nop", code[2])
	}
}

func TestCallRemovalExactSequence(t *testing.T) {
	ctx := NewContext([]CallRemovalCandidate{{Kind: FuncReturningVoid, FuncIndex: 0, Params: 2}})
	r, ok := matchCallRemoveVoid(instruction.Call{FuncIndex: 0}, ctx)
	if !ok {
		t.Fatal("expected a match")
	}

	code := []instruction.Instruction{
		instruction.I32Const{Value: 10},
		instruction.I32Const{Value: 12},
		instruction.Call{FuncIndex: 0},
		instruction.I32Const{Value: 13},
		instruction.Call{FuncIndex: 1},
	}
	code = r.Apply(code, 2)

	want := []instruction.Instruction{
		instruction.I32Const{Value: 10},
		instruction.I32Const{Value: 12},
		instruction.Drop{},
		instruction.Drop{},
		instruction.Nop{},
		instruction.I32Const{Value: 13},
		instruction.Call{FuncIndex: 1},
	}
	if len(code) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(code), len(want))
	}
	for i := range want {
		if code[i] != want[i] {
			t.Errorf("instruction %d: got %#v, want %#v", i, code[i], want[i])
		}
	}
}

func TestConstReplaceZeroF32(t *testing.T) {
	zero := instruction.F32FromFloat(0)

	r, ok := matchConstReplaceZero(zero)
	if !ok {
		t.Fatal("expected a match for a zero f32 constant")
	}
	code := r.Apply([]instruction.Instruction{zero}, 0)

	want := instruction.F32FromFloat(42)
	if code[0] != instruction.Instruction(want) {
		t.Fatalf("got %#v, want %#v", code[0], want)
	}

	reg := NewRegistry(nil)
	if got := reg.MutantsForInstruction(zero, NewContext(nil)); len(got) != 0 {
		t.Errorf("expected no mutants for a zero f32 constant with no operators enabled, got %d", len(got))
	}
}

func TestDescribeKnownAndUnknownNames(t *testing.T) {
	if d := Describe("binop_add_to_sub"); d == "" {
		t.Error("expected a non-empty description for binop_add_to_sub")
	}
	if d := Describe(constReplaceZeroName); d == "" {
		t.Error("expected a non-empty description for const_replace_zero")
	}
	if d := Describe("not_a_real_operator"); d != "" {
		t.Errorf("expected empty description for unknown operator, got %q", d)
	}
}
