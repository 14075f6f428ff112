package mutation

import (
	"testing"

	"github.com/lwagner94/wasmut-sub000/config"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/operator"
)

type fakeReplacement struct{ name, desc string }

func (f fakeReplacement) Name() string        { return f.name }
func (f fakeReplacement) Description() string { return f.desc }
func (f fakeReplacement) Apply(code []instruction.Instruction, i int) []instruction.Instruction {
	return code
}

func TestCountMutantsAndFlatten(t *testing.T) {
	locations := []MutationLocation{
		{FunctionIndex: 0, InstructionIndex: 0, Mutations: []Mutation{
			{ID: 1, Operator: fakeReplacement{name: "a"}},
			{ID: 2, Operator: fakeReplacement{name: "b"}},
		}},
		{FunctionIndex: 0, InstructionIndex: 1, Mutations: []Mutation{
			{ID: 3, Operator: fakeReplacement{name: "c"}},
		}},
	}

	if got := CountMutants(locations); got != 3 {
		t.Fatalf("CountMutants = %d, want 3", got)
	}

	flat := Flatten(locations)
	if len(flat) != 3 {
		t.Fatalf("Flatten returned %d mutations, want 3", len(flat))
	}
	if flat[0].ID != 1 || flat[2].ID != 3 {
		t.Fatalf("Flatten did not preserve location order: %+v", flat)
	}
}

func TestContentHashStableAndDistinguishing(t *testing.T) {
	a := Mutation{FunctionIndex: 1, InstructionIndex: 2, InstructionOffset: 3, Operator: fakeReplacement{name: "x", desc: "d"}}
	b := a

	if a.ContentHash() != b.ContentHash() {
		t.Error("identical mutations should hash identically")
	}

	c := a
	c.InstructionOffset = 4
	if a.ContentHash() == c.ContentHash() {
		t.Error("mutations at different offsets should hash differently")
	}
}

func TestNewEngineDefaultsToAllowAllWithNoFilter(t *testing.T) {
	cfg := config.Default()
	names := operator.AllOperatorNames()

	e, err := NewEngine(cfg, names)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if e.mutationPolicy == nil {
		t.Fatal("expected a non-nil policy")
	}
	if len(e.enabledOperators) != len(names) {
		t.Fatalf("enabledOperators = %d, want %d (every operator enabled by default)", len(e.enabledOperators), len(names))
	}
}
