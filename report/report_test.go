package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lwagner94/wasmut-sub000/addressresolver"
	"github.com/lwagner94/wasmut-sub000/executor"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/mutation"
)

type fakeReplacement struct{ desc string }

func (f fakeReplacement) Name() string        { return "fake" }
func (f fakeReplacement) Description() string { return f.desc }
func (f fakeReplacement) Apply(code []instruction.Instruction, i int) []instruction.Instruction {
	return code
}

func mutant(desc string, outcome executor.MutationOutcome, file string, line uint32) Mutant {
	loc := addressresolver.CodeLocation{}
	if file != "" {
		loc.File = &file
		loc.Line = &line
	}
	return Mutant{
		Mutation: mutation.Mutation{Operator: fakeReplacement{desc: desc}},
		Location: loc,
		Outcome:  outcome,
	}
}

func TestAccumulate(t *testing.T) {
	mutants := []Mutant{
		mutant("a", executor.Alive, "a.c", 1),
		mutant("b", executor.Killed, "a.c", 2),
		mutant("c", executor.Timeout, "b.c", 1),
		mutant("d", executor.ExecutionError, "b.c", 3),
	}

	got := Accumulate(mutants)
	want := Summary{Total: 4, Alive: 1, Killed: 1, Timeout: 1, Error: 1, MutScore: 75}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccumulateEmpty(t *testing.T) {
	got := Accumulate(nil)
	if got.Total != 0 || got.MutScore != 0 {
		t.Fatalf("got %+v, want a zero-value summary", got)
	}
}

func TestConsoleReporterPrintsSummary(t *testing.T) {
	mutants := []Mutant{
		mutant("replaced x with y", executor.Killed, "", 0),
		mutant("replaced x with y", executor.Alive, "", 0),
	}

	var buf bytes.Buffer
	if err := NewConsoleReporter(&buf).Report(mutants); err != nil {
		t.Fatalf("Report: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Mutation score: 50%") {
		t.Errorf("output missing mutation score line, got:\n%s", out)
	}
	if !strings.Contains(out, "Alive: 1") || !strings.Contains(out, "Killed: 1") {
		t.Errorf("output missing outcome counts, got:\n%s", out)
	}
}

func TestNewConsoleReporterDefaultsToStdout(t *testing.T) {
	r := NewConsoleReporter(nil)
	if r.w == nil {
		t.Fatal("expected a non-nil default writer")
	}
}
