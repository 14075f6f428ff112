// Package report turns a batch of executed mutants into a
// human-readable summary. It exposes a minimal Reporter interface and
// a single console implementation; richer output formats are outside
// this repository's scope.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/lwagner94/wasmut-sub000/addressresolver"
	"github.com/lwagner94/wasmut-sub000/executor"
	"github.com/lwagner94/wasmut-sub000/mutation"
)

// Mutant pairs one executed mutation with its resolved source location
// and outcome, the unit every Reporter renders.
type Mutant struct {
	Mutation mutation.Mutation
	Location addressresolver.CodeLocation
	Outcome  executor.MutationOutcome
}

// RunID tags one mutate invocation for log correlation across its
// progress-callback invocations and, were output persisted, to
// namespace a report directory. Generated once per run, not per
// mutant.
type RunID = uuid.UUID

// NewRunID returns a fresh identifier for one execution of the mutate
// subcommand.
func NewRunID() RunID {
	return uuid.New()
}

// Resolve pairs every mutation with the source location its
// instruction offset resolves to, preferring the first DWARF frame
// (innermost, in the case of an inlined call chain) when more than one
// is returned.
func Resolve(resolver *addressresolver.AddressResolver, mutations []mutation.Mutation, outcomes []executor.MutationOutcome) []Mutant {
	mutants := make([]Mutant, len(mutations))
	for i, m := range mutations {
		var loc addressresolver.CodeLocation
		if locs, err := resolver.LookupAddress(m.InstructionOffset); err == nil && len(locs) > 0 {
			loc = locs[0]
		}
		mutants[i] = Mutant{Mutation: m, Location: loc, Outcome: outcomes[i]}
	}
	return mutants
}

// Summary accumulates the outcome counts and mutation score across a
// batch of mutants.
type Summary struct {
	Total    int
	Alive    int
	Killed   int
	Timeout  int
	Error    int
	MutScore float64 // percentage, 0-100
}

// Accumulate folds mutants into a Summary. The mutation score counts
// every non-Alive outcome (Killed, Timeout, ExecutionError) as
// detected.
func Accumulate(mutants []Mutant) Summary {
	var s Summary
	s.Total = len(mutants)
	for _, m := range mutants {
		switch m.Outcome {
		case executor.Alive:
			s.Alive++
		case executor.Killed:
			s.Killed++
		case executor.Timeout:
			s.Timeout++
		default:
			s.Error++
		}
	}
	if s.Total > 0 {
		detected := s.Killed + s.Timeout + s.Error
		s.MutScore = 100 * float64(detected) / float64(s.Total)
	}
	return s
}

// Reporter renders a batch of executed mutants.
type Reporter interface {
	Report(mutants []Mutant) error
}

// ConsoleReporter prints one block per mutant (its location, the
// offending source line when the file is readable, and the operator's
// description and outcome) followed by a summary line, in the grouping
// order files-then-lines-then-mutants.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter builds a ConsoleReporter writing to w. A nil w
// defaults to os.Stdout.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) Report(mutants []Mutant) error {
	for _, group := range groupByFileAndLine(mutants) {
		for _, m := range group {
			r.printMutant(m)
		}
	}
	r.printSummary(Accumulate(mutants))
	return nil
}

func (r *ConsoleReporter) printMutant(m Mutant) {
	var fileLineCol string
	var sourceLine string

	if m.Location.File != nil {
		fileLineCol = *m.Location.File
		if m.Location.Line != nil {
			fileLineCol += fmt.Sprintf(":%d", *m.Location.Line)
			if line, err := readLine(*m.Location.File, *m.Location.Line); err == nil {
				sourceLine = line
			}
			if m.Location.Column != nil {
				fileLineCol += fmt.Sprintf(":%d", *m.Location.Column)
			}
		}
	}

	fmt.Fprintln(r.w, fileLineCol)
	fmt.Fprintln(r.w, sourceLine)
	fmt.Fprintln(r.w, m.Mutation.Operator.Description())
	fmt.Fprintln(r.w, m.Outcome)
}

func (r *ConsoleReporter) printSummary(s Summary) {
	fmt.Fprintf(r.w, "Alive: %d\n", s.Alive)
	fmt.Fprintf(r.w, "Timeout: %d\n", s.Timeout)
	fmt.Fprintf(r.w, "Killed: %d\n", s.Killed)
	fmt.Fprintf(r.w, "Error: %d\n", s.Error)
	fmt.Fprintf(r.w, "Mutation score: %.0f%%\n", s.MutScore)
}

// readLine returns the 1-indexed lineNr of file.
func readLine(file string, lineNr uint32) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var n uint32
	for scanner.Scan() {
		n++
		if n == lineNr {
			return scanner.Text(), nil
		}
	}
	return "", fmt.Errorf("line %d not found in %s", lineNr, file)
}

// groupByFileAndLine buckets mutants first by source file, then by
// line within that file, both in ascending order, matching the order a
// developer reading top to bottom through a file would expect.
func groupByFileAndLine(mutants []Mutant) [][]Mutant {
	type key struct {
		file string
		line uint32
	}
	buckets := map[key][]Mutant{}
	var keys []key
	for _, m := range mutants {
		var k key
		if m.Location.File != nil {
			k.file = *m.Location.File
		}
		if m.Location.Line != nil {
			k.line = *m.Location.Line
		}
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], m)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].file != keys[j].file {
			return keys[i].file < keys[j].file
		}
		return keys[i].line < keys[j].line
	})

	groups := make([][]Mutant, len(keys))
	for i, k := range keys {
		groups[i] = buckets[k]
	}
	return groups
}
