// Package walker traverses every instruction of a parsed WebAssembly
// module's code section in parallel, pairing each instruction with its
// resolved source location, using golang.org/x/sync/errgroup to fan
// out one goroutine per function.
package walker

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lwagner94/wasmut-sub000/addressresolver"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

// Location describes where in the module an instruction lives, both
// structurally (function/instruction index) and, when debug
// information resolves it, in source terms.
type Location struct {
	File              string
	HasFile           bool
	Function          string
	HasFunction       bool
	FunctionIndex     uint64
	InstructionIndex  uint64
	InstructionOffset uint64 // code-section-relative, i.e. RawOffset - Code.SectionOffset
}

// Callback is invoked once per instruction. It may return zero or more
// results of type R; an empty slice means "nothing to record here".
type Callback[R any] func(instr instruction.Instruction, loc Location) []R

// Walk traverses m's code section function by function, running one
// goroutine per function body, and returns every callback result
// flattened back into function-index order. Parallel execution never
// affects the order of the returned slice: per-function results are
// collected in a fixed-size slice indexed by function number and
// concatenated only after every goroutine completes.
func Walk[R any](m *module.Module, resolver *addressresolver.AddressResolver, cb Callback[R]) ([]R, error) {
	perFunction := make([][]R, len(m.Code.Bodies))

	g := new(errgroup.Group)
	for funcIndex := range m.Code.Bodies {
		funcIndex := funcIndex
		g.Go(func() error {
			perFunction[funcIndex] = walkFunction(m, resolver, uint64(funcIndex), cb)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []R
	for _, results := range perFunction {
		out = append(out, results...)
	}
	return out, nil
}

func walkFunction[R any](m *module.Module, resolver *addressresolver.AddressResolver, funcIndex uint64, cb Callback[R]) []R {
	body := m.Code.Bodies[funcIndex]
	sectionOffset := m.Code.SectionOffset

	var out []R
	for instrIndex, off := range body.Code {
		relOffset := off.RawOffset - sectionOffset
		loc := resolveLocation(resolver, funcIndex, uint64(instrIndex), relOffset)
		out = append(out, cb(off.Instruction, loc)...)
	}
	return out
}

func resolveLocation(resolver *addressresolver.AddressResolver, funcIndex, instrIndex, offset uint64) Location {
	loc := Location{
		FunctionIndex:     funcIndex,
		InstructionIndex:  instrIndex,
		InstructionOffset: offset,
	}

	if resolver == nil {
		return loc
	}
	frames, err := resolver.LookupAddress(offset)
	if err != nil || len(frames) == 0 {
		return loc
	}

	innermost := frames[0]
	if innermost.File != nil {
		loc.File = *innermost.File
		loc.HasFile = true
	}
	if innermost.Function != nil {
		loc.Function = *innermost.Function
		loc.HasFunction = true
	}
	return loc
}

// CollectStrings runs a walk whose callback extracts a string (a
// function name or a file name) from each instruction's location, and
// returns the deduplicated, sorted set of non-empty values. It is
// shared by wasmmodule's Functions and SourceFiles helpers.
func CollectStrings(m *module.Module, resolver *addressresolver.AddressResolver, extract func(Location) (string, bool)) ([]string, error) {
	results, err := Walk(m, resolver, func(_ instruction.Instruction, loc Location) []string {
		if v, ok := extract(loc); ok {
			return []string{v}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	var out []string
	for _, v := range results {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
