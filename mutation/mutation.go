// Package mutation discovers every mutation candidate in a parsed
// WebAssembly module: the cross product of "every instruction the
// active policy allows" and "every operator that matches that
// instruction".
package mutation

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/lwagner94/wasmut-sub000/addressresolver"
	"github.com/lwagner94/wasmut-sub000/config"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
	"github.com/lwagner94/wasmut-sub000/operator"
	"github.com/lwagner94/wasmut-sub000/policy"
	"github.com/lwagner94/wasmut-sub000/walker"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

// Mutation is a single applicable operator at a given location, with a
// unique ID assigned at discovery time. It carries its own location so
// that a flattened []Mutation (every Mutation across every
// MutationLocation) is self-sufficient input to the executor: no
// MutationLocation needs to be threaded alongside it.
type Mutation struct {
	ID                int64
	FunctionIndex     uint64
	InstructionIndex  uint64
	InstructionOffset uint64
	Operator          operator.Replacement
}

// ContentHash is a deterministic, order-independent fingerprint of
// this mutation's location and operator, independent of the monotonic
// ID counter. The console reporter does not use it.
func (m Mutation) ContentHash() uint64 {
	var buf [8 + 8 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], m.FunctionIndex)
	binary.LittleEndian.PutUint64(buf[8:16], m.InstructionIndex)
	binary.LittleEndian.PutUint64(buf[16:24], m.InstructionOffset)

	h := xxhash.New()
	h.Write(buf[:])
	h.Write([]byte(m.Operator.Name()))
	h.Write([]byte(m.Operator.Description()))
	return h.Sum64()
}

// MutationLocation names one instruction in the module and every
// mutation that applies to it.
type MutationLocation struct {
	FunctionIndex     uint64
	InstructionIndex  uint64
	InstructionOffset uint64
	Mutations         []Mutation
}

// CountMutants sums the mutation count across every location.
func CountMutants(locations []MutationLocation) int {
	count := 0
	for _, loc := range locations {
		count += len(loc.Mutations)
	}
	return count
}

// Flatten collects every Mutation across every location into a single
// slice, the shape the executor consumes.
func Flatten(locations []MutationLocation) []Mutation {
	out := make([]Mutation, 0, CountMutants(locations))
	for _, loc := range locations {
		out = append(out, loc.Mutations...)
	}
	return out
}

// Engine discovers mutation candidates in a module, filtering
// instructions through a MutationPolicy and matching each surviving
// instruction against a set of enabled operators.
type Engine struct {
	mutationPolicy   *policy.MutationPolicy
	enabledOperators []string
}

// NewEngine builds an Engine from a configuration, resolving the
// policy's file/function allowlists and the enabled operator set.
func NewEngine(cfg *config.Config, allOperatorNames []string) (*Engine, error) {
	mutationPolicy, err := policy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		mutationPolicy:   mutationPolicy,
		enabledOperators: cfg.EnabledOperators(allOperatorNames),
	}, nil
}

// Module is the minimal surface mutation discovery needs from a parsed
// wasm module, satisfied by wasmmodule.WasmModule.
type Module interface {
	Raw() *module.Module
	Resolver() *addressresolver.AddressResolver
	CallRemovalCandidates() ([]operator.CallRemovalCandidate, error)
}

// DiscoverMutationPositions walks every instruction of m, returning one
// MutationLocation per instruction that both passes the policy and has
// at least one matching operator. Mutation IDs are assigned from a
// shared counter starting at 1; because discovery walks functions in
// parallel, IDs are unique but not necessarily contiguous or ordered
// by location.
func (e *Engine) DiscoverMutationPositions(m Module) ([]MutationLocation, error) {
	registry := operator.NewRegistry(e.enabledOperators)

	candidates, err := m.CallRemovalCandidates()
	if err != nil {
		return nil, err
	}
	ctx := operator.NewContext(candidates)

	var idCounter atomic.Int64

	locations, err := walker.Walk(m.Raw(), m.Resolver(), func(instr instruction.Instruction, loc walker.Location) []MutationLocation {
		if !e.mutationPolicy.Check(loc.File, loc.HasFile, loc.Function, loc.HasFunction) {
			return nil
		}

		replacements := registry.MutantsForInstruction(instr, ctx)
		if len(replacements) == 0 {
			return nil
		}

		mutations := make([]Mutation, 0, len(replacements))
		for _, r := range replacements {
			mutations = append(mutations, Mutation{
				ID:                idCounter.Add(1),
				FunctionIndex:     loc.FunctionIndex,
				InstructionIndex:  loc.InstructionIndex,
				InstructionOffset: loc.InstructionOffset,
				Operator:          r,
			})
		}

		return []MutationLocation{{
			FunctionIndex:     loc.FunctionIndex,
			InstructionIndex:  loc.InstructionIndex,
			InstructionOffset: loc.InstructionOffset,
			Mutations:         mutations,
		}}
	})
	if err != nil {
		return nil, err
	}

	wasmutlog.Infof("generated %d mutations", CountMutants(locations))
	return locations, nil
}
