// Package operator implements wasmut's mutation operators: rules that,
// given an original instruction (and, for call removal, contextual
// information about the callee), produce zero or more replacement
// instruction sequences.
package operator

import (
	"fmt"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/opcode"
)

// CallRemovalKind distinguishes the two call-removal candidate shapes:
// a callee with no return value, and a callee returning exactly one
// scalar value.
type CallRemovalKind int

// Recognized call removal candidate kinds.
const (
	FuncReturningVoid CallRemovalKind = iota
	FuncReturningScalar
)

// CallRemovalCandidate describes one function that call_remove_* may
// target: its unified function index, its parameter count (each
// removed call needs one Drop per surviving argument) and, for scalar
// returns, the value type the removed call's placeholder constant
// must produce.
type CallRemovalCandidate struct {
	Kind       CallRemovalKind
	FuncIndex  uint32
	Params     int
	ReturnType ScalarType // valid iff Kind == FuncReturningScalar
}

// Context carries the information operators need beyond the single
// instruction being considered — currently just the call-removal
// candidate table.
type Context struct {
	callRemovalCandidates []CallRemovalCandidate
}

// NewContext builds a Context from a module's call removal candidates.
func NewContext(candidates []CallRemovalCandidate) Context {
	return Context{callRemovalCandidates: candidates}
}

func (c Context) candidateFor(funcIndex uint32) (CallRemovalCandidate, bool) {
	for _, cand := range c.callRemovalCandidates {
		if cand.FuncIndex == funcIndex {
			return cand, true
		}
	}
	return CallRemovalCandidate{}, false
}

// Replacement is a single applicable mutation: a name (used for
// filtering/reporting), the original instruction it expects to find,
// and an Apply method that performs the substitution in place.
type Replacement interface {
	// Name identifies the operator family, e.g. "binop_add_to_sub".
	Name() string

	// Description is a human-readable summary of this specific
	// replacement, e.g. "binop_add_to_sub: replaced i32.add with
	// i32.sub".
	Description() string

	// Apply replaces the instruction at instrIndex (which must equal
	// the operator's recorded original instruction; Apply does not
	// check this) with its replacement sequence.
	Apply(code []instruction.Instruction, instrIndex int) []instruction.Instruction
}

// simpleReplacement is the shared representation for every one-for-one
// instruction swap (every binop/relop/unop family): no insertion or
// removal, just a single instruction replaced by another.
type simpleReplacement struct {
	name string
	from instruction.Instruction
	to   instruction.Instruction
}

func (s simpleReplacement) Name() string { return s.name }

func (s simpleReplacement) Description() string {
	return fmt.Sprintf("%s: replaced %s with %s", s.name, s.from.Op(), s.to.Op())
}

func (s simpleReplacement) Apply(code []instruction.Instruction, instrIndex int) []instruction.Instruction {
	code[instrIndex] = s.to
	return code
}

// callRemoval is the shared representation for call_remove_void_call
// and call_remove_scalar_call: the original Call is replaced by a Nop
// or a placeholder constant, preceded by one Drop per removed
// argument so the operand stack stays balanced.
type callRemoval struct {
	name        string
	from        instruction.Instruction
	to          instruction.Instruction
	dropsNeeded int
}

func (c callRemoval) Name() string { return c.name }

func (c callRemoval) Description() string {
	return fmt.Sprintf("%s: removed call, replaced with %s", c.name, c.to.Op())
}

func (c callRemoval) Apply(code []instruction.Instruction, instrIndex int) []instruction.Instruction {
	replaced := make([]instruction.Instruction, 0, len(code)+c.dropsNeeded)
	replaced = append(replaced, code[:instrIndex]...)
	for i := 0; i < c.dropsNeeded; i++ {
		replaced = append(replaced, instruction.Drop{})
	}
	replaced = append(replaced, c.to)
	replaced = append(replaced, code[instrIndex+1:]...)
	return replaced
}

// family is a table of (from, to) opcode pairs all sharing one
// operator name.
type family struct {
	name  string
	pairs map[opcode.Opcode]opcode.Opcode
}

func binaryFamily(name string, pairs map[opcode.Opcode]opcode.Opcode) family {
	return family{name: name, pairs: pairs}
}

func (f family) matches(instr instruction.Instruction) (Replacement, bool) {
	to, ok := f.pairs[instr.Op()]
	if !ok {
		return nil, false
	}
	return simpleReplacement{name: f.name, from: instr, to: instruction.Binary(to)}, true
}

func (f family) matchesUnary(instr instruction.Instruction) (Replacement, bool) {
	to, ok := f.pairs[instr.Op()]
	if !ok {
		return nil, false
	}
	if to == opcode.Nop {
		return simpleReplacement{name: f.name, from: instr, to: instruction.Nop{}}, true
	}
	return simpleReplacement{name: f.name, from: instr, to: instruction.Unary(to)}, true
}
