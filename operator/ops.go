package operator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/opcode"
)

// binaryFamilies lists every binop/relop family, by operator name.
// Registration order determines iteration order when matching an
// instruction against every family in turn.
var binaryFamilies = []family{
	binaryFamily("binop_sub_to_add", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Sub: opcode.I32Add, opcode.I64Sub: opcode.I64Add,
		opcode.F32Sub: opcode.F32Add, opcode.F64Sub: opcode.F64Add,
	}),
	binaryFamily("binop_add_to_sub", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Add: opcode.I32Sub, opcode.I64Add: opcode.I64Sub,
		opcode.F32Add: opcode.F32Sub, opcode.F64Add: opcode.F64Sub,
	}),
	binaryFamily("binop_mul_to_div", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Mul: opcode.I32DivS, opcode.I64Mul: opcode.I64DivS,
		opcode.F32Mul: opcode.F32Div, opcode.F64Mul: opcode.F64Div,
	}),
	binaryFamily("binop_mul_to_div", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Mul: opcode.I32DivU, opcode.I64Mul: opcode.I64DivU,
	}),
	binaryFamily("binop_div_to_mul", map[opcode.Opcode]opcode.Opcode{
		opcode.I32DivS: opcode.I32Mul, opcode.I64DivS: opcode.I64Mul,
		opcode.I32DivU: opcode.I32Mul, opcode.I64DivU: opcode.I64Mul,
		opcode.F32Div: opcode.F32Mul, opcode.F64Div: opcode.F64Mul,
	}),
	binaryFamily("binop_shl_to_shr", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Shl: opcode.I32ShrS, opcode.I64Shl: opcode.I64ShrS,
	}),
	binaryFamily("binop_shl_to_shr", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Shl: opcode.I32ShrU, opcode.I64Shl: opcode.I64ShrU,
	}),
	binaryFamily("binop_shr_to_shl", map[opcode.Opcode]opcode.Opcode{
		opcode.I32ShrS: opcode.I32Shl, opcode.I32ShrU: opcode.I32Shl,
		opcode.I64ShrS: opcode.I64Shl, opcode.I64ShrU: opcode.I64Shl,
	}),
	binaryFamily("binop_rem_to_div", map[opcode.Opcode]opcode.Opcode{
		opcode.I32RemS: opcode.I32DivS, opcode.I32RemU: opcode.I32DivU,
		opcode.I64RemS: opcode.I64DivS, opcode.I64RemU: opcode.I64DivU,
	}),
	binaryFamily("binop_div_to_rem", map[opcode.Opcode]opcode.Opcode{
		opcode.I32DivS: opcode.I32RemS, opcode.I32DivU: opcode.I32RemU,
		opcode.I64DivS: opcode.I64RemS, opcode.I64DivU: opcode.I64RemU,
	}),
	binaryFamily("binop_and_to_or", map[opcode.Opcode]opcode.Opcode{
		opcode.I32And: opcode.I32Or, opcode.I64And: opcode.I64Or,
	}),
	binaryFamily("binop_or_to_and", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Or: opcode.I32And, opcode.I64Or: opcode.I64And,
	}),
	binaryFamily("binop_xor_to_or", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Xor: opcode.I32Or, opcode.I64Xor: opcode.I64Or,
	}),
	binaryFamily("binop_or_to_xor", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Or: opcode.I32Xor, opcode.I64Or: opcode.I64Xor,
	}),
	binaryFamily("binop_rotl_to_rotr", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Rotl: opcode.I32Rotr, opcode.I64Rotl: opcode.I64Rotr,
	}),
	binaryFamily("binop_rotr_to_rotl", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Rotr: opcode.I32Rotl, opcode.I64Rotr: opcode.I64Rotl,
	}),
	binaryFamily("relop_eq_to_ne", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Eq: opcode.I32Ne, opcode.I64Eq: opcode.I64Ne,
		opcode.F32Eq: opcode.F32Ne, opcode.F64Eq: opcode.F64Ne,
	}),
	binaryFamily("relop_ne_to_eq", map[opcode.Opcode]opcode.Opcode{
		opcode.I32Ne: opcode.I32Eq, opcode.I64Ne: opcode.I64Eq,
		opcode.F32Ne: opcode.F32Eq, opcode.F64Ne: opcode.F64Eq,
	}),
	binaryFamily("relop_le_to_gt", map[opcode.Opcode]opcode.Opcode{
		opcode.I32LeU: opcode.I32GtU, opcode.I64LeU: opcode.I64GtU,
		opcode.I32LeS: opcode.I32GtS, opcode.I64LeS: opcode.I64GtS,
		opcode.F32Le: opcode.F32Gt, opcode.F64Le: opcode.F64Gt,
	}),
	binaryFamily("relop_le_to_lt", map[opcode.Opcode]opcode.Opcode{
		opcode.I32LeU: opcode.I32LtU, opcode.I64LeU: opcode.I64LtU,
		opcode.I32LeS: opcode.I32LtS, opcode.I64LeS: opcode.I64LtS,
		opcode.F32Le: opcode.F32Lt, opcode.F64Le: opcode.F64Lt,
	}),
	binaryFamily("relop_lt_to_ge", map[opcode.Opcode]opcode.Opcode{
		opcode.I32LtU: opcode.I32GeU, opcode.I64LtU: opcode.I64GeU,
		opcode.I32LtS: opcode.I32GeS, opcode.I64LtS: opcode.I64GeS,
		opcode.F32Lt: opcode.F32Ge, opcode.F64Lt: opcode.F64Ge,
	}),
	binaryFamily("relop_lt_to_le", map[opcode.Opcode]opcode.Opcode{
		opcode.I32LtU: opcode.I32LeU, opcode.I64LtU: opcode.I64LeU,
		opcode.I32LtS: opcode.I32LeS, opcode.I64LtS: opcode.I64LeS,
		opcode.F32Lt: opcode.F32Le, opcode.F64Lt: opcode.F64Le,
	}),
	binaryFamily("relop_ge_to_gt", map[opcode.Opcode]opcode.Opcode{
		opcode.I32GeU: opcode.I32GtU, opcode.I64GeU: opcode.I64GtU,
		opcode.I32GeS: opcode.I32GtS, opcode.I64GeS: opcode.I64GtS,
		opcode.F32Ge: opcode.F32Gt, opcode.F64Ge: opcode.F64Gt,
	}),
	binaryFamily("relop_ge_to_lt", map[opcode.Opcode]opcode.Opcode{
		opcode.I32GeU: opcode.I32LtU, opcode.I64GeU: opcode.I64LtU,
		opcode.I32GeS: opcode.I32LtS, opcode.I64GeS: opcode.I64LtS,
		opcode.F32Ge: opcode.F32Lt, opcode.F64Ge: opcode.F64Lt,
	}),
	binaryFamily("relop_gt_to_ge", map[opcode.Opcode]opcode.Opcode{
		opcode.I32GtU: opcode.I32GeU, opcode.I64GtU: opcode.I64GeU,
		opcode.I32GtS: opcode.I32GeS, opcode.I64GtS: opcode.I64GeS,
		opcode.F32Gt: opcode.F32Ge, opcode.F64Gt: opcode.F64Ge,
	}),
	binaryFamily("relop_gt_to_le", map[opcode.Opcode]opcode.Opcode{
		opcode.I32GtU: opcode.I32LeU, opcode.I64GtU: opcode.I64LeU,
		opcode.I32GtS: opcode.I32LeS, opcode.I64GtS: opcode.I64LeS,
		opcode.F32Gt: opcode.F32Le, opcode.F64Gt: opcode.F64Le,
	}),
}

var unaryFamily = binaryFamily("unop_neg_to_nop", map[opcode.Opcode]opcode.Opcode{
	opcode.F32Neg: opcode.Nop, opcode.F64Neg: opcode.Nop,
})

const (
	constReplaceZeroName    = "const_replace_zero"
	constReplaceNonZeroName = "const_replace_nonzero"
	callRemoveVoidName      = "call_remove_void_call"
	callRemoveScalarName    = "call_remove_scalar_call"
)

// matchConstReplaceZero replaces a zero-valued numeric constant with 42.
func matchConstReplaceZero(instr instruction.Instruction) (Replacement, bool) {
	switch v := instr.(type) {
	case instruction.I32Const:
		if v.Value == 0 {
			return simpleReplacement{name: constReplaceZeroName, from: instr, to: instruction.I32Const{Value: 42}}, true
		}
	case instruction.I64Const:
		if v.Value == 0 {
			return simpleReplacement{name: constReplaceZeroName, from: instr, to: instruction.I64Const{Value: 42}}, true
		}
	case instruction.F32Const:
		if v == instruction.F32FromFloat(0) {
			return simpleReplacement{name: constReplaceZeroName, from: instr, to: instruction.F32FromFloat(42)}, true
		}
	case instruction.F64Const:
		if v == instruction.F64FromFloat(0) {
			return simpleReplacement{name: constReplaceZeroName, from: instr, to: instruction.F64FromFloat(42)}, true
		}
	}
	return nil, false
}

// matchConstReplaceNonZero replaces a non-zero numeric constant with
// zero.
func matchConstReplaceNonZero(instr instruction.Instruction) (Replacement, bool) {
	switch v := instr.(type) {
	case instruction.I32Const:
		if v.Value != 0 {
			return simpleReplacement{name: constReplaceNonZeroName, from: instr, to: instruction.I32Const{Value: 0}}, true
		}
	case instruction.I64Const:
		if v.Value != 0 {
			return simpleReplacement{name: constReplaceNonZeroName, from: instr, to: instruction.I64Const{Value: 0}}, true
		}
	case instruction.F32Const:
		if v != instruction.F32FromFloat(0) {
			return simpleReplacement{name: constReplaceNonZeroName, from: instr, to: instruction.F32FromFloat(0)}, true
		}
	case instruction.F64Const:
		if v != instruction.F64FromFloat(0) {
			return simpleReplacement{name: constReplaceNonZeroName, from: instr, to: instruction.F64FromFloat(0)}, true
		}
	}
	return nil, false
}

// placeholderConst returns the constant call_remove_scalar_call
// substitutes for the removed call's result, matching the result
// type recorded on the candidate.
func placeholderConst(resultType ScalarType) instruction.Instruction {
	switch resultType {
	case ValueI32:
		return instruction.I32Const{Value: 42}
	case ValueI64:
		return instruction.I64Const{Value: 42}
	case ValueF32:
		return instruction.F32FromFloat(42)
	case ValueF64:
		return instruction.F64FromFloat(42)
	default:
		return instruction.I32Const{Value: 42}
	}
}

// ScalarType names the scalar return type of a
// FuncReturningScalar candidate.
type ScalarType int

// Recognized scalar return types for call removal candidates.
const (
	ValueI32 ScalarType = iota
	ValueI64
	ValueF32
	ValueF64
)

func matchCallRemoveVoid(instr instruction.Instruction, ctx Context) (Replacement, bool) {
	call, ok := instr.(instruction.Call)
	if !ok {
		return nil, false
	}
	cand, found := ctx.candidateFor(call.FuncIndex)
	if !found || cand.Kind != FuncReturningVoid {
		return nil, false
	}
	return callRemoval{name: callRemoveVoidName, from: instr, to: instruction.Nop{}, dropsNeeded: cand.Params}, true
}

func matchCallRemoveScalar(instr instruction.Instruction, ctx Context) (Replacement, bool) {
	call, ok := instr.(instruction.Call)
	if !ok {
		return nil, false
	}
	cand, found := ctx.candidateFor(call.FuncIndex)
	if !found || cand.Kind != FuncReturningScalar {
		return nil, false
	}
	return callRemoval{name: callRemoveScalarName, from: instr, to: placeholderConst(cand.ReturnType), dropsNeeded: cand.Params}, true
}

// Registry holds the set of operators enabled for a mutation run.
type Registry struct {
	enabled map[string]bool
}

// AllOperatorNames lists every operator name the registry can enable,
// in the same order list-operators reports them.
func AllOperatorNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range binaryFamilies {
		if !seen[f.name] {
			seen[f.name] = true
			names = append(names, f.name)
		}
	}
	names = append(names, unaryFamily.name, constReplaceZeroName, constReplaceNonZeroName,
		callRemoveVoidName, callRemoveScalarName)
	return names
}

// NewRegistry builds a Registry enabling exactly the named operators.
// A nil or empty slice enables none.
func NewRegistry(enabledOperators []string) *Registry {
	enabled := make(map[string]bool, len(enabledOperators))
	for _, name := range enabledOperators {
		enabled[name] = true
	}
	return &Registry{enabled: enabled}
}

// MutantsForInstruction returns every enabled replacement applicable
// to instr at its call-removal context.
func (r *Registry) MutantsForInstruction(instr instruction.Instruction, ctx Context) []Replacement {
	var out []Replacement

	for _, f := range binaryFamilies {
		if !r.enabled[f.name] {
			continue
		}
		if rep, ok := f.matches(instr); ok {
			out = append(out, rep)
		}
	}

	if r.enabled[unaryFamily.name] {
		if rep, ok := unaryFamily.matchesUnary(instr); ok {
			out = append(out, rep)
		}
	}

	if r.enabled[constReplaceZeroName] {
		if rep, ok := matchConstReplaceZero(instr); ok {
			out = append(out, rep)
		}
	}
	if r.enabled[constReplaceNonZeroName] {
		if rep, ok := matchConstReplaceNonZero(instr); ok {
			out = append(out, rep)
		}
	}
	if r.enabled[callRemoveVoidName] {
		if rep, ok := matchCallRemoveVoid(instr, ctx); ok {
			out = append(out, rep)
		}
	}
	if r.enabled[callRemoveScalarName] {
		if rep, ok := matchCallRemoveScalar(instr, ctx); ok {
			out = append(out, rep)
		}
	}

	return out
}

// Describe returns a human-readable summary of what an operator family
// does, independent of any specific matched instruction. It's used by
// list-operators -v; an unknown name returns the empty string.
func Describe(name string) string {
	for _, f := range binaryFamilies {
		if f.name == name {
			return describeFamily(f)
		}
	}
	if unaryFamily.name == name {
		return describeFamily(unaryFamily)
	}
	switch name {
	case constReplaceZeroName:
		return "Replaces a zero-valued numeric constant with 42"
	case constReplaceNonZeroName:
		return "Replaces a nonzero-valued numeric constant with 0"
	case callRemoveVoidName:
		return "Removes a call to a void function, dropping its arguments"
	case callRemoveScalarName:
		return "Removes a call to a scalar-returning function, replacing it with a placeholder constant"
	}
	return ""
}

// describeFamily renders every (from, to) opcode pair a family covers,
// in a stable order, as "from -> to" summaries.
func describeFamily(f family) string {
	froms := make([]opcode.Opcode, 0, len(f.pairs))
	for from := range f.pairs {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool { return froms[i] < froms[j] })

	var b strings.Builder
	for i, from := range froms {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s -> %s", from, f.pairs[from])
	}
	return b.String()
}
