// Package instruction models the subset of the WebAssembly instruction
// set that wasmut's mutation operators care about, plus an Opaque
// catch-all for everything else so that function bodies round-trip
// losslessly through decode/mutate/encode.
package instruction

import (
	"math"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/opcode"
)

// Instruction is a single decoded WebAssembly instruction.
//
// Every concrete type here except Opaque is a small comparable value,
// so equal instructions compare equal with ==. Opaque holds its raw
// bytes in a slice and cannot be compared with ==. The mutation engine
// does not compare instructions: neither operator.Replacement.Apply
// nor wasmmodule.MutatedClone checks the instruction it replaces.
type Instruction interface {
	// Op returns the opcode identifying this instruction.
	Op() opcode.Opcode
}

// NoImmediate is embedded by instructions that carry no operand.
type NoImmediate struct{}

// simple declares a zero-operand instruction type bound to a fixed
// opcode.
type simple struct {
	op opcode.Opcode
}

func (s simple) Op() opcode.Opcode { return s.op }

// Nop is the no-operation instruction. unop_neg_to_nop and the
// call-removal operators replace instructions with Nop.
type Nop struct{ NoImmediate }

// Op implements Instruction.
func (Nop) Op() opcode.Opcode { return opcode.Nop }

// Drop discards the top of the operand stack. Inserted by the
// call-removal operators, one per removed parameter.
type Drop struct{ NoImmediate }

// Op implements Instruction.
func (Drop) Op() opcode.Opcode { return opcode.Drop }

// Unreachable traps unconditionally.
type Unreachable struct{ NoImmediate }

// Op implements Instruction.
func (Unreachable) Op() opcode.Opcode { return opcode.Unreachable }

// Call invokes the function at FuncIndex.
type Call struct {
	FuncIndex uint32
}

// Op implements Instruction.
func (Call) Op() opcode.Opcode { return opcode.Call }

// I32Const pushes a constant i32.
type I32Const struct{ Value int32 }

// Op implements Instruction.
func (I32Const) Op() opcode.Opcode { return opcode.I32Const }

// I64Const pushes a constant i64.
type I64Const struct{ Value int64 }

// Op implements Instruction.
func (I64Const) Op() opcode.Opcode { return opcode.I64Const }

// F32Const pushes a constant f32, stored as its raw IEEE-754 bit
// pattern so that it compares equal regardless of NaN payload and so
// mutation application never has to reason about float equality.
type F32Const struct{ Bits uint32 }

// Op implements Instruction.
func (F32Const) Op() opcode.Opcode { return opcode.F32Const }

// F64Const pushes a constant f64, stored as its raw bit pattern.
type F64Const struct{ Bits uint64 }

// Op implements Instruction.
func (F64Const) Op() opcode.Opcode { return opcode.F64Const }

// binary is the shared representation for every binary arithmetic,
// bitwise and relational operator instruction: it carries no operand
// beyond its opcode, so a single struct type serves all of them.
type binary struct {
	op opcode.Opcode
}

// Op implements Instruction.
func (b binary) Op() opcode.Opcode { return b.op }

// Binary constructs a binary-operator instruction (add/sub/mul/div/
// rem/and/or/xor/shl/shr/rotl/rotr or any relational comparison) for
// the given opcode. Operators in package operator use this to build
// replacements without declaring one Go type per opcode.
func Binary(op opcode.Opcode) Instruction { return binary{op: op} }

// unary is the shared representation for the unary float negation
// instructions.
type unary struct {
	op opcode.Opcode
}

// Op implements Instruction.
func (u unary) Op() opcode.Opcode { return u.op }

// Unary constructs a unary-operator instruction for the given opcode.
func Unary(op opcode.Opcode) Instruction { return unary{op: op} }

// Opaque wraps any instruction wasmut does not model structurally.
// It round-trips its raw encoded bytes (opcode + immediates) verbatim
// and never participates in mutation.
type Opaque struct {
	OpByte   opcode.Opcode
	RawBytes []byte
}

// Op implements Instruction.
func (o Opaque) Op() opcode.Opcode { return o.OpByte }

// IsNumericConst reports whether instr is one of the four Const
// variants, regardless of type.
func IsNumericConst(instr Instruction) bool {
	switch instr.(type) {
	case I32Const, I64Const, F32Const, F64Const:
		return true
	default:
		return false
	}
}

// F32FromFloat constructs an F32Const from a float32 literal, used by
// the constant-replacement operators to build their replacement zero
// and 42 values.
func F32FromFloat(f float32) F32Const { return F32Const{Bits: math.Float32bits(f)} }

// F64FromFloat constructs an F64Const from a float64 literal.
func F64FromFloat(f float64) F64Const { return F64Const{Bits: math.Float64bits(f)} }
