package encoding

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/opcode"
)

// immediateShape classifies how many/which bytes follow an opcode, so
// that opcodes wasmut does not model structurally (Opaque) can still
// be decoded and re-encoded losslessly.
type immediateShape int

const (
	shapeNone immediateShape = iota
	shapeBlockType
	shapeLabelIdx
	shapeBrTable
	shapeFuncIdx
	shapeCallIndirect
	shapeLocalIdx
	shapeGlobalIdx
	shapeMemArg
	shapeMemoryIdx    // single reserved byte, e.g. memory.size/memory.grow
	shapeMiscPrefixed // 0xFC-prefixed instructions
)

// opaqueShapes classifies every opcode wasmut does not model as a
// distinct instruction.Instruction type, by its immediate shape, so
// the decoder can skip it correctly and the encoder can replay its
// raw bytes.
var opaqueShapes = map[opcode.Opcode]immediateShape{
	0x02: shapeBlockType, // block
	0x03: shapeBlockType, // loop
	0x04: shapeBlockType, // if
	0x05: shapeNone,      // else
	0x0B: shapeNone,      // end
	0x0C: shapeLabelIdx,  // br
	0x0D: shapeLabelIdx,  // br_if
	0x0E: shapeBrTable,   // br_table
	0x0F: shapeNone,      // return
	0x11: shapeCallIndirect,
	0x1B: shapeNone, // select
	0x20: shapeLocalIdx, 0x21: shapeLocalIdx, 0x22: shapeLocalIdx,
	0x23: shapeGlobalIdx, 0x24: shapeGlobalIdx,
	0x28: shapeMemArg, 0x29: shapeMemArg, 0x2A: shapeMemArg, 0x2B: shapeMemArg,
	0x2C: shapeMemArg, 0x2D: shapeMemArg, 0x2E: shapeMemArg, 0x2F: shapeMemArg,
	0x30: shapeMemArg, 0x31: shapeMemArg, 0x32: shapeMemArg, 0x33: shapeMemArg,
	0x34: shapeMemArg, 0x35: shapeMemArg,
	0x36: shapeMemArg, 0x37: shapeMemArg, 0x38: shapeMemArg, 0x39: shapeMemArg,
	0x3A: shapeMemArg, 0x3B: shapeMemArg, 0x3C: shapeMemArg, 0x3D: shapeMemArg, 0x3E: shapeMemArg,
	0x3F: shapeMemoryIdx, 0x40: shapeMemoryIdx,
	0xFC: shapeMiscPrefixed,
}

// isZeroOperand reports whether op is one of the comparison/arithmetic/
// conversion opcodes (0x45 through 0xC4) that never carry an immediate operand, whether
// or not wasmut names them structurally in package instruction.
func isZeroOperand(op opcode.Opcode) bool {
	return op >= 0x45 && op <= 0xC4
}

func decodeInstruction(r *bufio.Reader) (instruction.Instruction, uint64, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	op := opcode.Opcode(opByte)
	size := uint64(1)

	switch op {
	case opcode.Unreachable:
		return instruction.Unreachable{}, size, nil
	case opcode.Nop:
		return instruction.Nop{}, size, nil
	case opcode.Drop:
		return instruction.Drop{}, size, nil
	case opcode.Call:
		v, n, err := readUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		return instruction.Call{FuncIndex: uint32(v)}, size + uint64(n), nil
	case opcode.I32Const:
		v, n, err := readVarint(r, 32)
		if err != nil {
			return nil, 0, err
		}
		return instruction.I32Const{Value: int32(v)}, size + uint64(n), nil
	case opcode.I64Const:
		v, n, err := readVarint(r, 64)
		if err != nil {
			return nil, 0, err
		}
		return instruction.I64Const{Value: v}, size + uint64(n), nil
	case opcode.F32Const:
		var raw [4]byte
		if _, err := fillExact(r, raw[:]); err != nil {
			return nil, 0, err
		}
		return instruction.F32Const{Bits: binary.LittleEndian.Uint32(raw[:])}, size + 4, nil
	case opcode.F64Const:
		var raw [8]byte
		if _, err := fillExact(r, raw[:]); err != nil {
			return nil, 0, err
		}
		return instruction.F64Const{Bits: binary.LittleEndian.Uint64(raw[:])}, size + 8, nil
	}

	if isBinaryOrRelational(op) {
		return instruction.Binary(op), size, nil
	}
	if op == opcode.F32Neg || op == opcode.F64Neg {
		return instruction.Unary(op), size, nil
	}
	if isZeroOperand(op) && !isBinaryOrRelational(op) && op != opcode.F32Neg && op != opcode.F64Neg {
		return instruction.Opaque{OpByte: op}, size, nil
	}

	shape, known := opaqueShapes[op]
	if !known {
		return nil, 0, fmt.Errorf("encoding: unsupported opcode 0x%02x", opByte)
	}

	raw, consumed, err := readImmediate(r, shape)
	if err != nil {
		return nil, 0, err
	}
	return instruction.Opaque{OpByte: op, RawBytes: raw}, size + uint64(consumed), nil
}

func isBinaryOrRelational(op opcode.Opcode) bool {
	switch op {
	case opcode.I32Eq, opcode.I32Ne, opcode.I32LtS, opcode.I32LtU, opcode.I32GtS, opcode.I32GtU,
		opcode.I32LeS, opcode.I32LeU, opcode.I32GeS, opcode.I32GeU,
		opcode.I64Eq, opcode.I64Ne, opcode.I64LtS, opcode.I64LtU, opcode.I64GtS, opcode.I64GtU,
		opcode.I64LeS, opcode.I64LeU, opcode.I64GeS, opcode.I64GeU,
		opcode.F32Eq, opcode.F32Ne, opcode.F32Lt, opcode.F32Gt, opcode.F32Le, opcode.F32Ge,
		opcode.F64Eq, opcode.F64Ne, opcode.F64Lt, opcode.F64Gt, opcode.F64Le, opcode.F64Ge,
		opcode.I32Add, opcode.I32Sub, opcode.I32Mul, opcode.I32DivS, opcode.I32DivU,
		opcode.I32RemS, opcode.I32RemU, opcode.I32And, opcode.I32Or, opcode.I32Xor,
		opcode.I32Shl, opcode.I32ShrS, opcode.I32ShrU, opcode.I32Rotl, opcode.I32Rotr,
		opcode.I64Add, opcode.I64Sub, opcode.I64Mul, opcode.I64DivS, opcode.I64DivU,
		opcode.I64RemS, opcode.I64RemU, opcode.I64And, opcode.I64Or, opcode.I64Xor,
		opcode.I64Shl, opcode.I64ShrS, opcode.I64ShrU, opcode.I64Rotl, opcode.I64Rotr,
		opcode.F32Add, opcode.F32Sub, opcode.F32Mul, opcode.F32Div,
		opcode.F64Add, opcode.F64Sub, opcode.F64Mul, opcode.F64Div:
		return true
	default:
		return false
	}
}

func readImmediate(r *bufio.Reader, shape immediateShape) ([]byte, int, error) {
	var raw []byte

	switch shape {
	case shapeNone:
		return nil, 0, nil
	case shapeBlockType:
		// A blocktype is either 0x40 (empty), a value type byte, or an
		// s33 type index. The single-byte forms cover every block
		// wasmut's own target programs use; a multi-byte s33 type
		// index is read the same way a varint is.
		b, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		if b == 0x40 || isValueTypeByte(b) {
			return []byte{b}, 1, nil
		}
		// s33 LEB128 type index: b was its first byte.
		raw = append(raw, b)
		n := 1
		for b&0x80 != 0 {
			b, err = r.ReadByte()
			if err != nil {
				return nil, 0, err
			}
			raw = append(raw, b)
			n++
		}
		return raw, n, nil
	case shapeLabelIdx, shapeFuncIdx, shapeLocalIdx, shapeGlobalIdx:
		return readRawUvarint(r)
	case shapeBrTable:
		count, n1, err := readUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		buf := encodeUvarintBytes(count)
		total := n1
		for i := uint64(0); i < count+1; i++ {
			b, n2, err := readRawUvarint(r)
			if err != nil {
				return nil, 0, err
			}
			buf = append(buf, b...)
			total += n2
		}
		return buf, total, nil
	case shapeCallIndirect:
		typeIdx, n1, err := readRawUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		reserved, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		return append(typeIdx, reserved), n1 + 1, nil
	case shapeMemArg:
		align, n1, err := readRawUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		offset, n2, err := readRawUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		return append(align, offset...), n1 + n2, nil
	case shapeMemoryIdx:
		b, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		return []byte{b}, 1, nil
	case shapeMiscPrefixed:
		sub, n1, err := readRawUvarint(r)
		if err != nil {
			return nil, 0, err
		}
		return sub, n1, nil
	default:
		return nil, 0, fmt.Errorf("encoding: unhandled immediate shape %d", shape)
	}
}

func isValueTypeByte(b byte) bool {
	switch b {
	case 0x7F, 0x7E, 0x7D, 0x7C: // i32, i64, f32, f64
		return true
	default:
		return false
	}
}

func readRawUvarint(r *bufio.Reader) ([]byte, int, error) {
	var raw []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		raw = append(raw, b)
		if b&0x80 == 0 {
			break
		}
	}
	return raw, len(raw), nil
}

func encodeUvarintBytes(v uint64) []byte {
	var buf []byte
	writeUvarint(&buf, v)
	return buf
}

func fillExact(r *bufio.Reader, dst []byte) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := r.Read(dst[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// encodeInstruction appends instr's binary encoding to buf.
func encodeInstruction(buf *[]byte, instr instruction.Instruction) error {
	switch v := instr.(type) {
	case instruction.Unreachable:
		*buf = append(*buf, byte(opcode.Unreachable))
	case instruction.Nop:
		*buf = append(*buf, byte(opcode.Nop))
	case instruction.Drop:
		*buf = append(*buf, byte(opcode.Drop))
	case instruction.Call:
		*buf = append(*buf, byte(opcode.Call))
		writeUvarint(buf, uint64(v.FuncIndex))
	case instruction.I32Const:
		*buf = append(*buf, byte(opcode.I32Const))
		writeVarint(buf, int64(v.Value))
	case instruction.I64Const:
		*buf = append(*buf, byte(opcode.I64Const))
		writeVarint(buf, v.Value)
	case instruction.F32Const:
		*buf = append(*buf, byte(opcode.F32Const))
		var raw [4]byte
		binary.LittleEndian.PutUint32(raw[:], v.Bits)
		*buf = append(*buf, raw[:]...)
	case instruction.F64Const:
		*buf = append(*buf, byte(opcode.F64Const))
		var raw [8]byte
		binary.LittleEndian.PutUint64(raw[:], v.Bits)
		*buf = append(*buf, raw[:]...)
	case instruction.Opaque:
		*buf = append(*buf, byte(v.OpByte))
		*buf = append(*buf, v.RawBytes...)
	default:
		// Binary/Unary operator instructions and the zero-operand
		// comparison family are single-byte with no immediate.
		*buf = append(*buf, byte(instr.Op()))
	}
	return nil
}
