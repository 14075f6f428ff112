// Package encoding reads and writes the WebAssembly binary format,
// translating between an io.Reader/io.Writer and package module's
// in-memory Module representation.
package encoding

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

const (
	magicNumber   = 0x6d736100 // "\0asm"
	versionNumber = uint32(1)
)

// Section ids.
const (
	sectionCustom = 0
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionTable  = 4
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionStart  = 8
	sectionElem   = 9
	sectionCode   = 10
	sectionData   = 11
)

// ReadModule parses a binary WebAssembly module. Sections wasmut never
// inspects (memory, global, start, data) are preserved as opaque
// CustomSection-like byte ranges so that WriteModule can still
// reproduce them, by folding them into Customs keyed by a synthetic
// name.
func ReadModule(r io.Reader) (*module.Module, error) {
	br := bufio.NewReader(r)

	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("encoding: reading header: %w", err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != magicNumber {
		return nil, fmt.Errorf("encoding: not a WebAssembly module")
	}
	if binary.LittleEndian.Uint32(header[4:8]) != versionNumber {
		return nil, fmt.Errorf("encoding: unsupported version %d", binary.LittleEndian.Uint32(header[4:8]))
	}

	m := &module.Module{}
	var offset uint64 = 8

	for {
		idByte, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("encoding: reading section id: %w", err)
		}
		offset++

		size, n, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("encoding: reading section size: %w", err)
		}
		offset += uint64(n)

		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, fmt.Errorf("encoding: reading section payload: %w", err)
		}
		sectionStart := offset
		offset += size

		if err := decodeSection(m, idByte, payload, sectionStart); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func decodeSection(m *module.Module, id byte, payload []byte, payloadStart uint64) error {
	pr := bufio.NewReader(newByteReader(payload))

	switch id {
	case sectionCustom:
		return decodeCustomSection(m, pr, payload)
	case sectionType:
		return decodeTypeSection(m, pr)
	case sectionImport:
		return decodeImportSection(m, pr)
	case sectionFunc:
		return decodeFunctionSection(m, pr)
	case sectionTable:
		return decodeTableSection(m, pr)
	case sectionExport:
		return decodeExportSection(m, pr)
	case sectionElem:
		return decodeElementSection(m, pr)
	case sectionCode:
		return decodeCodeSection(m, pr, payloadStart)
	case sectionMemory, sectionGlobal, sectionStart, sectionData:
		m.Customs = append(m.Customs, module.CustomSection{
			Name: rawSectionName(id),
			Data: payload,
		})
		return nil
	default:
		return fmt.Errorf("encoding: unknown section id %d", id)
	}
}

func rawSectionName(id byte) string {
	switch id {
	case sectionMemory:
		return "\x00memory"
	case sectionGlobal:
		return "\x00global"
	case sectionStart:
		return "\x00start"
	case sectionData:
		return "\x00data"
	default:
		return fmt.Sprintf("\x00section%d", id)
	}
}

func decodeCustomSection(m *module.Module, pr *bufio.Reader, payload []byte) error {
	name, n, err := readName(pr)
	if err != nil {
		return fmt.Errorf("encoding: custom section name: %w", err)
	}
	if name == "name" {
		return decodeNamesSection(m, payload[n:])
	}
	m.Customs = append(m.Customs, module.CustomSection{Name: name, Data: payload[n:]})
	return nil
}

func decodeTypeSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		form, err := pr.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("encoding: unsupported type form 0x%02x", form)
		}
		params, err := readValueTypeVec(pr)
		if err != nil {
			return err
		}
		results, err := readValueTypeVec(pr)
		if err != nil {
			return err
		}
		m.Type.Functions = append(m.Type.Functions, module.FuncType{Params: params, Results: results})
	}
	return nil
}

func readValueTypeVec(pr *bufio.Reader) ([]module.ValueType, error) {
	count, _, err := readUvarint(pr)
	if err != nil {
		return nil, err
	}
	out := make([]module.ValueType, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := pr.ReadByte()
		if err != nil {
			return nil, err
		}
		vt, err := decodeValueType(b)
		if err != nil {
			return nil, err
		}
		out = append(out, vt)
	}
	return out, nil
}

func decodeValueType(b byte) (module.ValueType, error) {
	switch b {
	case 0x7F:
		return module.ValueTypeI32, nil
	case 0x7E:
		return module.ValueTypeI64, nil
	case 0x7D:
		return module.ValueTypeF32, nil
	case 0x7C:
		return module.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("encoding: unknown value type 0x%02x", b)
	}
}

func decodeImportSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		mod, _, err := readName(pr)
		if err != nil {
			return err
		}
		field, _, err := readName(pr)
		if err != nil {
			return err
		}
		kindByte, err := pr.ReadByte()
		if err != nil {
			return err
		}
		imp := module.Import{Module: mod, Field: field, Kind: module.ExternalKind(kindByte)}
		switch imp.Kind {
		case module.ExternalFunction:
			idx, _, err := readUvarint(pr)
			if err != nil {
				return err
			}
			imp.TypeIndex = uint32(idx)
		case module.ExternalTable:
			if _, err := decodeTableType(pr); err != nil {
				return err
			}
		case module.ExternalMemory:
			if _, err := readLimits(pr); err != nil {
				return err
			}
		case module.ExternalGlobal:
			if _, err := pr.ReadByte(); err != nil { // value type
				return err
			}
			if _, err := pr.ReadByte(); err != nil { // mutability
				return err
			}
		}
		m.Import.Imports = append(m.Import.Imports, imp)
	}
	return nil
}

func decodeTableType(pr *bufio.Reader) (module.Table, error) {
	elemByte, err := pr.ReadByte()
	if err != nil {
		return module.Table{}, err
	}
	if _, err := readLimits(pr); err != nil {
		return module.Table{}, err
	}
	et := module.OtherElement
	if elemByte == 0x70 {
		et = module.AnyFunc
	}
	return module.Table{ElementType: et}, nil
}

func readLimits(pr *bufio.Reader) ([2]uint64, error) {
	flags, err := pr.ReadByte()
	if err != nil {
		return [2]uint64{}, err
	}
	min, _, err := readUvarint(pr)
	if err != nil {
		return [2]uint64{}, err
	}
	if flags&0x01 != 0 {
		max, _, err := readUvarint(pr)
		if err != nil {
			return [2]uint64{}, err
		}
		return [2]uint64{min, max}, nil
	}
	return [2]uint64{min, 0}, nil
}

func decodeFunctionSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		idx, _, err := readUvarint(pr)
		if err != nil {
			return err
		}
		m.Function.TypeIndices = append(m.Function.TypeIndices, uint32(idx))
	}
	return nil
}

func decodeTableSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		t, err := decodeTableType(pr)
		if err != nil {
			return err
		}
		m.Table.Tables = append(m.Table.Tables, t)
	}
	return nil
}

func decodeExportSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		name, _, err := readName(pr)
		if err != nil {
			return err
		}
		kindByte, err := pr.ReadByte()
		if err != nil {
			return err
		}
		idx, _, err := readUvarint(pr)
		if err != nil {
			return err
		}
		m.Export.Exports = append(m.Export.Exports, module.Export{
			Name:  name,
			Kind:  module.ExternalKind(kindByte),
			Index: uint32(idx),
		})
	}
	return nil
}

func decodeElementSection(m *module.Module, pr *bufio.Reader) error {
	count, _, err := readUvarint(pr)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		tableIdx, _, err := readUvarint(pr)
		if err != nil {
			return err
		}
		offsetExpr, err := decodeConstExpr(pr)
		if err != nil {
			return err
		}
		funcCount, _, err := readUvarint(pr)
		if err != nil {
			return err
		}
		indices := make([]uint32, 0, funcCount)
		for j := uint64(0); j < funcCount; j++ {
			idx, _, err := readUvarint(pr)
			if err != nil {
				return err
			}
			indices = append(indices, uint32(idx))
		}
		m.Element.Segments = append(m.Element.Segments, module.ElementSegment{
			TableIndex:  uint32(tableIdx),
			Offset:      offsetExpr,
			FuncIndices: indices,
		})
	}
	return nil
}

// decodeConstExpr reads a constant initializer expression terminated
// by End and returns its i32 value; wasmut only ever sees i32.const
// offset expressions in practice for element segments.
func decodeConstExpr(pr *bufio.Reader) (int32, error) {
	var value int32
	for {
		op, err := pr.ReadByte()
		if err != nil {
			return 0, err
		}
		if op == 0x0B { // end
			return value, nil
		}
		if op == 0x41 { // i32.const
			v, _, err := readVarint(pr, 32)
			if err != nil {
				return 0, err
			}
			value = int32(v)
			continue
		}
		return 0, fmt.Errorf("encoding: unsupported const expr opcode 0x%02x", op)
	}
}

func decodeCodeSection(m *module.Module, pr *bufio.Reader, sectionStart uint64) error {
	m.Code.SectionOffset = sectionStart
	count, n, err := readUvarint(pr)
	if err != nil {
		return err
	}
	pos := sectionStart + uint64(n)
	for i := uint64(0); i < count; i++ {
		bodySize, n, err := readUvarint(pr)
		if err != nil {
			return err
		}
		pos += uint64(n)
		bodyBytes := make([]byte, bodySize)
		if _, err := io.ReadFull(pr, bodyBytes); err != nil {
			return err
		}
		body, err := decodeFunctionBody(bodyBytes, pos)
		if err != nil {
			return err
		}
		m.Code.Bodies = append(m.Code.Bodies, body)
		pos += bodySize
	}
	return nil
}

// decodeFunctionBody decodes a single function body's bytes. bodyOffset
// is that body's own absolute module offset (where raw[0] sits in the
// encoded module), used to seed each instruction's RawOffset as a real
// module-relative position rather than one relative to the body alone.
func decodeFunctionBody(raw []byte, bodyOffset uint64) (module.FunctionBody, error) {
	br := bufio.NewReader(newByteReader(raw))

	localCount, _, err := readUvarint(br)
	if err != nil {
		return module.FunctionBody{}, err
	}
	var locals []module.ValueType
	for i := uint64(0); i < localCount; i++ {
		n, _, err := readUvarint(br)
		if err != nil {
			return module.FunctionBody{}, err
		}
		b, err := br.ReadByte()
		if err != nil {
			return module.FunctionBody{}, err
		}
		vt, err := decodeValueType(b)
		if err != nil {
			return module.FunctionBody{}, err
		}
		for j := uint64(0); j < n; j++ {
			locals = append(locals, vt)
		}
	}

	localsSize := len(raw) - br.Buffered()
	var code []module.Offset
	offset := bodyOffset + uint64(localsSize)
	depth := 1
	for depth > 0 {
		instr, size, err := decodeInstruction(br)
		if err != nil {
			return module.FunctionBody{}, fmt.Errorf("encoding: decoding instruction at %d: %w", offset, err)
		}
		switch instr.Op() {
		case 0x02, 0x03, 0x04: // block, loop, if
			depth++
		case 0x0B: // end
			depth--
		}
		if depth == 0 {
			break
		}
		code = append(code, module.Offset{Instruction: instr, RawOffset: offset})
		offset += size
	}

	return module.FunctionBody{Locals: locals, Code: code}, nil
}

func decodeNamesSection(m *module.Module, payload []byte) error {
	m.Names.Present = true
	m.Names.Functions = make(map[uint32]string)

	pr := bufio.NewReader(newByteReader(payload))
	for {
		subID, err := pr.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		size, _, err := readUvarint(pr)
		if err != nil {
			return err
		}
		sub := make([]byte, size)
		if _, err := io.ReadFull(pr, sub); err != nil {
			return err
		}
		subReader := bufio.NewReader(newByteReader(sub))
		switch subID {
		case 0: // module name
			name, _, err := readName(subReader)
			if err != nil {
				return err
			}
			m.Names.Module = name
		case 1: // function names
			count, _, err := readUvarint(subReader)
			if err != nil {
				return err
			}
			for i := uint64(0); i < count; i++ {
				idx, _, err := readUvarint(subReader)
				if err != nil {
					return err
				}
				name, _, err := readName(subReader)
				if err != nil {
					return err
				}
				m.Names.Functions[uint32(idx)] = name
			}
		default:
			// local-variable names and anything else: preserved only
			// insofar as wasmut never needs to re-emit them faithfully;
			// dropped on round-trip.
		}
	}
}

func readName(pr *bufio.Reader) (string, int, error) {
	size, n, err := readUvarint(pr)
	if err != nil {
		return "", 0, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(pr, buf); err != nil {
		return "", 0, err
	}
	return string(buf), n + int(size), nil
}

// byteReader adapts a []byte to io.Reader without copying, so that
// section payloads can be wrapped in their own bufio.Reader.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
