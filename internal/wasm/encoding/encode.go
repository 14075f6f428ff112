package encoding

import (
	"encoding/binary"
	"io"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

// WriteModule serializes m back to the binary WebAssembly format.
// Every section is re-encoded from m's current in-memory state, so a
// mutated code section produces a correctly-resized module: nothing
// downstream of the mutation engine depends on byte offsets staying
// stable across a MutatedClone/WriteModule round trip.
func WriteModule(w io.Writer, m *module.Module) error {
	var out []byte
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], magicNumber)
	binary.LittleEndian.PutUint32(header[4:8], versionNumber)
	out = append(out, header[:]...)

	if len(m.Type.Functions) > 0 {
		out = appendSection(out, sectionType, encodeTypeSection(m))
	}
	if len(m.Import.Imports) > 0 {
		out = appendSection(out, sectionImport, encodeImportSection(m))
	}
	if len(m.Function.TypeIndices) > 0 {
		out = appendSection(out, sectionFunc, encodeFunctionSection(m))
	}
	if len(m.Table.Tables) > 0 {
		out = appendSection(out, sectionTable, encodeTableSection(m))
	}
	for _, custom := range m.Customs {
		switch custom.Name {
		case "\x00memory":
			out = appendSection(out, sectionMemory, custom.Data)
		case "\x00global":
			out = appendSection(out, sectionGlobal, custom.Data)
		}
	}
	if len(m.Export.Exports) > 0 {
		out = appendSection(out, sectionExport, encodeExportSection(m))
	}
	for _, custom := range m.Customs {
		if custom.Name == "\x00start" {
			out = appendSection(out, sectionStart, custom.Data)
		}
	}
	if len(m.Element.Segments) > 0 {
		out = appendSection(out, sectionElem, encodeElementSection(m))
	}
	if len(m.Code.Bodies) > 0 {
		out = appendSection(out, sectionCode, encodeCodeSectionBody(m))
	}
	for _, custom := range m.Customs {
		if custom.Name == "\x00data" {
			out = appendSection(out, sectionData, custom.Data)
		}
	}
	if m.Names.Present {
		out = appendSection(out, sectionCustom, encodeNamesSection(m))
	}
	for _, custom := range m.Customs {
		switch custom.Name {
		case "\x00memory", "\x00global", "\x00start", "\x00data":
			continue
		}
		out = appendSection(out, sectionCustom, encodeCustomSection(custom))
	}

	_, err := w.Write(out)
	return err
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	writeUvarint(&out, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

func encodeCustomSection(c module.CustomSection) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(c.Name)))
	buf = append(buf, c.Name...)
	buf = append(buf, c.Data...)
	return buf
}

func encodeTypeSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Type.Functions)))
	for _, ft := range m.Type.Functions {
		buf = append(buf, 0x60)
		writeUvarint(&buf, uint64(len(ft.Params)))
		for _, p := range ft.Params {
			buf = append(buf, encodeValueType(p))
		}
		writeUvarint(&buf, uint64(len(ft.Results)))
		for _, r := range ft.Results {
			buf = append(buf, encodeValueType(r))
		}
	}
	return buf
}

func encodeValueType(vt module.ValueType) byte {
	switch vt {
	case module.ValueTypeI32:
		return 0x7F
	case module.ValueTypeI64:
		return 0x7E
	case module.ValueTypeF32:
		return 0x7D
	case module.ValueTypeF64:
		return 0x7C
	default:
		return 0x7F
	}
}

func encodeImportSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Import.Imports)))
	for _, imp := range m.Import.Imports {
		writeUvarint(&buf, uint64(len(imp.Module)))
		buf = append(buf, imp.Module...)
		writeUvarint(&buf, uint64(len(imp.Field)))
		buf = append(buf, imp.Field...)
		buf = append(buf, byte(imp.Kind))
		switch imp.Kind {
		case module.ExternalFunction:
			writeUvarint(&buf, uint64(imp.TypeIndex))
		case module.ExternalTable:
			buf = append(buf, 0x70, 0x00)
			writeUvarint(&buf, 0)
		case module.ExternalMemory:
			buf = append(buf, 0x00)
			writeUvarint(&buf, 0)
		case module.ExternalGlobal:
			buf = append(buf, 0x7F, 0x00)
		}
	}
	return buf
}

func encodeFunctionSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Function.TypeIndices)))
	for _, idx := range m.Function.TypeIndices {
		writeUvarint(&buf, uint64(idx))
	}
	return buf
}

func encodeTableSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Table.Tables)))
	for range m.Table.Tables {
		buf = append(buf, 0x70, 0x00)
		writeUvarint(&buf, 0)
	}
	return buf
}

func encodeExportSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Export.Exports)))
	for _, exp := range m.Export.Exports {
		writeUvarint(&buf, uint64(len(exp.Name)))
		buf = append(buf, exp.Name...)
		buf = append(buf, byte(exp.Kind))
		writeUvarint(&buf, uint64(exp.Index))
	}
	return buf
}

func encodeElementSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Element.Segments)))
	for _, seg := range m.Element.Segments {
		writeUvarint(&buf, uint64(seg.TableIndex))
		buf = append(buf, 0x41) // i32.const
		writeVarint(&buf, int64(seg.Offset))
		buf = append(buf, 0x0B) // end
		writeUvarint(&buf, uint64(len(seg.FuncIndices)))
		for _, idx := range seg.FuncIndices {
			writeUvarint(&buf, uint64(idx))
		}
	}
	return buf
}

func encodeCodeSectionBody(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len(m.Code.Bodies)))
	for _, body := range m.Code.Bodies {
		bodyBytes := encodeFunctionBody(body)
		writeUvarint(&buf, uint64(len(bodyBytes)))
		buf = append(buf, bodyBytes...)
	}
	return buf
}

// encodeFunctionBody re-encodes locals and instructions, run-length
// encoding consecutive equal-typed locals the way the decoder expects
// (and the way a compact encoder always should, even though wasmut
// never needs more than one run per type in practice).
func encodeFunctionBody(body module.FunctionBody) []byte {
	var buf []byte

	type run struct {
		vt    module.ValueType
		count uint64
	}
	var runs []run
	for _, vt := range body.Locals {
		if len(runs) > 0 && runs[len(runs)-1].vt == vt {
			runs[len(runs)-1].count++
		} else {
			runs = append(runs, run{vt: vt, count: 1})
		}
	}
	writeUvarint(&buf, uint64(len(runs)))
	for _, r := range runs {
		writeUvarint(&buf, r.count)
		buf = append(buf, encodeValueType(r.vt))
	}

	for _, off := range body.Code {
		_ = encodeInstruction(&buf, off.Instruction)
	}
	buf = append(buf, 0x0B) // end

	return buf
}

func encodeNamesSection(m *module.Module) []byte {
	var buf []byte
	writeUvarint(&buf, uint64(len("name")))
	buf = append(buf, "name"...)

	if m.Names.Module != "" {
		var sub []byte
		writeUvarint(&sub, uint64(len(m.Names.Module)))
		sub = append(sub, m.Names.Module...)
		buf = append(buf, 0x00)
		writeUvarint(&buf, uint64(len(sub)))
		buf = append(buf, sub...)
	}

	if len(m.Names.Functions) > 0 {
		indices := make([]uint32, 0, len(m.Names.Functions))
		for idx := range m.Names.Functions {
			indices = append(indices, idx)
		}
		sortUint32s(indices)

		var sub []byte
		writeUvarint(&sub, uint64(len(indices)))
		for _, idx := range indices {
			writeUvarint(&sub, uint64(idx))
			name := m.Names.Functions[idx]
			writeUvarint(&sub, uint64(len(name)))
			sub = append(sub, name...)
		}
		buf = append(buf, 0x01)
		writeUvarint(&buf, uint64(len(sub)))
		buf = append(buf, sub...)
	}

	return buf
}

func sortUint32s(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
