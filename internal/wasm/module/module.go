// Package module defines wasmut's in-memory, mutable representation of
// a parsed WebAssembly binary.
package module

import "github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"

// ValueType is one of the four WebAssembly numeric value types that
// wasmut's operators reason about.
type ValueType byte

// Recognized value types.
const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// FuncType is a function signature: zero or more parameter types
// followed by zero or more result types.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// TypeSection lists every distinct function signature referenced by
// the module.
type TypeSection struct {
	Functions []FuncType
}

// ExternalKind distinguishes the four import/export kinds.
type ExternalKind byte

// Recognized external kinds.
const (
	ExternalFunction ExternalKind = iota
	ExternalTable
	ExternalMemory
	ExternalGlobal
)

// Import is a single entry of the import section. Only function
// imports carry a meaningful TypeIndex; the others are preserved for
// round-tripping but never mutated.
type Import struct {
	Module    string
	Field     string
	Kind      ExternalKind
	TypeIndex uint32 // valid iff Kind == ExternalFunction
}

// ImportSection is the ordered list of module imports.
type ImportSection struct {
	Imports []Import
}

// FunctionSection maps each module-defined (non-imported) function to
// its signature, by index into TypeSection.Functions.
type FunctionSection struct {
	TypeIndices []uint32
}

// TableElementType is the element type of a table. wasmut only cares
// about AnyFunc tables, since those back call_indirect and therefore
// need their element-segment function indices fixed up by the
// trace-point inserter.
type TableElementType byte

// Recognized table element types.
const (
	AnyFunc TableElementType = iota
	OtherElement
)

// Table is one entry of the table section.
type Table struct {
	ElementType TableElementType
}

// TableSection is the ordered list of tables.
type TableSection struct {
	Tables []Table
}

// ElementSegment initializes a range of a table with function
// indices.
type ElementSegment struct {
	TableIndex uint32
	Offset     int32
	FuncIndices []uint32
}

// ElementSection is the ordered list of element segments.
type ElementSection struct {
	Segments []ElementSegment
}

// Export is a single named export pointing at an internal index.
type Export struct {
	Name  string
	Kind  ExternalKind
	Index uint32
}

// ExportSection is the ordered list of exports.
type ExportSection struct {
	Exports []Export
}

// Offset annotates an Instruction with its byte offset within the
// module, as read from the binary. Code-section-relative offsets
// (offset minus the code section's own start) are what the address
// resolver and trace-point inserter key on; see walker.Location.
type Offset struct {
	Instruction instruction.Instruction
	RawOffset   uint64
}

// FunctionBody is one defined function's local declarations and
// instruction sequence.
type FunctionBody struct {
	// Locals lists the declared local variable types, in declaration
	// order, excluding the function's own parameters.
	Locals []ValueType
	Code    []Offset
}

// CodeSection holds every defined function's body, in function-index
// order (local index, i.e. excluding imported functions).
type CodeSection struct {
	// SectionOffset is the byte offset of the code section's payload
	// within the module; instruction offsets are recorded relative to
	// this value to produce the "code-section-relative offset" the
	// spec requires.
	SectionOffset uint64
	Bodies        []FunctionBody
}

// NamesSection mirrors the optional "name" custom section.
type NamesSection struct {
	Present   bool
	Module    string
	Functions map[uint32]string
}

// Module is the full parsed, mutable WebAssembly module.
type Module struct {
	Type     TypeSection
	Import   ImportSection
	Function FunctionSection
	Table    TableSection
	Element  ElementSection
	Export   ExportSection
	Code     CodeSection
	Names    NamesSection

	// Customs preserves every other custom section verbatim so that
	// WriteModule can re-emit them; wasmut never mutates custom section
	// payloads other than Names and the trace-point rewrite's type/
	// import/code changes.
	Customs []CustomSection
}

// CustomSection is an opaque custom section, preserved byte-for-byte.
type CustomSection struct {
	Name string
	Data []byte
}

// HasNamesSection reports whether the module carries a "name" custom
// section, used to decide whether to warn on construction.
func (m *Module) HasNamesSection() bool {
	return m.Names.Present
}

// FunctionIndexOffset returns the number of imported functions, i.e.
// the index at which module-defined (CodeSection) functions begin in
// the unified function index space.
func (m *Module) FunctionIndexOffset() uint32 {
	var n uint32
	for _, imp := range m.Import.Imports {
		if imp.Kind == ExternalFunction {
			n++
		}
	}
	return n
}

// FuncTypeOf resolves the signature of the function at the given
// unified function index (covering both imported and defined
// functions), or false if the index is out of range.
func (m *Module) FuncTypeOf(funcIndex uint32) (FuncType, bool) {
	importCount := m.FunctionIndexOffset()
	if funcIndex < importCount {
		var seen uint32
		for _, imp := range m.Import.Imports {
			if imp.Kind != ExternalFunction {
				continue
			}
			if seen == funcIndex {
				if int(imp.TypeIndex) >= len(m.Type.Functions) {
					return FuncType{}, false
				}
				return m.Type.Functions[imp.TypeIndex], true
			}
			seen++
		}
		return FuncType{}, false
	}

	definedIndex := funcIndex - importCount
	if int(definedIndex) >= len(m.Function.TypeIndices) {
		return FuncType{}, false
	}
	typeIndex := m.Function.TypeIndices[definedIndex]
	if int(typeIndex) >= len(m.Type.Functions) {
		return FuncType{}, false
	}
	return m.Type.Functions[typeIndex], true
}

// Clone performs a deep copy of every mutable substructure
// (principally the code section) so that a mutated clone never
// aliases the original's instruction slices.
func (m *Module) Clone() *Module {
	clone := &Module{
		Type:    TypeSection{Functions: append([]FuncType(nil), m.Type.Functions...)},
		Import:  ImportSection{Imports: append([]Import(nil), m.Import.Imports...)},
		Function: FunctionSection{TypeIndices: append([]uint32(nil), m.Function.TypeIndices...)},
		Table:   TableSection{Tables: append([]Table(nil), m.Table.Tables...)},
		Export:  ExportSection{Exports: append([]Export(nil), m.Export.Exports...)},
		Names: NamesSection{
			Present: m.Names.Present,
			Module:  m.Names.Module,
		},
		Customs: append([]CustomSection(nil), m.Customs...),
	}

	clone.Element.Segments = make([]ElementSegment, len(m.Element.Segments))
	for i, seg := range m.Element.Segments {
		clone.Element.Segments[i] = ElementSegment{
			TableIndex:  seg.TableIndex,
			Offset:      seg.Offset,
			FuncIndices: append([]uint32(nil), seg.FuncIndices...),
		}
	}

	if m.Names.Functions != nil {
		clone.Names.Functions = make(map[uint32]string, len(m.Names.Functions))
		for k, v := range m.Names.Functions {
			clone.Names.Functions[k] = v
		}
	}

	clone.Code.SectionOffset = m.Code.SectionOffset
	clone.Code.Bodies = make([]FunctionBody, len(m.Code.Bodies))
	for i, body := range m.Code.Bodies {
		clone.Code.Bodies[i] = FunctionBody{
			Locals: append([]ValueType(nil), body.Locals...),
			Code:   append([]Offset(nil), body.Code...),
		}
	}

	return clone
}
