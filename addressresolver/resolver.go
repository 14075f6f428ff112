// Package addressresolver maps a code-section-relative instruction
// offset back to the source file, function and line that produced it,
// using the DWARF debug information a compiler embeds in a module's
// custom sections. It is built directly on the standard library's
// debug/dwarf package since DWARF data in a WebAssembly module is not
// wrapped in an ELF container the way debug/elf expects.
package addressresolver

import (
	"debug/dwarf"
	"io"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

// CodeLocation describes one frame of source-level context for an
// instruction offset. Several may be returned for a single offset
// when the compiler inlined one function into another; Function,
// File, Line and Column are nil when unknown.
type CodeLocation struct {
	File     *string
	Function *string
	Line     *uint32
	Column   *uint32
}

const lookupCacheSize = 4096

// subprogram is a flattened, address-ranged view of a DW_TAG_subprogram
// or DW_TAG_inlined_subroutine DIE, used to reconstruct the inline
// chain covering a given address.
type subprogram struct {
	lowPC, highPC uint64
	name          string
	depth         int
}

// AddressResolver resolves code-section-relative offsets to source
// locations for a single parsed module.
type AddressResolver struct {
	dwarfData   *dwarf.Data
	subprograms []subprogram
	fallback    map[uint64]string
	cache       *lru.Cache[uint64, []CodeLocation]
}

// New builds a resolver from m's embedded DWARF custom sections. It
// does not fail on missing or malformed DWARF data: such a resolver
// answers every lookup with a single location whose fields are all
// nil (the name section is not consulted), and a missing name section
// only produces a warning.
func New(m *module.Module) (*AddressResolver, error) {
	if !m.HasNamesSection() {
		wasmutlog.Warn("module has no name section, source locations will be limited")
	}

	sections := make(map[string][]byte, len(m.Customs))
	for _, c := range m.Customs {
		sections[c.Name] = c.Data
	}

	cache, err := lru.New[uint64, []CodeLocation](lookupCacheSize)
	if err != nil {
		return nil, err
	}

	r := &AddressResolver{
		fallback: m.Names.Functions,
		cache:    cache,
	}

	abbrev := sections["debug_abbrev"]
	info := sections["debug_info"]
	if len(info) == 0 || len(abbrev) == 0 {
		// No DWARF data: every lookup yields an empty location.
		return r, nil
	}

	d, err := dwarf.New(abbrev, nil, nil, info, sections["debug_line"], nil, sections["debug_ranges"], sections["debug_str"])
	if err != nil {
		wasmutlog.Warnf("failed to parse DWARF data, source locations will be unavailable: %v", err)
		return r, nil
	}
	r.dwarfData = d
	r.subprograms = collectSubprograms(d)

	return r, nil
}

func collectSubprograms(d *dwarf.Data) []subprogram {
	var out []subprogram
	reader := d.Reader()
	depth := 0
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag == 0 && !entry.Children {
			depth--
			continue
		}
		if entry.Tag == dwarf.TagSubprogram || entry.Tag == dwarf.TagInlinedSubroutine {
			low, high, ok := entryPCRange(entry)
			if ok {
				name, _ := entry.Val(dwarf.AttrName).(string)
				out = append(out, subprogram{lowPC: low, highPC: high, name: name, depth: depth})
			}
		}
		if entry.Children {
			depth++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].lowPC < out[j].lowPC })
	return out
}

func entryPCRange(entry *dwarf.Entry) (uint64, uint64, bool) {
	lowField := entry.AttrField(dwarf.AttrLowpc)
	highField := entry.AttrField(dwarf.AttrHighpc)
	if lowField == nil || highField == nil {
		return 0, 0, false
	}
	low, ok := lowField.Val.(uint64)
	if !ok {
		return 0, 0, false
	}
	switch v := highField.Val.(type) {
	case uint64:
		if highField.Class == dwarf.ClassAddress {
			return low, v, true
		}
		return low, low + v, true
	case int64:
		return low, low + uint64(v), true
	default:
		return 0, 0, false
	}
}

// LookupAddress returns every source-level frame covering the given
// code-section-relative offset, innermost first. When no subprogram
// covers the offset it returns a single entry holding only the line
// table's file, line and column, all nil when no DWARF information is
// available.
func (r *AddressResolver) LookupAddress(offset uint64) ([]CodeLocation, error) {
	if locs, ok := r.cache.Get(offset); ok {
		return locs, nil
	}

	locs := r.lookupUncached(offset)
	r.cache.Add(offset, locs)
	return locs, nil
}

func (r *AddressResolver) lookupUncached(offset uint64) []CodeLocation {
	var locs []CodeLocation

	file, line, col := r.lookupLine(offset)

	var chain []subprogram
	for _, sp := range r.subprograms {
		if offset >= sp.lowPC && offset < sp.highPC {
			chain = append(chain, sp)
		}
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].depth > chain[j].depth })

	for i, sp := range chain {
		loc := CodeLocation{Function: strPtr(sp.name)}
		if i == 0 {
			loc.File = file
			loc.Line = line
			loc.Column = col
		}
		locs = append(locs, loc)
	}

	if len(locs) == 0 {
		locs = append(locs, CodeLocation{File: file, Line: line, Column: col})
	}

	return locs
}

func (r *AddressResolver) lookupLine(offset uint64) (*string, *uint32, *uint32) {
	if r.dwarfData == nil {
		return nil, nil, nil
	}

	reader := r.dwarfData.Reader()
	for {
		cu, err := reader.Next()
		if err != nil || cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit {
			reader.SkipChildren()
			continue
		}
		lr, err := r.dwarfData.LineReader(cu)
		if err != nil || lr == nil {
			reader.SkipChildren()
			continue
		}

		var entry dwarf.LineEntry
		var best *dwarf.LineEntry
		for {
			err := lr.Next(&entry)
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			if entry.EndSequence {
				continue
			}
			if entry.Address <= offset {
				e := entry
				best = &e
			} else if best != nil {
				break
			}
		}
		if best != nil {
			var file *string
			if best.File != nil {
				file = strPtr(best.File.Name)
			}
			line := uint32(best.Line)
			col := uint32(best.Column)
			return file, &line, &col
		}
		reader.SkipChildren()
	}
	return nil, nil, nil
}

func strPtr(s string) *string { return &s }
