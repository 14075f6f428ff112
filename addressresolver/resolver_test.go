package addressresolver

import (
	"debug/dwarf"
	"testing"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

func TestNewWithoutDebugInfoFallsBack(t *testing.T) {
	m := &module.Module{
		Names: module.NamesSection{
			Present:   true,
			Functions: map[uint32]string{0: "test_add_1"},
		},
	}

	r, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.dwarfData != nil {
		t.Error("expected no DWARF data for a module with no debug_info/debug_abbrev custom sections")
	}

	locs, err := r.LookupAddress(100)
	if err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected a single placeholder location, got %d", len(locs))
	}
}

func TestNewWithoutNamesSectionStillSucceeds(t *testing.T) {
	m := &module.Module{}

	if _, err := New(m); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestLookupAddressCachesResult(t *testing.T) {
	m := &module.Module{}
	r, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := r.LookupAddress(42)
	if err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	second, err := r.LookupAddress(42)
	if err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("expected cached lookup to return the same shape, got %d then %d entries", len(first), len(second))
	}
}

func TestEntryPCRangeHighpcAsOffset(t *testing.T) {
	// A DWARF 4+ producer encodes Highpc as an offset from Lowpc
	// rather than an absolute address; entryPCRange must add rather
	// than use it directly.
	entry := &dwarf.Entry{
		Field: []dwarf.Field{
			{Attr: dwarf.AttrLowpc, Val: uint64(100), Class: dwarf.ClassAddress},
			{Attr: dwarf.AttrHighpc, Val: int64(20), Class: dwarf.ClassConstant},
		},
	}
	low, high, ok := entryPCRange(entry)
	if !ok {
		t.Fatal("expected ok")
	}
	if low != 100 || high != 120 {
		t.Errorf("got low=%d high=%d, want low=100 high=120", low, high)
	}
}

func TestEntryPCRangeMissingFieldsFail(t *testing.T) {
	entry := &dwarf.Entry{Field: []dwarf.Field{
		{Attr: dwarf.AttrLowpc, Val: uint64(100), Class: dwarf.ClassAddress},
	}}
	if _, _, ok := entryPCRange(entry); ok {
		t.Error("expected entryPCRange to fail without a Highpc attribute")
	}
}
