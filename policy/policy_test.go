package policy

import (
	"testing"

	"github.com/lwagner94/wasmut-sub000/config"
)

func TestAllowAllMatchesAnything(t *testing.T) {
	p := AllowAll()
	if !p.CheckFunction("anything") || !p.CheckFile("any/path.c") {
		t.Fatal("AllowAll should permit every name")
	}
}

func TestBuilderRestrictsToPatterns(t *testing.T) {
	p, err := NewBuilder().AllowFunction("^test_").AllowFile("src/.*\\.c$").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !p.CheckFunction("test_add") {
		t.Error("test_add should match ^test_")
	}
	if p.CheckFunction("add") {
		t.Error("add should not match ^test_")
	}
	if !p.CheckFile("src/main.c") {
		t.Error("src/main.c should match src/.*\\.c$")
	}
	if p.CheckFile("src/main.h") {
		t.Error("src/main.h should not match src/.*\\.c$")
	}
}

func TestFromConfigAllowsAllWithNoFilter(t *testing.T) {
	p, err := FromConfig(config.Default())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if !p.CheckFunction("whatever") {
		t.Error("expected AllowAll semantics when no filter is configured")
	}
}

func TestFromConfigUsesFilterSection(t *testing.T) {
	cfg := config.Default()
	cfg.Filter.AllowedFunctions = []string{"^test_"}

	p, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if !p.CheckFunction("test_add") {
		t.Error("test_add should be allowed")
	}
	if p.CheckFunction("add") {
		t.Error("add should not be allowed")
	}
}

func TestCheckTreatsUnresolvedNamesAsInScope(t *testing.T) {
	p, err := NewBuilder().AllowFunction("^test_").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !p.Check("", false, "", false) {
		t.Error("a candidate with no resolved file or function should remain in scope")
	}
	if !p.Check("", false, "test_add", true) {
		t.Error("test_add should be in scope")
	}
	if p.Check("", false, "add", true) {
		t.Error("add should be filtered out")
	}
}
