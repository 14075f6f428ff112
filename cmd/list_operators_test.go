package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestListOperatorsBareListing(t *testing.T) {
	var buf bytes.Buffer
	if err := listOperators("", listOperatorsParams{}, &buf); err != nil {
		t.Fatalf("listOperators: %v", err)
	}
	if !strings.Contains(buf.String(), "binop_add_to_sub") {
		t.Errorf("expected every operator name in output, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "(enabled)") || strings.Contains(buf.String(), "(disabled)") {
		t.Error("no config was loaded, so no enabled/disabled annotation is expected")
	}
}

func TestListOperatorsVerboseIncludesDescriptions(t *testing.T) {
	var buf bytes.Buffer
	p := listOperatorsParams{verbose: true}
	if err := listOperators("", p, &buf); err != nil {
		t.Fatalf("listOperators: %v", err)
	}
	if !strings.Contains(buf.String(), "->") {
		t.Errorf("expected verbose output to include operator descriptions, got:\n%s", buf.String())
	}
}
