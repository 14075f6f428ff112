package runtime

import "testing"

func TestRunUntilReturnIsUnlimited(t *testing.T) {
	limit, limited := RunUntilReturn().Limited()
	if limited {
		t.Errorf("expected RunUntilReturn to be unlimited, got limit=%d", limit)
	}
}

func TestRunUntilLimitReportsItsBound(t *testing.T) {
	limit, limited := RunUntilLimit(42).Limited()
	if !limited || limit != 42 {
		t.Errorf("got limited=%v limit=%d, want limited=true limit=42", limited, limit)
	}
}

func TestBackendString(t *testing.T) {
	cases := []struct {
		backend Backend
		want    string
	}{
		{Wazero, "wazero"},
		{Wasmtime, "wasmtime"},
	}
	for _, c := range cases {
		if got := c.backend.String(); got != c.want {
			t.Errorf("Backend(%d).String() = %q, want %q", c.backend, got, c.want)
		}
	}
}
