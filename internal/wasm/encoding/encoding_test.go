package encoding

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lwagner94/wasmut-sub000/internal/wasm/instruction"
	"github.com/lwagner94/wasmut-sub000/internal/wasm/module"
)

// twoFunctionModule builds a module with two defined functions so that
// decodeCodeSection's cumulative position tracking has more than one
// body to get wrong.
func twoFunctionModule() *module.Module {
	return &module.Module{
		Type: module.TypeSection{
			Functions: []module.FuncType{{}},
		},
		Function: module.FunctionSection{
			TypeIndices: []uint32{0, 0},
		},
		Code: module.CodeSection{
			Bodies: []module.FunctionBody{
				{
					Code: []module.Offset{
						{Instruction: instruction.I32Const{Value: 10}},
						{Instruction: instruction.I32Const{Value: 12}},
						{Instruction: instruction.Binary(0x6A)}, // i32.add
					},
				},
				{
					Code: []module.Offset{
						{Instruction: instruction.I32Const{Value: 1}},
						{Instruction: instruction.Nop{}},
					},
				},
			},
		},
	}
}

func TestWriteReadModuleRoundTrip(t *testing.T) {
	m := twoFunctionModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	got, err := ReadModule(&buf)
	if err != nil {
		t.Fatalf("ReadModule: %v", err)
	}

	if len(got.Code.Bodies) != 2 {
		t.Fatalf("expected 2 function bodies, got %d", len(got.Code.Bodies))
	}
	if diff := cmp.Diff(m.Function, got.Function); diff != "" {
		t.Errorf("function section mismatch (-want +got):\n%s", diff)
	}

	for bi, body := range got.Code.Bodies {
		want := m.Code.Bodies[bi]
		if len(body.Code) != len(want.Code) {
			t.Fatalf("body %d: expected %d instructions, got %d", bi, len(want.Code), len(body.Code))
		}
		for ii, off := range body.Code {
			if off.Instruction != want.Code[ii].Instruction {
				t.Errorf("body %d instr %d: got %v, want %v", bi, ii, off.Instruction, want.Code[ii].Instruction)
			}
		}
	}
}

// TestDecodeCodeSectionOffsetsAreCumulative pins down the fix to
// decodeCodeSection/decodeFunctionBody: every instruction's RawOffset
// must be a true absolute module position, strictly increasing body
// to body, never reset back to a small body-local count.
func TestDecodeCodeSectionOffsetsAreCumulative(t *testing.T) {
	m := twoFunctionModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	got, err := ReadModule(&buf)
	if err != nil {
		t.Fatalf("ReadModule: %v", err)
	}

	firstBody := got.Code.Bodies[0].Code
	secondBody := got.Code.Bodies[1].Code

	if len(firstBody) == 0 || len(secondBody) == 0 {
		t.Fatalf("expected both bodies to decode instructions")
	}

	for _, off := range firstBody {
		if off.RawOffset <= got.Code.SectionOffset {
			t.Errorf("first body instruction offset %d must be greater than section offset %d", off.RawOffset, got.Code.SectionOffset)
		}
	}

	lastFirst := firstBody[len(firstBody)-1].RawOffset
	firstSecond := secondBody[0].RawOffset
	if firstSecond <= lastFirst {
		t.Errorf("second body's first offset (%d) must be greater than first body's last offset (%d); offsets are not cumulative across bodies", firstSecond, lastFirst)
	}

	for i := 1; i < len(firstBody); i++ {
		if firstBody[i].RawOffset <= firstBody[i-1].RawOffset {
			t.Errorf("offsets within a body must strictly increase: instruction %d has offset %d, previous had %d", i, firstBody[i].RawOffset, firstBody[i-1].RawOffset)
		}
	}
}

func TestCodeEntriesRoundTrip(t *testing.T) {
	body := module.FunctionBody{
		Locals: []module.ValueType{module.ValueTypeI32},
		Code: []module.Offset{
			{Instruction: instruction.I32Const{Value: 7}},
			{Instruction: instruction.Drop{}},
		},
	}

	raw := WriteCodeEntry(body)

	decoded, err := CodeEntries(raw)
	if err != nil {
		t.Fatalf("CodeEntries: %v", err)
	}

	if diff := cmp.Diff(body.Locals, decoded.Locals); diff != "" {
		t.Errorf("locals mismatch (-want +got):\n%s", diff)
	}
	if len(decoded.Code) != len(body.Code) {
		t.Fatalf("expected %d instructions, got %d", len(body.Code), len(decoded.Code))
	}
	// The locals declaration takes 3 bytes and i32.const 7 takes 2, so
	// the offsets relative to the body's own start are 3 and 5.
	wantOffsets := []uint64{3, 5}
	for i, off := range decoded.Code {
		if off.Instruction != body.Code[i].Instruction {
			t.Errorf("instruction %d: got %v, want %v", i, off.Instruction, body.Code[i].Instruction)
		}
		if off.RawOffset != wantOffsets[i] {
			t.Errorf("instruction %d: expected body-relative offset %d, got %d", i, wantOffsets[i], off.RawOffset)
		}
	}
}

func TestReadModuleRejectsBadMagic(t *testing.T) {
	_, err := ReadModule(bytes.NewReader([]byte{0, 1, 2, 3, 1, 0, 0, 0}))
	if err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}
