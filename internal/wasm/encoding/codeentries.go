package encoding

import "github.com/lwagner94/wasmut-sub000/internal/wasm/module"

// CodeEntries decodes a single function body (as stored in the code
// section, without its outer size varint) in isolation. Tests use this
// to exercise the instruction decoder against hand-built byte slices
// without constructing a full module. Since there is no real module to
// place the body in, resulting RawOffset values are relative to the
// body's own start (offset 0), not a real module/code-section position.
func CodeEntries(raw []byte) (module.FunctionBody, error) {
	return decodeFunctionBody(raw, 0)
}

// WriteCodeEntry encodes a single function body the way it would
// appear inside the code section, the encode-side counterpart to
// CodeEntries.
func WriteCodeEntry(body module.FunctionBody) []byte {
	return encodeFunctionBody(body)
}
