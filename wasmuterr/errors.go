// Package wasmuterr defines the error taxonomy shared across wasmut's
// packages, so that callers can classify a failure (and decide whether
// it is recoverable per-mutation or fatal to the whole run) without
// string-matching error messages.
package wasmuterr

import "fmt"

// ErrCode enumerates the kinds of error wasmut can produce.
type ErrCode int

const (
	// InternalErr indicates an unexpected, otherwise-unclassified
	// failure.
	InternalErr ErrCode = iota

	// BytecodeDeserializationErr indicates the input file could not be
	// parsed as a WebAssembly module.
	BytecodeDeserializationErr

	// BytecodeSerializationErr indicates a mutated module could not be
	// re-encoded to bytes.
	BytecodeSerializationErr

	// RuntimeCreationErr indicates the sandboxed execution engine could
	// not be constructed (engine/linker/store setup).
	RuntimeCreationErr

	// RuntimeInstantiationErr indicates a parsed module could not be
	// instantiated against the runtime (missing import, validation
	// failure introduced by a mutation).
	RuntimeInstantiationErr

	// RuntimeCallErr indicates invoking the module's entry point
	// failed for a reason other than a trap or the instruction budget
	// being exceeded.
	RuntimeCallErr

	// RuntimeTrapErr indicates the module trapped during execution.
	RuntimeTrapErr

	// WasmModuleNonzeroExitErr indicates the baseline (unmutated)
	// module's self-test exited with a non-zero status, meaning the
	// supplied module fails its own tests before any mutation is
	// applied.
	WasmModuleNonzeroExitErr

	// WasmModuleFailedErr indicates the baseline module failed outright
	// (trapped or errored) before any mutation was applied, so no
	// mutation of it can be meaningfully classified.
	WasmModuleFailedErr

	// ConfigErr indicates a configuration file could not be read or
	// parsed.
	ConfigErr

	// AddressResolutionErr indicates DWARF debug information could not
	// be used to resolve a code offset to a source location.
	AddressResolutionErr
)

// Error is the error type returned by wasmut's domain packages. It
// wraps an optional underlying cause while keeping a stable Code that
// callers can switch on.
type Error struct {
	Code    ErrCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("wasmut error (code: %d): %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("wasmut error (code: %d): %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// IsFatal reports whether err represents a failure that invalidates
// an entire mutation run rather than a single mutant (a bad input
// module, a baseline that does not pass its own self-test, or a
// configuration problem).
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Code {
	case BytecodeDeserializationErr, RuntimeCreationErr, WasmModuleNonzeroExitErr,
		WasmModuleFailedErr, ConfigErr:
		return true
	default:
		return false
	}
}

// BytecodeDeserialization wraps a module-parsing failure.
func BytecodeDeserialization(cause error) *Error {
	return &Error{Code: BytecodeDeserializationErr, Message: "failed to parse WebAssembly module", cause: cause}
}

// BytecodeSerialization wraps a module re-encoding failure.
func BytecodeSerialization(cause error) *Error {
	return &Error{Code: BytecodeSerializationErr, Message: "failed to encode mutated module", cause: cause}
}

// RuntimeCreation wraps a sandbox-construction failure.
func RuntimeCreation(cause error) *Error {
	return &Error{Code: RuntimeCreationErr, Message: "failed to create execution runtime", cause: cause}
}

// RuntimeInstantiation wraps a module-instantiation failure.
func RuntimeInstantiation(cause error) *Error {
	return &Error{Code: RuntimeInstantiationErr, Message: "failed to instantiate module", cause: cause}
}

// RuntimeCall wraps a failure invoking the module's entry point.
func RuntimeCall(cause error) *Error {
	return &Error{Code: RuntimeCallErr, Message: "failed to call module entry point", cause: cause}
}

// RuntimeTrap reports that the module trapped during execution.
func RuntimeTrap(cause error) *Error {
	return &Error{Code: RuntimeTrapErr, Message: "module trapped", cause: cause}
}

// WasmModuleNonzeroExit reports that the unmutated module's self-test
// exited with the given non-zero status.
func WasmModuleNonzeroExit(exitCode int32) *Error {
	return &Error{Code: WasmModuleNonzeroExitErr, Message: fmt.Sprintf("baseline module exited with status %d", exitCode)}
}

// WasmModuleFailed reports that the unmutated module trapped or
// errored outright.
func WasmModuleFailed(cause error) *Error {
	return &Error{Code: WasmModuleFailedErr, Message: "baseline module failed before any mutation was applied", cause: cause}
}

// Config wraps a configuration load/parse failure.
func Config(cause error) *Error {
	return &Error{Code: ConfigErr, Message: "invalid configuration", cause: cause}
}

// AddressResolution wraps a DWARF lookup failure.
func AddressResolution(cause error) *Error {
	return &Error{Code: AddressResolutionErr, Message: "failed to resolve source location", cause: cause}
}

// Internal wraps an otherwise-unclassified failure.
func Internal(format string, args ...interface{}) *Error {
	return &Error{Code: InternalErr, Message: fmt.Sprintf(format, args...)}
}
