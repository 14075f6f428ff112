// Package runtime abstracts over the sandboxed WebAssembly engine a
// module's conventional test entry point is executed under, with an
// ExecutionPolicy/ExecutionResult contract rich enough to drive
// RunUntilLimit-based timeout classification and trap detection.
package runtime

import (
	"context"
	"errors"
)

// EntryPoint is the conventional, exit-code-producing export every
// instrumented module is expected to provide. It matches the WASI
// command convention: a fresh argv containing only the program name,
// inherited stdio, and termination via proc_exit.
const EntryPoint = "_start"

// ExecutionPolicy bounds how many trace-point calls a guest run may
// make before the runtime terminates it.
type ExecutionPolicy struct {
	limited bool
	limit   uint64
}

// RunUntilReturn lets the guest run to completion with no instruction
// budget, used for the executor's baseline run.
func RunUntilReturn() ExecutionPolicy {
	return ExecutionPolicy{}
}

// RunUntilLimit terminates the guest once it has executed more than
// limit instrumented instructions.
func RunUntilLimit(limit uint64) ExecutionPolicy {
	return ExecutionPolicy{limited: true, limit: limit}
}

// Limited reports whether the policy caps execution, and the cap.
func (p ExecutionPolicy) Limited() (uint64, bool) {
	return p.limit, p.limited
}

// ResultKind classifies how a test-function call ended.
type ResultKind int

// Recognized result kinds.
const (
	// ProcessExit means the guest ran its entry point to completion
	// (or called proc_exit) and produced an exit code.
	ProcessExit ResultKind = iota
	// LimitExceeded means the policy's instruction budget was
	// exhausted before the guest returned.
	LimitExceeded
	// Trapped means the guest hit an unrecoverable WebAssembly trap
	// (unreachable, out-of-bounds memory, integer division by zero,
	// a stack overflow, ...).
	Trapped
	// ExecutionError means the runtime itself could not carry out the
	// call (host-side failure unrelated to the guest's behavior).
	ExecutionError
)

// ExecutionResult is the outcome of one CallTestFunction invocation.
type ExecutionResult struct {
	Kind          ResultKind
	ExitCode      int32
	ExecutionCost uint64
}

// ErrLimitExceeded is the sentinel the trace-point host import uses to
// unwind a guest call once its instruction budget is exhausted.
var ErrLimitExceeded = errors.New("execution limit exceeded")

// Runtime instantiates one WebAssembly module and runs its test entry
// point under a succession of execution policies.
type Runtime interface {
	// CallTestFunction invokes EntryPoint under policy.
	CallTestFunction(ctx context.Context, policy ExecutionPolicy) (ExecutionResult, error)

	// Close releases the runtime's resources. Safe to call multiple
	// times.
	Close(ctx context.Context) error
}

// Backend selects which Runtime implementation New constructs.
type Backend int

// Recognized backends. Both are full implementations of the same
// instrumented-module contract; either may be selected.
const (
	Wazero Backend = iota
	Wasmtime
)

func (b Backend) String() string {
	switch b {
	case Wasmtime:
		return "wasmtime"
	default:
		return "wazero"
	}
}

// New compiles and wires wasmBytes (expected to already carry
// trace-point instrumentation, see package tracepoint) under the
// requested backend.
func New(ctx context.Context, backend Backend, wasmBytes []byte) (Runtime, error) {
	switch backend {
	case Wasmtime:
		return NewWasmtime(wasmBytes)
	default:
		return NewWazero(ctx, wasmBytes)
	}
}
