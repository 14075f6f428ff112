package runtime

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bytecodealliance/wasmtime-go/v3"

	"github.com/lwagner94/wasmut-sub000/runtime/tracepoint"
	"github.com/lwagner94/wasmut-sub000/wasmuterr"
)

// limitExceededTrapMessage is returned by the trace host function as
// a wasmtime.Trap message when a policy's instruction budget is
// exhausted; wasmtime-go surfaces no richer way to tag a host trap
// with an arbitrary Go error, so the call site recognizes this by
// matching the message text.
const limitExceededTrapMessage = "wasmut: execution limit exceeded"

// WasmtimeRuntime is the second, cgo-backed Runtime implementation,
// offered per the execution layer's runtime-plurality requirement.
type WasmtimeRuntime struct {
	engine  *wasmtime.Engine
	module  *wasmtime.Module
	linker  *wasmtime.Linker
	counter atomic.Uint64
	limit   uint64
	limited bool
}

// NewWasmtime compiles wasmBytes (already trace-point instrumented)
// and wires the __wasmut_trace host import.
func NewWasmtime(wasmBytes []byte) (*WasmtimeRuntime, error) {
	engine := wasmtime.NewEngine()

	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		return nil, wasmuterr.RuntimeCreation(err)
	}

	linker := wasmtime.NewLinker(engine)
	if err := linker.DefineWasi(); err != nil {
		return nil, wasmuterr.RuntimeCreation(err)
	}

	r := &WasmtimeRuntime{engine: engine, module: module, linker: linker}

	err = linker.FuncWrap(tracepoint.ImportModule, tracepoint.ImportField, r.trace)
	if err != nil {
		return nil, wasmuterr.RuntimeCreation(err)
	}

	return r, nil
}

func (r *WasmtimeRuntime) trace(_ int64) *wasmtime.Trap {
	n := r.counter.Add(1)
	if r.limited && n > r.limit {
		return wasmtime.NewTrap(limitExceededTrapMessage)
	}
	return nil
}

// CallTestFunction instantiates a fresh store/instance per call so
// guest state never leaks across runs, and invokes EntryPoint under
// policy.
func (r *WasmtimeRuntime) CallTestFunction(_ context.Context, policy ExecutionPolicy) (ExecutionResult, error) {
	r.counter.Store(0)
	r.limit, r.limited = policy.Limited()

	wasiConfig := wasmtime.NewWasiConfig()
	wasiConfig.InheritStdout()
	wasiConfig.InheritStderr()
	wasiConfig.InheritStdin()
	wasiConfig.SetArgv([]string{"wasmut"})

	store := wasmtime.NewStore(r.engine)
	store.SetWasi(wasiConfig)

	instance, err := r.linker.Instantiate(store, r.module)
	if err != nil {
		return ExecutionResult{}, wasmuterr.RuntimeCreation(err)
	}

	entry := instance.GetFunc(store, EntryPoint)
	if entry == nil {
		return ExecutionResult{}, wasmuterr.RuntimeCall(errors.New("module has no " + EntryPoint + " export"))
	}

	_, callErr := entry.Call(store)
	cost := r.counter.Load()

	return classifyWasmtimeError(callErr, cost)
}

func classifyWasmtimeError(err error, cost uint64) (ExecutionResult, error) {
	if err == nil {
		return ExecutionResult{Kind: ProcessExit, ExitCode: 0, ExecutionCost: cost}, nil
	}

	trap, ok := err.(*wasmtime.Trap)
	if !ok {
		return ExecutionResult{Kind: ExecutionError, ExecutionCost: cost}, nil
	}

	if trap.Message() == limitExceededTrapMessage {
		return ExecutionResult{Kind: LimitExceeded, ExecutionCost: cost}, nil
	}

	if code, ok := parseExitStatus(trap.Message()); ok {
		return ExecutionResult{Kind: ProcessExit, ExitCode: code, ExecutionCost: cost}, nil
	}

	return ExecutionResult{Kind: Trapped, ExecutionCost: cost}, nil
}

// parseExitStatus extracts a WASI proc_exit status from a wasmtime
// trap message of the form "...exit status N...", wasmtime-go's only
// surface for distinguishing a WASI exit from a genuine CPU trap.
func parseExitStatus(message string) (int32, bool) {
	const marker = "exit status "
	idx := strings.Index(message, marker)
	if idx < 0 {
		return 0, false
	}
	rest := message[idx+len(marker):]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0, false
	}
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// Close does nothing and always returns nil; no wasmtime resource is
// released explicitly.
func (r *WasmtimeRuntime) Close(_ context.Context) error {
	return nil
}
