package runtime

import (
	"context"
	"errors"
	"os"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/lwagner94/wasmut-sub000/runtime/tracepoint"
	"github.com/lwagner94/wasmut-sub000/wasmuterr"
)

// WazeroRuntime is the primary, pure-Go Runtime backend.
type WazeroRuntime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	counter  atomic.Uint64
}

// NewWazero compiles wasmBytes (already trace-point instrumented) and
// wires the __wasmut_trace host import that the execution policy
// enforces against.
func NewWazero(ctx context.Context, wasmBytes []byte) (*WazeroRuntime, error) {
	r := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, wasmuterr.RuntimeCreation(err)
	}

	wrt := &WazeroRuntime{runtime: r}

	_, err := r.NewHostModuleBuilder(tracepoint.ImportModule).
		NewFunctionBuilder().
		WithFunc(wrt.trace).
		Export(tracepoint.ImportField).
		Instantiate(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, wasmuterr.RuntimeCreation(err)
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, wasmuterr.RuntimeCreation(err)
	}
	wrt.compiled = compiled

	return wrt, nil
}

func (r *WazeroRuntime) trace(ctx context.Context, _ int64) {
	n := r.counter.Add(1)
	limit, limited := policyFromContext(ctx)
	if limited && n > limit {
		panic(ErrLimitExceeded)
	}
}

type policyContextKey struct{}

func contextWithPolicy(ctx context.Context, policy ExecutionPolicy) context.Context {
	return context.WithValue(ctx, policyContextKey{}, policy)
}

func policyFromContext(ctx context.Context) (uint64, bool) {
	policy, _ := ctx.Value(policyContextKey{}).(ExecutionPolicy)
	return policy.Limited()
}

// CallTestFunction instantiates a fresh module instance (instance
// state, e.g. memory and globals, must not leak between calls) and
// invokes EntryPoint under policy.
func (r *WazeroRuntime) CallTestFunction(ctx context.Context, policy ExecutionPolicy) (result ExecutionResult, err error) {
	r.counter.Store(0)
	ctx = contextWithPolicy(ctx, policy)

	cfg := wazero.NewModuleConfig().
		WithArgs("wasmut").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStdin(os.Stdin)

	mod, instErr := r.runtime.InstantiateModule(ctx, r.compiled, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if instErr != nil {
		return classifyWazeroError(instErr, r.counter.Load())
	}

	defer func() {
		if rec := recover(); rec != nil {
			if errors.Is(toError(rec), ErrLimitExceeded) {
				result = ExecutionResult{Kind: LimitExceeded, ExecutionCost: r.counter.Load()}
				err = nil
				return
			}
			panic(rec)
		}
	}()

	fn := mod.ExportedFunction(EntryPoint)
	if fn == nil {
		return ExecutionResult{}, wasmuterr.RuntimeCall(errors.New("module has no " + EntryPoint + " export"))
	}

	_, callErr := fn.Call(ctx)
	return classifyWazeroError(callErr, r.counter.Load())
}

func classifyWazeroError(err error, cost uint64) (ExecutionResult, error) {
	if err == nil {
		return ExecutionResult{Kind: ProcessExit, ExitCode: 0, ExecutionCost: cost}, nil
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		return ExecutionResult{
			Kind:          ProcessExit,
			ExitCode:      int32(exitErr.ExitCode()),
			ExecutionCost: cost,
		}, nil
	}

	if errors.Is(err, ErrLimitExceeded) {
		return ExecutionResult{Kind: LimitExceeded, ExecutionCost: cost}, nil
	}

	return ExecutionResult{Kind: Trapped, ExecutionCost: cost}, nil
}

func toError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return nil
}

// Close releases the compiled module and underlying wazero runtime.
func (r *WazeroRuntime) Close(ctx context.Context) error {
	if r.compiled != nil {
		_ = r.compiled.Close(ctx)
	}
	return r.runtime.Close(ctx)
}
