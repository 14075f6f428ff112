// Package executor runs a module's baseline self-test to establish an
// instruction budget, then runs every mutant under that budget in
// parallel, classifying each into a MutationOutcome.
package executor

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lwagner94/wasmut-sub000/defaults"
	"github.com/lwagner94/wasmut-sub000/mutation"
	"github.com/lwagner94/wasmut-sub000/runtime"
	"github.com/lwagner94/wasmut-sub000/wasmmodule"
	"github.com/lwagner94/wasmut-sub000/wasmuterr"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

// MutationOutcome classifies one mutant's execution.
type MutationOutcome int

// Recognized outcomes.
const (
	Alive MutationOutcome = iota
	Killed
	Timeout
	ExecutionError
)

func (o MutationOutcome) String() string {
	switch o {
	case Alive:
		return "alive"
	case Killed:
		return "killed"
	case Timeout:
		return "timeout"
	default:
		return "error"
	}
}

// ProgressCallback is invoked once per mutation with its outcome.
// Invocations may come from multiple goroutines; Executor serializes
// calls with an internal mutex so callback implementations never need
// to be reentrant-safe themselves.
type ProgressCallback func(MutationOutcome)

// Executor runs a module's mutants under an instruction-count budget
// derived from the module's own baseline execution cost.
type Executor struct {
	backend           runtime.Backend
	threads           int
	timeoutMultiplier float64
	progressCallback  ProgressCallback
	progressMu        sync.Mutex
}

// New builds an Executor. threads bounds the parallel mutant fan-out;
// a value <= 0 means unbounded (errgroup.SetLimit is not called).
func New(backend runtime.Backend, threads int, timeoutMultiplier float64, callback ProgressCallback) *Executor {
	if timeoutMultiplier <= 0 {
		timeoutMultiplier = defaults.TimeoutMultiplier
	}
	return &Executor{
		backend:           backend,
		threads:           threads,
		timeoutMultiplier: timeoutMultiplier,
		progressCallback:  callback,
	}
}

// Execute runs module's baseline self-test, derives the per-mutant
// instruction budget from its cost, and then executes every mutation
// in mutations under that budget, returning one outcome per mutation
// in the same order mutations was given in.
func (e *Executor) Execute(ctx context.Context, module *wasmmodule.WasmModule, mutations []mutation.Mutation) ([]MutationOutcome, error) {
	baselineCost, err := e.runBaseline(ctx, module)
	if err != nil {
		return nil, err
	}

	limit := uint64(math.Ceil(float64(baselineCost) * e.timeoutMultiplier))
	wasmutlog.Infof("original module executed in %d instructions, setting limit to %d", baselineCost, limit)

	outcomes := make([]MutationOutcome, len(mutations))

	g, gctx := errgroup.WithContext(ctx)
	if e.threads > 0 {
		g.SetLimit(e.threads)
	}

	for i, m := range mutations {
		i, m := i, m
		g.Go(func() error {
			outcome, err := e.runMutant(gctx, module, m, limit)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			e.reportProgress(outcome)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (e *Executor) runBaseline(ctx context.Context, module *wasmmodule.WasmModule) (uint64, error) {
	instrumentedModule := module.Clone()
	instrumentedModule.InsertTracePoints()

	bytecode, err := instrumentedModule.ToBytes()
	if err != nil {
		return 0, wasmuterr.BytecodeSerialization(err)
	}

	rt, err := runtime.New(ctx, e.backend, bytecode)
	if err != nil {
		return 0, err
	}
	defer rt.Close(ctx)

	result, err := rt.CallTestFunction(ctx, runtime.RunUntilReturn())
	if err != nil {
		return 0, wasmuterr.RuntimeCall(err)
	}

	switch result.Kind {
	case runtime.ProcessExit:
		if result.ExitCode != 0 {
			return 0, wasmuterr.WasmModuleNonzeroExit(result.ExitCode)
		}
		return result.ExecutionCost, nil
	case runtime.LimitExceeded:
		// RunUntilReturn sets no budget; reaching this would be an
		// internal inconsistency in the runtime backend, not a
		// classifiable mutant outcome.
		return 0, wasmuterr.Internal("runtime reported limit exceeded on an unbounded baseline run")
	default:
		return 0, wasmuterr.WasmModuleFailed(nil)
	}
}

func (e *Executor) runMutant(ctx context.Context, module *wasmmodule.WasmModule, m mutation.Mutation, limit uint64) (MutationOutcome, error) {
	mutant, err := module.MutatedClone(m)
	if err != nil {
		return ExecutionError, nil //nolint:nilerr // a malformed mutant is a classification, not a run failure
	}

	mutant.InsertTracePoints()

	bytecode, err := mutant.ToBytes()
	if err != nil {
		return ExecutionError, nil //nolint:nilerr
	}

	rt, err := runtime.New(ctx, e.backend, bytecode)
	if err != nil {
		return ExecutionError, nil //nolint:nilerr
	}
	defer rt.Close(ctx)

	result, err := rt.CallTestFunction(ctx, runtime.RunUntilLimit(limit))
	if err != nil {
		return ExecutionError, nil //nolint:nilerr
	}

	switch result.Kind {
	case runtime.ProcessExit:
		if result.ExitCode == 0 {
			return Alive, nil
		}
		return Killed, nil
	case runtime.LimitExceeded:
		return Timeout, nil
	case runtime.Trapped:
		return Killed, nil
	default:
		return ExecutionError, nil
	}
}

func (e *Executor) reportProgress(outcome MutationOutcome) {
	if e.progressCallback == nil {
		return
	}
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.progressCallback(outcome)
}
