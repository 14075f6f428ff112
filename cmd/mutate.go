package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lwagner94/wasmut-sub000/cmd/internal/flags"
	"github.com/lwagner94/wasmut-sub000/executor"
	"github.com/lwagner94/wasmut-sub000/mutation"
	"github.com/lwagner94/wasmut-sub000/operator"
	"github.com/lwagner94/wasmut-sub000/report"
	"github.com/lwagner94/wasmut-sub000/runtime"
	"github.com/lwagner94/wasmut-sub000/wasmmodule"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

type mutateParams struct {
	config        string
	configSamedir bool
	threads       int
}

func initMutate(root *cobra.Command) {
	var p mutateParams

	c := &cobra.Command{
		Use:   "mutate <wasmfile>",
		Short: "Discover and execute every mutant, reporting which survive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd.Context(), args[0], p, os.Stdout)
		},
	}

	flags.AddConfigFlag(c.Flags(), &p.config)
	flags.AddConfigSamedirFlag(c.Flags(), &p.configSamedir)
	flags.AddThreadsFlag(c.Flags(), &p.threads)

	root.AddCommand(c)
}

func mutate(ctx context.Context, wasmfile string, p mutateParams, w io.Writer) error {
	cfg, err := loadConfig(p.config, p.configSamedir, wasmfile)
	if err != nil {
		return err
	}

	m, err := wasmmodule.FromFile(wasmfile)
	if err != nil {
		return err
	}

	engine, err := mutation.NewEngine(cfg, operator.AllOperatorNames())
	if err != nil {
		return err
	}

	locations, err := engine.DiscoverMutationPositions(m)
	if err != nil {
		return err
	}
	mutations := mutation.Flatten(locations)

	runID := report.NewRunID()
	wasmutlog.Infof("run %s: discovered %d mutants across %d instructions", runID, len(mutations), len(locations))

	threads := p.threads
	if threads <= 0 {
		threads = cfg.EngineOrDefault().Threads()
	}

	var done int
	progress := func(executor.MutationOutcome) {
		done++
		wasmutlog.Debugf("run %s: %d/%d mutants executed", runID, done, len(mutations))
	}

	exec := executor.New(runtime.Wazero, threads, cfg.EngineOrDefault().TimeoutMultiplierOrDefault(), progress)

	outcomes, err := exec.Execute(ctx, m, mutations)
	if err != nil {
		return err
	}

	mutants := report.Resolve(m.Resolver(), mutations, outcomes)
	return report.NewConsoleReporter(w).Report(mutants)
}
