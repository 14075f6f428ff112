package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lwagner94/wasmut-sub000/cmd/internal/flags"
	"github.com/lwagner94/wasmut-sub000/runtime"
	"github.com/lwagner94/wasmut-sub000/wasmmodule"
)

type runParams struct {
	config        string
	configSamedir bool
}

func initRun(root *cobra.Command) {
	var p runParams

	c := &cobra.Command{
		Use:   "run <wasmfile>",
		Short: "Run a module's test entry point once, unmutated",
		Long: `Run a module's conventional test entry point exactly once, with no
mutation or instruction budget, and report how it exited. Useful to
confirm a module is suitable for mutation testing before running
mutate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModule(cmd.Context(), args[0], p, os.Stdout)
		},
	}

	flags.AddConfigFlag(c.Flags(), &p.config)
	flags.AddConfigSamedirFlag(c.Flags(), &p.configSamedir)

	root.AddCommand(c)
}

func runModule(ctx context.Context, wasmfile string, p runParams, w io.Writer) error {
	// run doesn't need the config's engine or filter settings, but
	// loading it here surfaces a malformed configuration file before
	// the module is even loaded, consistent with the other subcommands.
	if _, err := loadConfig(p.config, p.configSamedir, wasmfile); err != nil {
		return err
	}

	m, err := wasmmodule.FromFile(wasmfile)
	if err != nil {
		return err
	}

	m.InsertTracePoints()
	bytecode, err := m.ToBytes()
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, runtime.Wazero, bytecode)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	result, err := rt.CallTestFunction(ctx, runtime.RunUntilReturn())
	if err != nil {
		return err
	}

	switch result.Kind {
	case runtime.ProcessExit:
		fmt.Fprintf(w, "process exited with code %d (%d instructions)\n", result.ExitCode, result.ExecutionCost)
	case runtime.Trapped:
		fmt.Fprintf(w, "module trapped\n")
	default:
		fmt.Fprintf(w, "execution failed\n")
	}
	return nil
}
