package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lwagner94/wasmut-sub000/cmd/internal/flags"
	"github.com/lwagner94/wasmut-sub000/operator"
)

type listOperatorsParams struct {
	config        string
	configSamedir bool
	verbose       bool
}

func initListOperators(root *cobra.Command) {
	var p listOperatorsParams

	c := &cobra.Command{
		Use:   "list-operators [wasmfile]",
		Short: "List every available mutation operator",
		Long: `List every mutation operator wasmut can apply.

If a configuration (and, with --config-samedir, a module) is given,
each operator is annotated with whether it is currently enabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var wasmfile string
			if len(args) == 1 {
				wasmfile = args[0]
			}
			return listOperators(wasmfile, p, os.Stdout)
		},
	}

	flags.AddConfigFlag(c.Flags(), &p.config)
	flags.AddConfigSamedirFlag(c.Flags(), &p.configSamedir)
	flags.AddVerboseFlag(c.Flags(), &p.verbose)

	root.AddCommand(c)
}

func listOperators(wasmfile string, p listOperatorsParams, w io.Writer) error {
	names := operator.AllOperatorNames()

	var enabled map[string]bool
	if p.config != "" || p.configSamedir {
		cfg, err := loadConfig(p.config, p.configSamedir, wasmfile)
		if err != nil {
			return err
		}
		enabled = make(map[string]bool)
		for _, n := range cfg.EnabledOperators(names) {
			enabled[n] = true
		}
	}

	for _, name := range names {
		status := ""
		if enabled != nil {
			if enabled[name] {
				status = " (enabled)"
			} else {
				status = " (disabled)"
			}
		}
		fmt.Fprintf(w, "%s%s\n", name, status)
		if p.verbose {
			if desc := operator.Describe(name); desc != "" {
				fmt.Fprintf(w, "    %s\n", desc)
			}
		}
	}
	return nil
}
