package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lwagner94/wasmut-sub000/cmd/internal/flags"
	"github.com/lwagner94/wasmut-sub000/policy"
	"github.com/lwagner94/wasmut-sub000/wasmmodule"
)

type listFilesParams struct {
	config        string
	configSamedir bool
}

func initListFiles(root *cobra.Command) {
	var p listFilesParams

	c := &cobra.Command{
		Use:   "list-files <wasmfile>",
		Short: "List every source file the module's debug information resolves",
		Long: `List every source file resolved anywhere in the module's debug information.

Each file is annotated with whether the current filter policy would
allow it to be mutated; without a configuration every file is allowed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return listFiles(args[0], p, os.Stdout)
		},
	}

	flags.AddConfigFlag(c.Flags(), &p.config)
	flags.AddConfigSamedirFlag(c.Flags(), &p.configSamedir)

	root.AddCommand(c)
}

func listFiles(wasmfile string, p listFilesParams, w io.Writer) error {
	m, err := wasmmodule.FromFile(wasmfile)
	if err != nil {
		return err
	}

	names, err := m.SourceFiles()
	if err != nil {
		return err
	}
	sort.Strings(names)

	cfg, err := loadConfig(p.config, p.configSamedir, wasmfile)
	if err != nil {
		return err
	}
	mutationPolicy, err := policy.FromConfig(cfg)
	if err != nil {
		return err
	}

	for _, name := range names {
		if mutationPolicy.CheckFile(name) {
			fmt.Fprintf(w, "%s (mutable)\n", name)
		} else {
			fmt.Fprintf(w, "%s (filtered out)\n", name)
		}
	}
	return nil
}
