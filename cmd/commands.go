// Package cmd assembles wasmut's cobra CLI surface: list-functions,
// list-files, list-operators, run, mutate and new-config.
package cmd

import "github.com/spf13/cobra"

// Command builds the wasmut root command, registering every
// subcommand. If rootCommand is nil, a new one is created using brand
// as its program name.
func Command(rootCommand *cobra.Command, brand string) *cobra.Command {
	if rootCommand == nil {
		rootCommand = &cobra.Command{
			Use:   brand,
			Short: "wasmut performs mutation testing on WebAssembly modules",
		}
	}

	initListFunctions(rootCommand)
	initListFiles(rootCommand)
	initListOperators(rootCommand)
	initRun(rootCommand)
	initMutate(rootCommand)
	initNewConfig(rootCommand)

	return rootCommand
}
