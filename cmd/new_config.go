package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lwagner94/wasmut-sub000/config"
)

func initNewConfig(root *cobra.Command) {
	c := &cobra.Command{
		Use:   "new-config <path>",
		Short: "Write a commented default wasmut.toml to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return config.SaveDefault(args[0])
		},
	}

	root.AddCommand(c)
}
