// Package flags provides the small, shared pflag registration helpers
// every wasmut subcommand composes from.
package flags

import "github.com/spf13/pflag"

// AddConfigFlag registers --config/-c, the path to an explicit
// wasmut.toml.
func AddConfigFlag(fs *pflag.FlagSet, config *string) {
	fs.StringVarP(config, "config", "c", "", "load wasmut.toml configuration file from the provided path")
}

// AddConfigSamedirFlag registers --config-samedir/-C, which attempts
// to load wasmut.toml from the same directory as the wasm module.
func AddConfigSamedirFlag(fs *pflag.FlagSet, samedir *bool) {
	fs.BoolVarP(samedir, "config-samedir", "C", false, "attempt to load wasmut.toml from the same directory as the wasm module")
}

// AddThreadsFlag registers --threads/-t, overriding the configured or
// default worker count for mutant execution.
func AddThreadsFlag(fs *pflag.FlagSet, threads *int) {
	fs.IntVarP(threads, "threads", "t", 0, "number of threads to use when executing mutants (0 = use config or CPU count)")
}

// AddVerboseFlag registers --verbose/-v, used by list-operators to
// print each operator's description alongside its name.
func AddVerboseFlag(fs *pflag.FlagSet, verbose *bool) {
	fs.BoolVarP(verbose, "verbose", "v", false, "show extended information")
}
