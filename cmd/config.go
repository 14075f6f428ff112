package cmd

import "github.com/lwagner94/wasmut-sub000/config"

// loadConfig resolves a subcommand's configuration: an explicit
// --config path takes precedence, then --config-samedir, else the
// zero-value defaults.
func loadConfig(configPath string, configSamedir bool, wasmfile string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if configSamedir {
		return config.LoadSameDir(wasmfile)
	}
	return config.Default(), nil
}
