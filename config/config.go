// Package config loads wasmut's TOML configuration file. It is parsed
// with pelletier/go-toml/v2, promoted here to a direct dependency since
// wasmut has exactly one configuration source and no need for the
// layered env/flag/file merging spf13/viper provides.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/lwagner94/wasmut-sub000/defaults"
	"github.com/lwagner94/wasmut-sub000/wasmuterr"
)

// FileName is the conventional configuration file name looked up by
// LoadSameDir.
const FileName = "wasmut.toml"

// FilterConfig restricts mutation discovery to matching files and
// functions.
type FilterConfig struct {
	AllowedFiles     []string `toml:"allowed_files"`
	AllowedFunctions []string `toml:"allowed_functions"`
}

// EngineConfig tunes the mutation engine's execution behavior.
type EngineConfig struct {
	ThreadCount       *int     `toml:"threads"`
	TimeoutMultiplier *float64 `toml:"timeout_multiplier"`
}

// Threads returns the configured worker count, or runtime.NumCPU()
// when unset.
func (e EngineConfig) Threads() int {
	if e.ThreadCount != nil {
		return *e.ThreadCount
	}
	return runtime.NumCPU()
}

// TimeoutMultiplierOrDefault returns the configured multiplier, or
// defaults.TimeoutMultiplier when unset.
func (e EngineConfig) TimeoutMultiplierOrDefault() float64 {
	if e.TimeoutMultiplier != nil {
		return *e.TimeoutMultiplier
	}
	return defaults.TimeoutMultiplier
}

// OperatorsConfig lists which mutation operators are enabled. A nil
// Enabled means "every known operator", filled in by EnabledOperators.
type OperatorsConfig struct {
	Enabled []string `toml:"enabled"`
}

// ReportConfig controls how reported file paths are rewritten, e.g.
// to strip a build-container prefix before display.
type ReportConfig struct {
	PathRewriteFrom string `toml:"path_rewrite_from"`
	PathRewriteTo   string `toml:"path_rewrite_to"`
}

// PathRewrite reports whether a rewrite is configured, and its
// (from, to) pair.
func (r ReportConfig) PathRewrite() (from, to string, ok bool) {
	if r.PathRewriteFrom == "" && r.PathRewriteTo == "" {
		return "", "", false
	}
	return r.PathRewriteFrom, r.PathRewriteTo, true
}

// Config is wasmut's full configuration, as parsed from a TOML file.
// Every field is optional; fetch effective values through the typed
// accessor methods rather than dereferencing pointers directly.
type Config struct {
	Engine    *EngineConfig    `toml:"engine"`
	Filter    *FilterConfig    `toml:"filter"`
	Operators *OperatorsConfig `toml:"operators"`
	Report    *ReportConfig    `toml:"report"`
}

// Default returns a Config with every section present but unset,
// matching every field's zero-value default.
func Default() *Config {
	return &Config{
		Engine:    &EngineConfig{},
		Filter:    &FilterConfig{},
		Operators: &OperatorsConfig{},
		Report:    &ReportConfig{},
	}
}

// EngineOrDefault returns c.Engine, or an empty EngineConfig if unset.
func (c *Config) EngineOrDefault() EngineConfig {
	if c.Engine == nil {
		return EngineConfig{}
	}
	return *c.Engine
}

// FilterOrDefault returns c.Filter, or an empty FilterConfig if unset.
func (c *Config) FilterOrDefault() FilterConfig {
	if c.Filter == nil {
		return FilterConfig{}
	}
	return *c.Filter
}

// ReportOrDefault returns c.Report, or an empty ReportConfig if unset.
func (c *Config) ReportOrDefault() ReportConfig {
	if c.Report == nil {
		return ReportConfig{}
	}
	return *c.Report
}

// EnabledOperators returns the configured operator allowlist, or
// every known operator name when operators.enabled was never set.
func (c *Config) EnabledOperators(allOperatorNames []string) []string {
	if c.Operators == nil || c.Operators.Enabled == nil {
		return allOperatorNames
	}
	return c.Operators.Enabled
}

// ParseString parses s as a TOML document, filling in empty sections
// for anything the document did not specify.
func ParseString(s string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal([]byte(s), &cfg); err != nil {
		return nil, wasmuterr.Config(err)
	}
	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{}
	}
	if cfg.Filter == nil {
		cfg.Filter = &FilterConfig{}
	}
	if cfg.Operators == nil {
		cfg.Operators = &OperatorsConfig{}
	}
	if cfg.Report == nil {
		cfg.Report = &ReportConfig{}
	}
	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, wasmuterr.Config(os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wasmuterr.Config(err)
	}
	return ParseString(string(data))
}

// LoadSameDir looks for wasmut.toml next to modulePath, returning
// Default() if no such file exists.
func LoadSameDir(modulePath string) (*Config, error) {
	candidate := filepath.Join(filepath.Dir(modulePath), FileName)
	if _, err := os.Stat(candidate); err != nil {
		return Default(), nil
	}
	return Load(candidate)
}

// defaultConfigTemplate is written out by SaveDefault, documenting
// every available key the way a hand-authored wasmut.toml would.
const defaultConfigTemplate = `[engine]
# threads = 4
# timeout_multiplier = 2.0

[filter]
# allowed_files = ["src/"]
# allowed_functions = ["^test_"]

[operators]
# enabled = ["binop_add_to_sub", "binop_sub_to_add"]

[report]
# path_rewrite_from = "/build/"
# path_rewrite_to = ""
`

// SaveDefault writes a commented template configuration file to path.
func SaveDefault(path string) error {
	return os.WriteFile(path, []byte(defaultConfigTemplate), 0o644)
}
