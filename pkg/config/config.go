package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// The name of the optional configuration file looked up next to the invocation.
const FileName = "jack2hack.toml"

// Config carries the driver defaults that would otherwise be repeated as flags on
// every invocation. Flags always win over file values, file values win over the
// built-in defaults.
type Config struct {
	// Output settings
	Output struct {
		EmitIR  bool `toml:"emit_ir"`  // Persist the per-class IR next to the sources
		EmitASM bool `toml:"emit_asm"` // Persist the concatenated assembly
	} `toml:"output"`

	// Translator settings
	Translator struct {
		Bootstrap bool `toml:"bootstrap"` // Prefix the whole-program build w/ the bootstrap
	} `toml:"translator"`
}

// Default returns the configuration used when no file is present: intermediate
// products are not persisted and whole-program builds are bootstrapped.
func Default() *Config {
	cfg := &Config{}
	cfg.Translator.Bootstrap = true
	return cfg
}

// Load reads and decodes the given TOML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("unable to load config file '%s': %w", path, err)
	}

	return cfg, nil
}

// Discover looks for the configuration file in the current working directory and
// silently falls back to the defaults when it is not there. A file that exists but
// does not decode is reported, not skipped.
func Discover() (*Config, error) {
	if _, err := os.Stat(FileName); err != nil {
		return Default(), nil
	}

	return Load(FileName)
}
