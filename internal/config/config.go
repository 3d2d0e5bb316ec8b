// Package config holds the project configuration and the compile-time
// constants shared across the pipeline.
//
// The project file (alchemist.yaml) carries per-project directives that
// are not part of the IR itself: enum idiom-strategy overrides, rename
// directives and cache settings. Front-end metadata on a declaration
// always wins over the project file; the file exists so a project can
// adjust lowering without touching annotated sources.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/token"
)

// Config represents the top-level alchemist.yaml configuration.
type Config struct {
	// Output is the directory rendered modules are written to.
	Output string `yaml:"output,omitempty"`

	// Cache is the path of the incremental compile cache database.
	// Empty disables caching.
	Cache string `yaml:"cache,omitempty"`

	// Enums lists per-enum lowering overrides.
	Enums []EnumOverride `yaml:"enums,omitempty"`

	// Renames lists module/function rename directives applied when a
	// declaration carries no nativeName of its own.
	Renames []Rename `yaml:"renames,omitempty"`
}

// EnumOverride adjusts the lowering strategy of one enum.
type EnumOverride struct {
	// Name is the front-end name of the enum.
	Name string `yaml:"name"`

	// Idiomatic selects the bare-atom constructor strategy. Only legal
	// when no constructor of the enum carries parameters.
	Idiomatic bool `yaml:"idiomatic"`
}

// Rename maps a front-end declaration to a target name.
type Rename struct {
	// From is the front-end name ("Class" or "Class.method").
	From string `yaml:"from"`

	// To is the target name to emit instead.
	To string `yaml:"to"`
}

// Load reads and validates a project file. A missing file is not an
// error: the zero Config is a usable default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, diagnostics.Errorf(diagnostics.ErrC001, token.Span{}, "read %s: %v", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrC001, token.Span{}, "parse %s: %v", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrC002, token.Span{}, "%s: %v", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for i, e := range c.Enums {
		if e.Name == "" {
			return fmt.Errorf("enums[%d]: missing name", i)
		}
	}
	for i, r := range c.Renames {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("renames[%d]: from and to are both required", i)
		}
	}
	return nil
}

// EnumIdiomatic reports the override for the named enum, if any.
func (c *Config) EnumIdiomatic(name string) (bool, bool) {
	for _, e := range c.Enums {
		if e.Name == name {
			return e.Idiomatic, true
		}
	}
	return false, false
}

// RenameFor returns the configured target name for a front-end name, or
// empty when none applies.
func (c *Config) RenameFor(from string) string {
	for _, r := range c.Renames {
		if r.From == from {
			return r.To
		}
	}
	return ""
}
