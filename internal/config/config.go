// Package config loads the optional project-level tinywhale.yaml and
// exposes the default CompileOptions a caller's flags can override,
// mirroring the teacher's funxy.yaml loader (internal/ext/config.go) but
// narrowed to TinyWhale's two knobs: preprocessor mode and the optimize
// pass-through flag.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nerdalytics/tinywhale/internal/preprocess"
)

// ProjectConfig is the parsed shape of tinywhale.yaml.
type ProjectConfig struct {
	// Mode selects the indentation discipline: "detect" (default) or
	// "directive". Anything else fails validation.
	Mode string `yaml:"mode,omitempty"`

	// Optimize is passed through unchanged to the external emitter.
	Optimize bool `yaml:"optimize,omitempty"`
}

// CompileOptions is the resolved, typed form of ProjectConfig that the
// pipeline and compiler package actually consume.
type CompileOptions struct {
	Mode     preprocess.Mode
	Optimize bool
}

// DefaultCompileOptions matches spec.md §6's documented defaults: detect
// mode, optimization left to the caller.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Mode: preprocess.ModeDetect, Optimize: false}
}

// LoadConfig reads and parses a tinywhale.yaml file.
func LoadConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses tinywhale.yaml content from bytes. path is used only
// for error messages.
func ParseConfig(data []byte, path string) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ProjectConfig) validate(path string) error {
	switch c.Mode {
	case "", "detect", "directive":
		return nil
	default:
		return fmt.Errorf("%s: mode must be \"detect\" or \"directive\", got %q", path, c.Mode)
	}
}

// CompileOptions resolves a parsed ProjectConfig into the typed options
// the compiler actually takes.
func (c *ProjectConfig) CompileOptions() CompileOptions {
	opts := DefaultCompileOptions()
	if c.Mode == "directive" {
		opts.Mode = preprocess.ModeDirective
	}
	opts.Optimize = c.Optimize
	return opts
}

// FindConfig searches for tinywhale.yaml starting at dir and walking up
// to parent directories, the same upward search the teacher uses for
// funxy.yaml. Returns "" with a nil error when no config file exists
// anywhere above dir.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{"tinywhale.yaml", "tinywhale.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
