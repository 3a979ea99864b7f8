package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the analysis settings. Values come from an optional YAML file
// and are overridden by flags given on the command line.
type Config struct {
	MaxDepth      int          `yaml:"max_depth"`
	SkipTests     bool         `yaml:"skip_tests"`
	SkipGenerated bool         `yaml:"skip_generated"`
	Verbose       bool         `yaml:"verbose"`
	Validate      bool         `yaml:"validate"`
	Escape        bool         `yaml:"escape"`
	Modules       []ModuleInfo `yaml:"modules"`
}

// DefaultConfig returns the settings used when neither file nor flags say otherwise.
func DefaultConfig() Config {
	return Config{
		MaxDepth:      4,
		SkipTests:     true,
		SkipGenerated: true,
	}
}

// LoadConfig reads a YAML config file on top of the defaults. Relative module
// directories are resolved against the directory holding the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, m := range cfg.Modules {
		if m.Dir != "" && !filepath.IsAbs(m.Dir) {
			cfg.Modules[i].Dir = filepath.Join(base, m.Dir)
		}
	}
	return cfg, cfg.Check()
}

// Check reports settings the pipeline cannot run with.
func (c Config) Check() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	}
	for i, m := range c.Modules {
		if m.Dir == "" || m.ModPath == "" {
			return fmt.Errorf("module %d: dir and mod_path are required", i)
		}
	}
	return nil
}

// parseModuleSpecs parses comma-separated dir:modpath:prefix triples.
// Malformed entries are reported through warn and skipped.
func parseModuleSpecs(specs string, warn func(format string, args ...any)) []ModuleInfo {
	var mods []ModuleInfo
	if specs == "" {
		return nil
	}
	for _, spec := range strings.Split(specs, ",") {
		parts := strings.SplitN(strings.TrimSpace(spec), ":", 3)
		if len(parts) != 3 {
			warn("invalid module spec %q (want dir:modpath:prefix)", spec)
			continue
		}
		dir, err := filepath.Abs(parts[0])
		if err != nil {
			warn("invalid module dir %q: %v", parts[0], err)
			continue
		}
		mods = append(mods, ModuleInfo{Dir: dir, ModPath: parts[1], Prefix: parts[2]})
	}
	return mods
}
