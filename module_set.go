package main

import (
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// ModuleInfo describes one Go module whose functions get argument trees.
type ModuleInfo struct {
	ModPath string `yaml:"mod_path"` // e.g. "github.com/acme/service"
	Dir     string `yaml:"dir"`      // absolute path to module root
	Prefix  string `yaml:"prefix"`   // ID prefix: "" for the primary module
}

// ModuleSet holds all modules under analysis and resolves package and file
// paths to module-relative names used in function IDs.
//
// The global instance (modSet) is set once in run() before any pipeline phase.
type ModuleSet struct {
	modules []ModuleInfo
}

// Initialized to empty (not nil) so methods are safe before run() assigns the real value.
var modSet = &ModuleSet{}

// NewModuleSet builds a ModuleSet from a primary module and optional extras.
func NewModuleSet(primary ModuleInfo, extras []ModuleInfo) *ModuleSet {
	ms := &ModuleSet{
		modules: make([]ModuleInfo, 0, 1+len(extras)),
	}
	primary.Prefix = ""
	ms.modules = append(ms.modules, primary)
	ms.modules = append(ms.modules, extras...)
	return ms
}

// IsKnownPkg returns true if pkgPath belongs to any module in the set.
func (ms *ModuleSet) IsKnownPkg(pkgPath string) bool {
	for _, m := range ms.modules {
		if pkgPath == m.ModPath || strings.HasPrefix(pkgPath, m.ModPath+"/") {
			return true
		}
	}
	return false
}

// IsKnownFunc reports whether fn is a source-level function with a body in
// one of the modules. Synthetic wrappers and external declarations are not.
func (ms *ModuleSet) IsKnownFunc(fn *ssa.Function) bool {
	if fn == nil || fn.Pkg == nil || fn.Synthetic != "" || len(fn.Blocks) == 0 {
		return false
	}
	return ms.IsKnownPkg(fn.Pkg.Pkg.Path())
}

// RelPkg strips the module path from a full import path and prepends the
// module's Prefix. The primary module's root package is "main".
//
// Nested module paths resolve to the longest match.
func (ms *ModuleSet) RelPkg(fullPath string) string {
	bestResult := ""
	bestModLen := -1

	for _, m := range ms.modules {
		if len(m.ModPath) <= bestModLen {
			continue
		}
		switch rel, ok := strings.CutPrefix(fullPath, m.ModPath+"/"); {
		case fullPath == m.ModPath:
			bestModLen = len(m.ModPath)
			bestResult = joinPrefix(m.Prefix, "")
		case ok:
			bestModLen = len(m.ModPath)
			bestResult = joinPrefix(m.Prefix, rel)
		}
	}

	if bestModLen < 0 {
		return fullPath
	}
	return bestResult
}

func joinPrefix(prefix, rel string) string {
	switch {
	case prefix == "" && rel == "":
		return "main"
	case prefix == "":
		return rel
	case rel == "":
		return prefix
	}
	return prefix + "/" + rel
}

// RelFile converts an absolute file path to a module-relative path with prefix.
// Returns "" for files outside all known modules. Nested module directories
// resolve to the longest Dir.
func (ms *ModuleSet) RelFile(absPath string) string {
	bestRel := ""
	bestPrefix := ""
	bestDirLen := -1

	for _, m := range ms.modules {
		rel, err := filepath.Rel(m.Dir, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(m.Dir) > bestDirLen {
			bestDirLen = len(m.Dir)
			bestRel = filepath.ToSlash(rel)
			bestPrefix = m.Prefix
		}
	}

	if bestDirLen < 0 {
		return ""
	}
	if bestPrefix == "" {
		return bestRel
	}
	return bestPrefix + "/" + bestRel
}

// PrimaryDir returns the first (primary) module's directory.
func (ms *ModuleSet) PrimaryDir() string {
	return ms.modules[0].Dir
}

// Dirs returns all module infos.
func (ms *ModuleSet) Dirs() []ModuleInfo {
	return ms.modules
}

// LoadPatterns returns the "modpath/..." patterns for packages.Load.
func (ms *ModuleSet) LoadPatterns() []string {
	patterns := make([]string, len(ms.modules))
	for i, m := range ms.modules {
		patterns[i] = m.ModPath + "/..."
	}
	return patterns
}
