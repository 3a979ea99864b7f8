package main

import (
	"bufio"
	"fmt"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadResult holds the output of package loading.
type LoadResult struct {
	Packages []*packages.Package
	Fset     *token.FileSet
	Sizes    types.Sizes
}

// readModulePath returns the module path from dir/go.mod, or "" if unreadable.
func readModulePath(dir string) string {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

// CreateTempGoWork writes a temporary go.work listing every module of ms, so
// all of them load into one type universe. Returns the file path (caller must
// os.Remove). A module path listed twice keeps its first directory.
func CreateTempGoWork(ms *ModuleSet) (string, error) {
	var buf strings.Builder
	buf.WriteString("go 1.25.0\n\nuse (\n")

	seenModPaths := make(map[string]bool, len(ms.Dirs()))
	for _, m := range ms.Dirs() {
		modPath := m.ModPath
		if modPath == "" {
			modPath = readModulePath(m.Dir)
		}
		if modPath != "" && seenModPaths[modPath] {
			continue
		}
		seenModPaths[modPath] = true
		buf.WriteString("\t" + m.Dir + "\n")
	}
	buf.WriteString(")\n")

	f, err := os.CreateTemp("", "argtree-workspace-*.work")
	if err != nil {
		return "", fmt.Errorf("create temp go.work: %w", err)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write go.work: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// LoadPackages loads every package of the module set with syntax and types,
// keeping only packages that belong to known modules. goworkPath may be ""
// when a single module is analyzed.
func LoadPackages(ms *ModuleSet, goworkPath string, cfg Config, prog *Progress) (*LoadResult, error) {
	prog.Log("Loading packages (%d modules)...", len(ms.Dirs()))

	env := os.Environ()
	if goworkPath != "" {
		env = replaceEnv(env, "GOWORK", goworkPath)
	}

	fset := token.NewFileSet()
	pcfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo |
			packages.NeedTypesSizes,
		Dir:   ms.PrimaryDir(),
		Fset:  fset,
		Tests: !cfg.SkipTests,
		Env:   env,
	}

	initial, err := packages.Load(pcfg, ms.LoadPatterns()...)
	if err != nil {
		return nil, fmt.Errorf("packages.Load: %w", err)
	}

	filtered := make([]*packages.Package, 0, len(initial))
	var sizes types.Sizes
	var errCount, fileCount int
	for _, pkg := range initial {
		if !ms.IsKnownPkg(pkg.PkgPath) {
			continue
		}
		if len(pkg.Errors) > 0 {
			errCount++
			prog.Verbose("  %s has %d errors: %v", pkg.PkgPath, len(pkg.Errors), pkg.Errors[0])
		}
		if sizes == nil && pkg.TypesSizes != nil {
			sizes = pkg.TypesSizes
		}
		for _, f := range pkg.CompiledGoFiles {
			if !shouldSkipFile(f, cfg) {
				fileCount++
			}
		}
		filtered = append(filtered, pkg)
	}

	prog.Log("Loaded %d packages (%d files)", len(filtered), fileCount)
	if errCount > 0 {
		prog.Warn("%d packages had type-check errors (continuing)", errCount)
	}

	return &LoadResult{
		Packages: filtered,
		Fset:     fset,
		Sizes:    sizes,
	}, nil
}

// replaceEnv returns a copy of environ with key set to val, replacing any
// existing entry for key. Duplicate env vars behave differently per platform.
func replaceEnv(environ []string, key, val string) []string {
	prefix := key + "="
	result := make([]string, 0, len(environ)+1)
	for _, e := range environ {
		if !strings.HasPrefix(e, prefix) {
			result = append(result, e)
		}
	}
	return append(result, prefix+val)
}

// shouldSkipFile returns true for test and generated files the config excludes.
func shouldSkipFile(path string, cfg Config) bool {
	base := filepath.Base(path)
	if cfg.SkipTests && strings.HasSuffix(base, "_test.go") {
		return true
	}
	if cfg.SkipGenerated && strings.HasSuffix(base, ".pb.go") {
		return true
	}
	return false
}
