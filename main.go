package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"argtree-gen/internal/argtree"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Using a separate function ensures all defers
// (including temp file cleanup) execute even on error paths, unlike os.Exit
// which skips deferred calls.
func run() error {
	def := DefaultConfig()
	configPath := flag.String("config", "", "YAML config file; flags given explicitly override it")
	maxDepth := flag.Int("max-depth", def.MaxDepth, "Maximum tree depth in type levels")
	skipGenerated := flag.Bool("skip-generated", def.SkipGenerated, "Skip .pb.go files")
	skipTests := flag.Bool("skip-tests", def.SkipTests, "Skip _test.go files")
	verbose := flag.Bool("verbose", false, "Print detailed progress and every formal-in tree")
	validate := flag.Bool("validate", false, "Run validation queries after write")
	escape := flag.Bool("escape", false, "Annotate parameters with the compiler's escape analysis")
	modules := flag.String("modules", "", "Comma-separated dir:modpath:prefix triples for additional modules")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: argtree-gen [flags] <primary-dir> <output.db>\n\n")
		fmt.Fprintf(os.Stderr, "Builds type-shaped argument trees for every function parameter and\n")
		fmt.Fprintf(os.Stderr, "writes per-node access summaries to a SQLite database.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", flag.NArg())
	}

	primaryDir, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid primary dir: %w", err)
	}
	outputPath := flag.Arg(1)

	cfg := def
	if *configPath != "" {
		if cfg, err = LoadConfig(*configPath); err != nil {
			return err
		}
	}
	// Only flags set on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-depth":
			cfg.MaxDepth = *maxDepth
		case "skip-generated":
			cfg.SkipGenerated = *skipGenerated
		case "skip-tests":
			cfg.SkipTests = *skipTests
		case "verbose":
			cfg.Verbose = *verbose
		case "validate":
			cfg.Validate = *validate
		case "escape":
			cfg.Escape = *escape
		}
	})
	if err := cfg.Check(); err != nil {
		return err
	}

	// Set memory limit for GC pressure
	debug.SetMemoryLimit(8 * 1024 * 1024 * 1024) // 8 GiB

	prog := NewProgress(cfg.Verbose)

	primary := ModuleInfo{
		ModPath: readModulePath(primaryDir),
		Dir:     primaryDir,
	}
	if primary.ModPath == "" {
		return fmt.Errorf("no module path in %s/go.mod", primaryDir)
	}
	extras := append(cfg.Modules, parseModuleSpecs(*modules, prog.Warn)...)

	modSet = NewModuleSet(primary, extras)
	prog.Log("Analyzing %d modules: %s", len(modSet.Dirs()), moduleNames(modSet))

	var goworkPath string
	if len(extras) > 0 {
		if goworkPath, err = CreateTempGoWork(modSet); err != nil {
			return err
		}
		defer os.Remove(goworkPath)
		prog.Verbose("Created workspace: %s", goworkPath)
	}

	// Phase 1: Load packages (all modules, single type universe)
	loadResult, err := LoadPackages(modSet, goworkPath, cfg, prog)
	if err != nil {
		return err
	}

	// Phase 2: Build SSA
	ssaResult := BuildSSA(loadResult.Packages, prog)

	an := NewAnalysis()
	env := argtree.Env{
		Types:   argtree.NewGoTypes(loadResult.Sizes),
		Program: argtree.NewSSAProgram(loadResult.Sizes, ssaResult.AllFuncs),
		Graph:   an.Graph,
	}

	// Phase 3: Formal-in and global trees
	BuildFormalTrees(ssaResult, loadResult.Fset, env, cfg.MaxDepth, an, prog)
	BuildGlobalTrees(ssaResult, env, cfg.MaxDepth, an, prog)

	// Phase 4: Call sites → actual-in trees + parameter_in edges
	ConnectCallSites(ssaResult, loadResult.Fset, env, cfg.MaxDepth, an, prog)

	// Phase 5: Access tags and summaries
	InferAccess(an, prog)
	var escapes EscapeIndex
	if cfg.Escape {
		escapes = RunEscapeAnalysis(prog)
	}
	Summarize(ssaResult, loadResult.Fset, escapes, an, prog)

	// Phase 6: Write SQLite
	if err := WriteDB(outputPath, an, cfg.Validate, prog); err != nil {
		return err
	}

	prog.Log("Done. %d functions, %d summary rows, %d bindings, %d warnings.",
		len(an.Funcs), len(an.Summaries), len(an.Bindings), prog.Warnings())
	return nil
}

// moduleNames returns a human-readable list of module prefixes.
func moduleNames(ms *ModuleSet) string {
	names := make([]string, len(ms.Dirs()))
	for i, m := range ms.Dirs() {
		if m.Prefix == "" {
			names[i] = m.ModPath + " (primary)"
		} else {
			names[i] = m.Prefix
		}
	}
	return strings.Join(names, ", ")
}
