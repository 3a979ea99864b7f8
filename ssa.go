package main

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// SSAResult holds the SSA program and all functions for downstream consumers.
type SSAResult struct {
	Prog     *ssa.Program
	Packages []*ssa.Package
	AllFuncs map[*ssa.Function]bool
}

// BuildSSA constructs the SSA representation from loaded packages.
func BuildSSA(pkgs []*packages.Package, prog *Progress) *SSAResult {
	prog.Log("Building SSA...")

	ssaProg, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	var built []*ssa.Package
	var ssaFailed int
	for i, sp := range ssaPkgs {
		if sp == nil {
			if i < len(pkgs) {
				prog.Verbose("SSA build skipped package: %s", pkgs[i].PkgPath)
			}
			ssaFailed++
			continue
		}
		built = append(built, sp)
	}
	if ssaFailed > 0 {
		prog.Warn("%d packages failed SSA construction", ssaFailed)
	}
	ssaProg.Build()

	allFuncs := ssautil.AllFunctions(ssaProg)

	var count int
	for fn := range allFuncs {
		if modSet.IsKnownFunc(fn) {
			count++
		}
	}
	prog.Log("Built SSA for %d functions across %d modules", count, len(modSet.Dirs()))

	return &SSAResult{
		Prog:     ssaProg,
		Packages: built,
		AllFuncs: allFuncs,
	}
}

// funcPos returns the module-relative file, line and column of fn.
// file is "" for functions without a position or outside known modules.
func funcPos(fn *ssa.Function, fset *token.FileSet) (file string, line, col int) {
	return valuePos(fn.Pos(), fset)
}

func valuePos(pos token.Pos, fset *token.FileSet) (file string, line, col int) {
	if !pos.IsValid() {
		return "", 0, 0
	}
	p := fset.Position(pos)
	rel := modSet.RelFile(p.Filename)
	if rel == "" {
		return "", 0, 0
	}
	return rel, p.Line, p.Column
}

// ssaFuncID returns the stable ID of fn, falling back to its full name for
// functions without a source position.
func ssaFuncID(fn *ssa.Function, fset *token.FileSet) string {
	file, line, col := funcPos(fn, fset)
	if file == "" {
		return "ext::" + fn.String()
	}
	var recv string
	if r := fn.Signature.Recv(); r != nil {
		recv = types.TypeString(deref(r.Type()), func(*types.Package) string { return "" })
	}
	pkg := ""
	if fn.Pkg != nil {
		pkg = modSet.RelPkg(fn.Pkg.Pkg.Path())
	}
	return FuncID(pkg, recv, fn.Name(), file, line, col)
}

// deref strips a pointer type to its element, or returns t unchanged.
func deref(t types.Type) types.Type {
	if p, ok := t.(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// ssaValueName extracts the source-level name of a tree root.
// Returns "" if no meaningful name is available.
func ssaValueName(v ssa.Value) string {
	switch val := v.(type) {
	case *ssa.Alloc:
		if val.Comment != "" {
			return val.Comment
		}
	case *ssa.Parameter:
		return val.Name()
	case *ssa.FreeVar:
		return val.Name()
	case *ssa.Global:
		return val.Name()
	case *ssa.FieldAddr:
		if st, ok := deref(val.X.Type()).Underlying().(*types.Struct); ok && val.Field < st.NumFields() {
			return st.Field(val.Field).Name()
		}
	}
	return v.Name()
}
