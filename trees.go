package main

import (
	"go/token"
	"sort"
	"strings"

	"argtree-gen/internal/argtree"

	"golang.org/x/tools/go/ssa"
)

// knownFuncs returns the functions of known modules sorted by name, so tree
// and function IDs come out in a stable order.
func knownFuncs(all map[*ssa.Function]bool) []*ssa.Function {
	var fns []*ssa.Function
	for fn := range all {
		if modSet.IsKnownFunc(fn) {
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return fns
}

// BuildFormalTrees builds a formal-in tree for every parameter of every known
// function and records the function.
func BuildFormalTrees(ssaResult *SSAResult, fset *token.FileSet, env argtree.Env, maxDepth int, an *Analysis, prog *Progress) {
	prog.Log("Building formal-in trees (max depth %d)...", maxDepth)

	var trees, nodes int
	for _, fn := range knownFuncs(ssaResult.AllFuncs) {
		id := ssaFuncID(fn, fset)
		file, line, _ := funcPos(fn, fset)
		an.AddFunc(FuncInfo{
			ID:        id,
			Name:      fn.Name(),
			Package:   modSet.RelPkg(fn.Pkg.Pkg.Path()),
			File:      file,
			Line:      line,
			NumParams: len(fn.Params),
		})
		if len(fn.Params) == 0 {
			continue
		}

		recs := make([]*TreeRecord, len(fn.Params))
		for i, p := range fn.Params {
			t := argtree.NewTree(p, p.Type(), argtree.FormalIn, env)
			t.Build(maxDepth)
			recs[i] = &TreeRecord{
				ID:     ParamTreeID(id, i),
				FuncID: id,
				Name:   p.Name(),
				Index:  i,
				Tree:   t,
			}
			trees++
			nodes += t.Len()
			if prog.verbose {
				prog.Verbose("%s param %d:", id, i)
				t.Print(prog.Writer())
			}
		}
		an.Formals[fn] = recs
	}

	prog.Log("Built %d formal-in trees (%d nodes) for %d functions", trees, nodes, len(an.Funcs))
}

// BuildGlobalTrees builds a tree for every package-level variable of the
// known modules. Compiler-generated globals are skipped.
func BuildGlobalTrees(ssaResult *SSAResult, env argtree.Env, maxDepth int, an *Analysis, prog *Progress) {
	var nodes int
	for _, pkg := range ssaResult.Packages {
		path := pkg.Pkg.Path()
		if !modSet.IsKnownPkg(path) {
			continue
		}
		rel := modSet.RelPkg(path)

		names := make([]string, 0, len(pkg.Members))
		for name, mem := range pkg.Members {
			if _, ok := mem.(*ssa.Global); ok && !strings.Contains(name, "$") && name != "_" {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			g := pkg.Members[name].(*ssa.Global)
			// A global is the address of its variable.
			t := argtree.NewTree(g, g.Type(), argtree.GlobalVar, env)
			t.Build(maxDepth)
			an.Globals = append(an.Globals, &TreeRecord{
				ID:    GlobalTreeID(rel, name),
				Name:  name,
				Index: -1,
				Tree:  t,
			})
			nodes += t.Len()
		}
	}
	prog.Log("Built %d global trees (%d nodes)", len(an.Globals), nodes)
}
