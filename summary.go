package main

import (
	"go/token"
	"go/types"

	"argtree-gen/internal/argtree"
)

// InferAccess tags every tree node with the loads and stores its address
// variables take part in. Actual trees passed outside the analyzed modules
// already carry ReadWrite.
func InferAccess(an *Analysis, prog *Progress) {
	var read, written int
	for _, rec := range an.Trees() {
		rec.Tree.InferAccessTags()
		rec.Tree.Walk(func(_ argtree.NodeID, n *argtree.TreeNode) bool {
			if n.HasTag(argtree.Read) {
				read++
			}
			if n.HasTag(argtree.Write) {
				written++
			}
			return true
		})
	}
	prog.Log("Access tags: %d nodes read, %d nodes written", read, written)
}

// Summarize builds an ArgAccessTree for every formal-in and global tree and
// flattens it into Summary rows. escapes may be nil.
func Summarize(ssaResult *SSAResult, fset *token.FileSet, escapes EscapeIndex, an *Analysis, prog *Progress) {
	var flagged int
	for _, fn := range knownFuncs(ssaResult.AllFuncs) {
		for i, rec := range an.Formals[fn] {
			var esc string
			if p := fn.Params[i]; p.Pos().IsValid() {
				file, line, col := valuePos(p.Pos(), fset)
				esc = escapes.Lookup(file, line, col, p.Name())
			}
			flagged += summarizeTree(rec, esc, an)
		}
	}
	for _, rec := range an.Globals {
		flagged += summarizeTree(rec, "", an)
	}
	prog.Log("Summaries: %d rows, %d accessed through call sites", len(an.Summaries), flagged)
}

func summarizeTree(rec *TreeRecord, escape string, an *Analysis) int {
	t := rec.Tree
	at := argtree.NewArgAccessTree(t)

	var flagged int
	at.Walk(func(n *argtree.ArgAccessNode) {
		src := t.Node(n.Source())
		tags := src.Tags()
		s := Summary{
			TreeID:   rec.ID,
			FuncID:   rec.FuncID,
			Param:    rec.Name,
			Index:    rec.Index,
			Path:     t.Path(n.Source()),
			Type:     typeString(n.Type()),
			Depth:    src.Depth(),
			Category: src.Category().String(),
			Read:     tags.Has(argtree.Read),
			Write:    tags.Has(argtree.Write),
			Access:   n.Access(),
			AddrVars: src.AddrVars().Len(),
		}
		if n.Source() == argtree.RootID {
			s.Escape = escape
		}
		if n.Source() != argtree.RootID && n.Access() {
			flagged++
		}
		an.Summaries = append(an.Summaries, s)
	})
	return flagged
}

// typeString renders a node type without package qualifiers. Field markers
// render as the field's declared type.
func typeString(t types.Type) string {
	if m, ok := t.(*argtree.Member); ok {
		t = m.Type()
	}
	return types.TypeString(t, func(*types.Package) string { return "" })
}
