package main

import (
	"encoding/json"

	"argtree-gen/internal/argtree"

	"golang.org/x/tools/go/ssa"
)

// FuncInfo describes a function whose parameters got formal-in trees.
type FuncInfo struct {
	ID        string
	Name      string
	Package   string // relative import path
	File      string // relative to module root
	Line      int
	NumParams int
}

// TreeRecord ties a built tree to the value it was rooted at.
type TreeRecord struct {
	ID     string
	FuncID string // "" for globals
	Name   string // parameter, argument or global name
	Index  int    // parameter index, -1 for globals
	Tree   *argtree.Tree
}

// Binding is one call-site argument connected to a callee parameter.
type Binding struct {
	CallerID   string
	CalleeID   string
	Index      int
	Arg        string
	File       string
	Line       int
	Edges      int // parameter-in edges recorded for this argument
	Properties map[string]any
}

// Summary is one node of an ArgAccessTree, flattened for storage.
type Summary struct {
	TreeID   string
	FuncID   string
	Param    string
	Index    int
	Path     string
	Type     string
	Depth    int
	Category string
	Read     bool
	Write    bool
	Access   bool
	AddrVars int
	Escape   string // "leaking_param", "does_not_escape" or ""
}

// Analysis accumulates trees, bindings and summaries in memory before
// flushing to SQLite.
type Analysis struct {
	Funcs     []FuncInfo
	Formals   map[*ssa.Function][]*TreeRecord // indexed by parameter position
	Globals   []*TreeRecord
	Actuals   []*TreeRecord
	Bindings  []Binding
	Summaries []Summary
	Graph     *argtree.EdgeLog
	funcSeen  map[string]struct{}
}

// NewAnalysis creates an empty Analysis ready for population.
func NewAnalysis() *Analysis {
	return &Analysis{
		Formals:  make(map[*ssa.Function][]*TreeRecord),
		Graph:    argtree.NewEdgeLog(),
		funcSeen: make(map[string]struct{}),
	}
}

// AddFunc appends a function, deduplicating by ID (first wins).
func (a *Analysis) AddFunc(f FuncInfo) {
	if _, dup := a.funcSeen[f.ID]; dup {
		return
	}
	a.funcSeen[f.ID] = struct{}{}
	a.Funcs = append(a.Funcs, f)
}

// EdgeCounts returns the number of recorded dependence edges per kind.
func (a *Analysis) EdgeCounts() map[argtree.EdgeKind]int {
	counts := make(map[argtree.EdgeKind]int)
	for _, e := range a.Graph.Edges {
		counts[e.Kind]++
	}
	return counts
}

// Trees returns every formal, global and actual tree record.
func (a *Analysis) Trees() []*TreeRecord {
	var all []*TreeRecord
	for _, recs := range a.Formals {
		all = append(all, recs...)
	}
	all = append(all, a.Globals...)
	return append(all, a.Actuals...)
}

// PropsJSON marshals a properties map to JSON string, or "" if empty.
func PropsJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
