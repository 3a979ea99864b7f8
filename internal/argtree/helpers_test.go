package argtree

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/nalgeon/be"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// fixture is a type-checked SSA package built from one source string.
type fixture struct {
	pkg   *ssa.Package
	env   Env
	graph *EdgeLog
}

func buildFixture(t *testing.T, src string) *fixture {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	be.Err(t, err, nil)

	conf := &types.Config{Importer: importer.Default()}
	pkg, _, err := ssautil.BuildPackage(conf, fset, types.NewPackage("p", "p"), []*ast.File{f}, ssa.SanityCheckFunctions)
	be.Err(t, err, nil)

	sizes := types.SizesFor("gc", "amd64")
	graph := NewEdgeLog()
	return &fixture{
		pkg:   pkg,
		graph: graph,
		env: Env{
			Types:   NewGoTypes(sizes),
			Program: NewSSAProgram(sizes, ssautil.AllFunctions(pkg.Prog)),
			Graph:   graph,
		},
	}
}

func (fx *fixture) param(t *testing.T, fn string, i int) *ssa.Parameter {
	t.Helper()
	f := fx.pkg.Func(fn)
	if f == nil {
		t.Fatalf("no function %s", fn)
	}
	return f.Params[i]
}

func (fx *fixture) global(t *testing.T, name string) *ssa.Global {
	t.Helper()
	g, ok := fx.pkg.Members[name].(*ssa.Global)
	if !ok {
		t.Fatalf("no global %s", name)
	}
	return g
}

// paramTree returns an unbuilt formal-in tree for parameter i of fn.
func (fx *fixture) paramTree(t *testing.T, fn string, i int) *Tree {
	t.Helper()
	p := fx.param(t, fn, i)
	return NewTree(p, p.Type(), FormalIn, fx.env)
}

// childByName returns the child of id whose type name is name.
func childByName(t *testing.T, tr *Tree, id NodeID, name string) NodeID {
	t.Helper()
	for _, c := range tr.Node(id).Children() {
		if tr.Env().Types.Name(tr.Node(c).Type()) == name {
			return c
		}
	}
	t.Fatalf("node %s has no child %s", tr.Path(id), name)
	return NoNode
}

// countLoads counts the pointer loads held by set.
func countLoads(set *ValueSet) int {
	n := 0
	for _, v := range set.Values() {
		if u, ok := v.(*ssa.UnOp); ok && u.Op == token.MUL {
			n++
		}
	}
	return n
}

func countFieldAddrs(set *ValueSet) int {
	n := 0
	for _, v := range set.Values() {
		if _, ok := v.(*ssa.FieldAddr); ok {
			n++
		}
	}
	return n
}

const pairSrc = `package p

type Pair struct {
	a *int
	b int
}

func use(p *Pair) int {
	x := *p.a
	return x + p.b
}

func set(p *Pair, v *int) {
	p.a = v
	p.b = 3
}

func copyAll(p *Pair) Pair {
	return *p
}

var g Pair

func readGlobal() int {
	return *g.a + g.b
}
`
