package argtree

import (
	"testing"

	"github.com/nalgeon/be"
	"golang.org/x/tools/go/ssa"
)

const nestedSrc = `package p

type Inner struct {
	x int
	y int
}

type Outer struct {
	in Inner
	n  int
}

func f(o *Outer) int {
	v := *o
	w := o.in
	return v.n + w.x + o.in.y
}
`

func TestComputeDerivedAddrVars_StructFieldsExcludeLoads(t *testing.T) {
	fx := buildFixture(t, nestedSrc)
	tr := fx.paramTree(t, "f", 0)
	tr.Build(5)

	outer := tr.Root().Children()[0]
	in := childByName(t, tr, outer, "in")
	n := childByName(t, tr, outer, "n")
	x := childByName(t, tr, in, "x")
	y := childByName(t, tr, in, "y")

	// The pointee of o holds the load *o.
	be.Equal(t, countLoads(tr.Node(outer).AddrVars()), 1)

	// Fields reached through *Outer are derived from o itself: only the
	// offset computations, never the load of the whole struct.
	be.Equal(t, countLoads(tr.Node(in).AddrVars()), 0)
	be.True(t, countFieldAddrs(tr.Node(in).AddrVars()) >= 1)
	be.Equal(t, tr.Node(n).AddrVars().Len(), 0)

	// w := o.in loads &o.in; nested fields must not inherit that load.
	be.Equal(t, countLoads(tr.Node(x).AddrVars()), 0)
	be.Equal(t, tr.Node(x).AddrVars().Len(), 0)
	be.Equal(t, countFieldAddrs(tr.Node(y).AddrVars()), 1)
}

func TestComputeDerivedAddrVars_NoLoadsUnderStructParents(t *testing.T) {
	for _, src := range []string{pairSrc, nestedSrc, listSrc} {
		fx := buildFixture(t, src)
		for name, mem := range fx.pkg.Members {
			fn, ok := mem.(*ssa.Function)
			if !ok {
				continue
			}
			for i := range fn.Params {
				tr := fx.paramTree(t, name, i)
				tr.Build(6)
				tr.Walk(func(id NodeID, n *TreeNode) bool {
					if n.Parent() != NoNode && tr.Env().Types.IsStruct(tr.Node(n.Parent()).Type()) {
						be.Equal(t, countLoads(n.AddrVars()), 0)
					}
					return true
				})
			}
		}
	}
}

func TestComputeDerivedAddrVars_OffsetMustMatch(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	tr := fx.paramTree(t, "use", 0)
	tr.Build(3)

	pair := tr.Root().Children()[0]
	for i, id := range tr.Node(pair).Children() {
		vars := tr.Node(id).AddrVars().Values()
		be.Equal(t, len(vars), 1)
		fa, ok := vars[0].(*ssa.FieldAddr)
		be.True(t, ok)
		be.Equal(t, fa.Field, i)
	}
}

func TestComputeDerivedAddrVars_NoParent(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	tr := fx.paramTree(t, "use", 0)
	tr.ComputeDerivedAddrVars(RootID)
	be.Equal(t, tr.Root().AddrVars().Len(), 1)
}

func TestComputeDerivedAddrVars_Global(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	g := fx.global(t, "g")
	tr := NewTree(g, g.Type(), GlobalVar, fx.env)
	tr.Build(4)

	pair := tr.Root().Children()[0]
	a := childByName(t, tr, pair, "a")
	b := childByName(t, tr, pair, "b")
	be.Equal(t, countFieldAddrs(tr.Node(a).AddrVars()), 1)
	be.Equal(t, countFieldAddrs(tr.Node(b).AddrVars()), 1)

	pointee := tr.Node(a).Children()[0]
	be.Equal(t, countLoads(tr.Node(pointee).AddrVars()), 1)
	be.Equal(t, tr.Path(pointee), "g.*.a.*")
}

func TestComputeDerivedAddrVars_SeededRoot(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	p := fx.param(t, "use", 0)
	q := fx.param(t, "set", 0)
	tr := NewTree(p, p.Type(), FormalIn, fx.env)
	tr.Seed(q, nil)
	tr.Build(3)

	be.Equal(t, tr.Root().AddrVars().Len(), 2)
	pair := tr.Root().Children()[0]
	a := childByName(t, tr, pair, "a")
	// &p.a from use and &p.a from set.
	be.Equal(t, countFieldAddrs(tr.Node(a).AddrVars()), 2)
}
