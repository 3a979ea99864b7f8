package argtree

import (
	"go/types"
	"testing"

	"github.com/nalgeon/be"
	"golang.org/x/tools/go/ssa"
)

func TestGoTypes_Classify(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	ti := NewGoTypes(nil)
	p := fx.param(t, "use", 0)

	be.Equal(t, ti.Classify(ti.Normalize(p.Type())), Pointer)
	pair := ti.Pointee(p.Type())
	be.Equal(t, ti.Name(pair), "Pair")
	be.Equal(t, ti.Classify(pair), Scalar) // named, not normalized
	be.Equal(t, ti.Classify(ti.Normalize(pair)), Aggregate)
	be.True(t, ti.IsStruct(pair))
	be.True(t, ti.IsStructPointer(p.Type()))
	be.True(t, !ti.IsStructPointer(pair))
	be.Equal(t, ti.Classify(types.Typ[types.Int]), Scalar)
	be.True(t, ti.Pointee(types.Typ[types.Int]) == nil)
	be.True(t, ti.Normalize(nil) == nil)
}

func TestGoTypes_Fields(t *testing.T) {
	fx := buildFixture(t, nestedSrc)
	ti := NewGoTypes(nil)
	outer := ti.Pointee(fx.param(t, "f", 0).Type())

	fields := ti.Fields(outer)
	be.Equal(t, len(fields), 2)
	be.Equal(t, ti.Name(fields[0]), "in")
	be.Equal(t, ti.Name(fields[1]), "n")
	be.Equal(t, fields[0].Offset, int64(0))
	be.Equal(t, fields[1].Offset, int64(16))
	be.Equal(t, ti.Classify(fields[0]), FieldMarker)

	off, ok := ti.DeclaredOffset(fields[1])
	be.True(t, ok)
	be.Equal(t, off, int64(16))
	_, ok = ti.DeclaredOffset(outer)
	be.True(t, !ok)

	// A field marker normalizes to the field's underlying type.
	be.True(t, ti.IsStruct(fields[0]))
	be.Equal(t, ti.Classify(ti.Normalize(fields[1])), Scalar)
	be.Equal(t, len(ti.Fields(types.Typ[types.Int])), 0)
}

func TestGoTypes_Alias(t *testing.T) {
	fx := buildFixture(t, `package p

type Pair struct{ a, b int }

type P = *Pair

func f(p P) int { return p.b }
`)
	ti := NewGoTypes(nil)
	p := fx.param(t, "f", 0)
	be.Equal(t, ti.Classify(ti.Normalize(p.Type())), Pointer)
	be.True(t, ti.IsStructPointer(p.Type()))

	tr := NewTree(p, p.Type(), FormalIn, fx.env)
	tr.Build(3)
	be.Equal(t, tr.String(), "p\nPair(0)\na(0), b(1)\n")
}

func TestSSAProgram_Classify(t *testing.T) {
	fx := buildFixture(t, `package p

type Pair struct {
	a *int
	b int
}

func mixed(p *Pair, arr *[4]int64, s []int64, i int) int64 {
	p.b = 1
	v := *p
	return arr[2] + s[1] + arr[i] + int64(v.b)
}
`)
	prog := fx.env.Program
	p := fx.param(t, "mixed", 0)
	arr := fx.param(t, "mixed", 1)
	s := fx.param(t, "mixed", 2)

	kinds := map[UseKind]int{}
	for _, use := range prog.Uses(p) {
		u := prog.Classify(use, p)
		kinds[u.Kind]++
		if u.Kind == UseOffset {
			be.Equal(t, u.Offset, int64(8))
		}
	}
	be.Equal(t, kinds[UseOffset], 1)
	be.Equal(t, kinds[UseLoad], 1)

	var constIdx, varIdx int
	for _, use := range prog.Uses(arr) {
		ia, ok := use.(*ssa.IndexAddr)
		if !ok {
			continue
		}
		u := prog.Classify(use, arr)
		if _, isConst := ia.Index.(*ssa.Const); isConst {
			be.Equal(t, u.Kind, UseOffset)
			be.Equal(t, u.Offset, int64(16))
			constIdx++
		} else {
			be.Equal(t, u.Kind, UseOther)
			varIdx++
		}
	}
	be.Equal(t, constIdx, 1)
	be.Equal(t, varIdx, 1)

	// Slice element addresses are not static offsets from the slice value.
	for _, use := range prog.Uses(s) {
		be.Equal(t, prog.Classify(use, s).Kind, UseOther)
	}

	// The store writes through &p.b, not through p.
	for _, use := range prog.Uses(p) {
		fa, ok := use.(*ssa.FieldAddr)
		if !ok {
			continue
		}
		for _, ref := range prog.Uses(fa) {
			if _, isStore := ref.(*ssa.Store); isStore {
				be.Equal(t, prog.Classify(ref, fa).Kind, UseStore)
			}
		}
	}
}

func TestSSAProgram_ClassifyChecksOperand(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	prog := fx.env.Program
	p := fx.param(t, "copyAll", 0)

	uses := prog.Uses(p)
	be.Equal(t, len(uses), 1)
	load := uses[0].(*ssa.UnOp)
	be.Equal(t, prog.Classify(load, p).Kind, UseLoad)
	// The operand must be the one consumed.
	be.Equal(t, prog.Classify(load, fx.param(t, "use", 0)).Kind, UseOther)
}

func TestSSAProgram_GlobalUsesFromIndex(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	g := fx.global(t, "g")
	be.True(t, g.Referrers() == nil)

	uses := fx.env.Program.Uses(g)
	be.Equal(t, len(uses), 2)
	for _, use := range uses {
		be.Equal(t, fx.env.Program.Classify(use, g).Kind, UseOffset)
	}
	be.Equal(t, len(fx.env.Program.Uses(nil)), 0)
}

func TestEdgeLog_Dedup(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	tr := fx.paramTree(t, "use", 0)
	log := NewEdgeLog()
	from, to := NodeRef{tr, RootID}, NodeRef{tr, 1}
	log.AddEdge(from, to, EdgeParamIn)
	log.AddEdge(from, to, EdgeParamIn)
	log.AddEdge(from, to, EdgeField)

	be.Equal(t, len(log.Edges), 2)
	be.Equal(t, log.InEdges(to, EdgeParamIn), 1)
	be.Equal(t, log.InEdges(to, EdgeField), 1)
	be.Equal(t, log.InEdges(from, EdgeParamIn), 0)
}
