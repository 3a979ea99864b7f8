package argtree

import (
	"reflect"
	"testing"

	"github.com/nalgeon/be"
	"github.com/sirkon/deepequal"
)

func TestArgAccessTree_FlagsPointersWithParamIn(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	formal := fx.paramTree(t, "use", 0)
	formal.Build(4)

	pair := formal.Root().Children()[0]
	a := childByName(t, formal, pair, "a")
	b := childByName(t, formal, pair, "b")

	actual := formal.Prototype()
	actual.Rebind(fx.param(t, "set", 0), ActualIn)
	actual.Build(4)
	actualPair := actual.Root().Children()[0]
	// b is not a pointer, so its parameter-in edge does not set the flag.
	fx.graph.AddEdge(NodeRef{actual, childByName(t, actual, actualPair, "a")}, NodeRef{formal, a}, EdgeParamIn)
	fx.graph.AddEdge(NodeRef{actual, childByName(t, actual, actualPair, "b")}, NodeRef{formal, b}, EdgeParamIn)

	at := NewArgAccessTree(formal)
	be.Equal(t, at.Size(), formal.Len())
	be.True(t, at.Root().Access())
	be.True(t, at.Root().Value() == formal.BaseValue())

	got := map[NodeID]bool{}
	at.Walk(func(n *ArgAccessNode) {
		got[n.Source()] = n.Access()
		be.True(t, n.Type() == formal.Node(n.Source()).Type())
	})
	want := map[NodeID]bool{
		RootID: true,
		pair:   false,
		a:      true,
		b:      false,
		formal.Node(a).Children()[0]: false,
	}
	if !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "access flags", want, got)
		t.FailNow()
	}
}

func TestArgAccessTree_RootForcedWithoutEdges(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	tr := fx.paramTree(t, "use", 0)
	tr.Build(4)

	at := NewArgAccessTree(tr)
	be.True(t, at.Root().Access())
	flagged := 0
	at.Walk(func(n *ArgAccessNode) {
		if n.Access() {
			flagged++
		}
	})
	be.Equal(t, flagged, 1)
}

func TestArgAccessTree_SkipsNilTypedSubtrees(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	env := fx.env
	env.Types = nilPointee{NewGoTypes(nil)}
	p := fx.param(t, "use", 0)
	tr := NewTree(p, p.Type(), FormalIn, env)
	tr.Build(4)
	be.Equal(t, tr.Len(), 2)

	at := NewArgAccessTree(tr)
	be.Equal(t, at.Size(), 1)
	be.Equal(t, len(at.Root().Children()), 0)
}

func TestArgAccessTree_UnbuiltTree(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	at := NewArgAccessTree(fx.paramTree(t, "use", 0))
	be.Equal(t, at.Size(), 1)
	be.True(t, at.Root().Access())
}

func TestConnectParamIn_MatchesShapes(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	formal := fx.paramTree(t, "use", 0)
	formal.Build(4)

	actual := formal.Prototype()
	actual.Rebind(fx.param(t, "copyAll", 0), ActualIn)
	actual.Build(4)

	be.Equal(t, ConnectParamIn(actual, formal), formal.Len())
	formal.Walk(func(id NodeID, _ *TreeNode) bool {
		be.Equal(t, fx.graph.InEdges(NodeRef{formal, id}, EdgeParamIn), 1)
		return true
	})
	// Connecting again records nothing new.
	ConnectParamIn(actual, formal)
	be.Equal(t, fx.graph.InEdges(NodeRef{formal, RootID}, EdgeParamIn), 1)

	at := NewArgAccessTree(formal)
	pair := formal.Root().Children()[0]
	a := childByName(t, formal, pair, "a")
	at.Walk(func(n *ArgAccessNode) {
		if n.Source() == a {
			be.True(t, n.Access())
		}
	})
}

func TestConnectParamIn_ShallowActual(t *testing.T) {
	fx := buildFixture(t, pairSrc)
	formal := fx.paramTree(t, "use", 0)
	formal.Build(4)

	actual := formal.Prototype()
	actual.Rebind(fx.param(t, "set", 0), ActualIn)
	actual.Build(2)

	be.Equal(t, ConnectParamIn(actual, formal), actual.Len())
	pair := formal.Root().Children()[0]
	a := childByName(t, formal, pair, "a")
	be.Equal(t, fx.graph.InEdges(NodeRef{formal, a}, EdgeParamIn), 1)
	be.Equal(t, fx.graph.InEdges(NodeRef{formal, formal.Node(a).Children()[0]}, EdgeParamIn), 0)
}
