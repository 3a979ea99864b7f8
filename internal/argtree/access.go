package argtree

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// ArgAccessNode is one node of an ArgAccessTree.
type ArgAccessNode struct {
	value    ssa.Value
	typ      types.Type
	access   bool
	source   NodeID
	children []*ArgAccessNode
}

func (n *ArgAccessNode) Value() ssa.Value { return n.value }
func (n *ArgAccessNode) Type() types.Type { return n.typ }
func (n *ArgAccessNode) Access() bool { return n.access }
func (n *ArgAccessNode) Children() []*ArgAccessNode { return n.children }

// Source is the node of the original tree this node was derived from.
func (n *ArgAccessNode) Source() NodeID { return n.source }

// ArgAccessTree is a read-only overlay of a built Tree with one access flag
// per node. A node's flag is set when it is a pointer that receives a
// parameter-in edge from some call site; the root is always set.
type ArgAccessTree struct {
	root *ArgAccessNode
	size int
}

// NewArgAccessTree walks t once and builds its overlay. Children without a
// type are left out together with everything below them.
func NewArgAccessTree(t *Tree) *ArgAccessTree {
	src := t.Root()
	root := &ArgAccessNode{
		value:  src.value,
		typ:    src.typ,
		access: true,
		source: RootID,
	}
	at := &ArgAccessTree{root: root, size: 1}

	type pair struct {
		orig    NodeID
		overlay *ArgAccessNode
	}
	ti := t.env.Types
	queue := []pair{{RootID, root}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, childID := range t.Node(cur.orig).children {
			child := t.Node(childID)
			if child.typ == nil {
				continue
			}
			isPtr := ti.Classify(ti.Normalize(child.typ)) == Pointer
			overlay := &ArgAccessNode{
				value:  child.value,
				typ:    child.typ,
				access: isPtr && t.env.Graph.InEdges(NodeRef{t, childID}, EdgeParamIn) > 0,
				source: childID,
			}
			cur.overlay.children = append(cur.overlay.children, overlay)
			queue = append(queue, pair{childID, overlay})
			at.size++
		}
	}
	return at
}

func (at *ArgAccessTree) Root() *ArgAccessNode { return at.root }
func (at *ArgAccessTree) Size() int { return at.size }

// Walk visits overlay nodes in level order.
func (at *ArgAccessTree) Walk(fn func(n *ArgAccessNode)) {
	queue := []*ArgAccessNode{at.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		fn(n)
		queue = append(queue, n.children...)
	}
}
