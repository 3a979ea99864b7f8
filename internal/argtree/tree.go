package argtree

import (
	"fmt"
	"go/types"
	"io"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// Env bundles the collaborators a tree consults while it is built. They are
// read-only from the tree's point of view, except Graph which only grows.
type Env struct {
	Types   TypeInfo
	Program Program
	Graph   Graph
}

// Tree mirrors the type shape of one program value. Nodes live in an arena
// and refer to each other by NodeID; the root is always at index 0.
type Tree struct {
	nodes   []TreeNode
	baseVal ssa.Value
	size    int
	built   bool
	env     Env
}

// RootID is the arena index of every tree's root.
const RootID NodeID = 0

// NewTree creates an unexpanded tree rooted at v with type typ. The root's
// address variables are seeded with v itself.
func NewTree(v ssa.Value, typ types.Type, cat Category, env Env) *Tree {
	if env.Graph == nil {
		env.Graph = discardGraph{}
	}
	t := &Tree{baseVal: v, env: env}
	t.nodes = append(t.nodes, TreeNode{
		typ:      typ,
		parent:   NoNode,
		category: cat,
		value:    v,
	})
	if v != nil {
		t.nodes[RootID].addrVars.Add(v)
	}
	return t
}

func (t *Tree) Root() *TreeNode { return &t.nodes[RootID] }
func (t *Tree) Size() int { return t.size }
func (t *Tree) BaseValue() ssa.Value { return t.baseVal }
func (t *Tree) Env() Env { return t.env }
func (t *Tree) Len() int { return len(t.nodes) }
func (t *Tree) Node(id NodeID) *TreeNode { return &t.nodes[id] }

// Seed adds caller-known address variables to the root.
func (t *Tree) Seed(vals ...ssa.Value) {
	for _, v := range vals {
		if v != nil {
			t.nodes[RootID].addrVars.Add(v)
		}
	}
}

// Build expands the tree level by level. Level 1 is the root; expansion stops
// once the level counter exceeds maxDepth, leaving any queued nodes as
// unexpanded leaves. Size counts only the nodes actually processed.
//
// Recursive types are bounded by maxDepth alone. Build on an already built
// tree does nothing.
func (t *Tree) Build(maxDepth int) {
	if t.built {
		return
	}
	t.built = true

	queue := []NodeID{RootID}
	level := 0
	for len(queue) > 0 {
		level++
		if level > maxDepth {
			break
		}
		var next []NodeID
		for _, id := range queue {
			t.size++
			if t.ExpandNode(id) > 0 {
				next = append(next, t.nodes[id].children...)
			}
		}
		queue = next
	}
}

// Walk visits nodes in level order until fn returns false.
func (t *Tree) Walk(fn func(id NodeID, n *TreeNode) bool) {
	queue := []NodeID{RootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := &t.nodes[id]
		if !fn(id, n) {
			return
		}
		queue = append(queue, n.children...)
	}
}

// Print writes one line per tree level. The root is shown by the name of the
// value it is rooted at, every other node by its type name and the number of
// address variables it holds.
func (t *Tree) Print(w io.Writer) {
	level := []NodeID{RootID}
	for len(level) > 0 {
		var entries []string
		var next []NodeID
		for _, id := range level {
			n := &t.nodes[id]
			switch {
			case id == RootID:
				entries = append(entries, valueName(n.value))
			case n.typ != nil:
				entries = append(entries, fmt.Sprintf("%s(%d)", t.env.Types.Name(n.typ), n.addrVars.Len()))
			}
			next = append(next, n.children...)
		}
		fmt.Fprintln(w, strings.Join(entries, ", "))
		level = next
	}
}

// String returns the Print output.
func (t *Tree) String() string {
	var sb strings.Builder
	t.Print(&sb)
	return sb.String()
}

// AddAccessForAllNodes applies tag to every node of the tree.
func (t *Tree) AddAccessForAllNodes(tag AccessTag) {
	t.Walk(func(_ NodeID, n *TreeNode) bool {
		n.addAccessTag(tag)
		return true
	})
}

// InferAccessTags tags a node Read when one of its address variables is
// loaded and Write when one is the address of a store.
func (t *Tree) InferAccessTags() {
	prog := t.env.Program
	t.Walk(func(_ NodeID, n *TreeNode) bool {
		for _, v := range n.addrVars.Values() {
			for _, user := range prog.Uses(v) {
				switch prog.Classify(user, v).Kind {
				case UseLoad:
					n.addAccessTag(Read)
				case UseStore:
					n.addAccessTag(Write)
				}
			}
		}
		return true
	})
}

// Prototype returns a new tree holding a childless copy of the root: same
// category, type and value, no address variables, size 0. Children are not
// copied; call Build on the result to expand it.
func (t *Tree) Prototype() *Tree {
	src := &t.nodes[RootID]
	return &Tree{
		nodes: []TreeNode{{
			typ:      src.typ,
			parent:   NoNode,
			category: src.category,
			value:    src.value,
		}},
		baseVal: t.baseVal,
		env:     t.env,
	}
}

// Rebind points an unbuilt tree at another value, typically a prototype
// reused for a call argument.
func (t *Tree) Rebind(v ssa.Value, cat Category) {
	root := &t.nodes[RootID]
	root.value = v
	root.category = cat
	t.baseVal = v
	t.Seed(v)
}
