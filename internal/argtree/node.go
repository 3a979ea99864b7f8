package argtree

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// NodeID indexes a node inside its tree's arena.
type NodeID int32

// NoNode is the parent of a root.
const NoNode NodeID = -1

// Category is the dependence-graph node kind a tree was built for.
type Category uint8

const (
	FormalIn Category = iota
	FormalOut
	ActualIn
	ActualOut
	GlobalVar
)

func (c Category) String() string {
	switch c {
	case FormalIn:
		return "formal_in"
	case FormalOut:
		return "formal_out"
	case ActualIn:
		return "actual_in"
	case ActualOut:
		return "actual_out"
	case GlobalVar:
		return "global"
	}
	return "unknown"
}

// AccessTag is a set of access classifications.
type AccessTag uint8

const (
	Read AccessTag = 1 << iota
	Write

	ReadWrite = Read | Write
)

func (a AccessTag) Has(tag AccessTag) bool { return a&tag == tag }

func (a AccessTag) String() string {
	switch a {
	case 0:
		return "none"
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "read_write"
	}
}

// ValueSet is an insertion-ordered set of SSA values.
type ValueSet struct {
	list []ssa.Value
	seen map[ssa.Value]struct{}
}

// Add inserts v and reports whether it was new.
func (s *ValueSet) Add(v ssa.Value) bool {
	if s.seen == nil {
		s.seen = make(map[ssa.Value]struct{})
	}
	if _, dup := s.seen[v]; dup {
		return false
	}
	s.seen[v] = struct{}{}
	s.list = append(s.list, v)
	return true
}

func (s *ValueSet) Has(v ssa.Value) bool {
	_, ok := s.seen[v]
	return ok
}

func (s *ValueSet) Len() int { return len(s.list) }

// Values returns the members in insertion order. Callers must not modify it.
func (s *ValueSet) Values() []ssa.Value { return s.list }

// TreeNode is one arena slot of a Tree.
type TreeNode struct {
	depth    int
	typ      types.Type
	parent   NodeID
	category Category
	value    ssa.Value
	addrVars ValueSet
	children []NodeID
	tags     AccessTag
}

func (n *TreeNode) Depth() int { return n.depth }
func (n *TreeNode) Type() types.Type { return n.typ }
func (n *TreeNode) Parent() NodeID { return n.parent }
func (n *TreeNode) Category() Category { return n.category }
func (n *TreeNode) Value() ssa.Value { return n.value }
func (n *TreeNode) AddrVars() *ValueSet { return &n.addrVars }
func (n *TreeNode) Children() []NodeID { return n.children }
func (n *TreeNode) Tags() AccessTag { return n.tags }
func (n *TreeNode) HasTag(tag AccessTag) bool { return n.tags.Has(tag) }
func (n *TreeNode) addChild(id NodeID) { n.children = append(n.children, id) }
func (n *TreeNode) addAccessTag(tag AccessTag) { n.tags |= tag }

// ExpandNode creates the children of id for one level of its type shape and
// returns how many were created: one for a pointer, one per field for a
// struct, none otherwise.
func (t *Tree) ExpandNode(id NodeID) int {
	n := t.Node(id)
	if n.typ == nil {
		return 0
	}
	ti := t.env.Types
	dt := ti.Normalize(n.typ)

	switch ti.Classify(dt) {
	case Pointer:
		t.addChildNode(id, ti.Pointee(dt))
		return 1
	case Aggregate:
		fields := ti.Fields(dt)
		for _, f := range fields {
			t.addChildNode(id, f)
		}
		return len(fields)
	}
	return 0
}

// addChildNode appends a child of parent with type typ. The arena may grow,
// so nodes are re-fetched by index after the append.
func (t *Tree) addChildNode(parent NodeID, typ types.Type) NodeID {
	p := t.Node(parent)
	child := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, TreeNode{
		depth:    p.depth + 1,
		typ:      typ,
		parent:   parent,
		category: p.category,
		value:    t.nodes[0].value,
	})
	t.ComputeDerivedAddrVars(child)
	t.nodes[parent].addChild(child)
	t.env.Graph.AddEdge(NodeRef{t, parent}, NodeRef{t, child}, EdgeField)
	return child
}

// ComputeDerivedAddrVars fills the address variables of id from the uses of
// its parent's address variables. A field of a struct reached directly
// through a struct pointer is derived from the grandparent instead, because
// the offset computation consumes the pointer, not a loaded struct value.
func (t *Tree) ComputeDerivedAddrVars(id NodeID) {
	n := t.Node(id)
	if n.parent == NoNode || n.typ == nil {
		return
	}
	ti := t.env.Types
	parent := t.Node(n.parent)

	parentIsStruct := ti.IsStruct(parent.typ)
	base := &parent.addrVars
	if parentIsStruct && parent.parent != NoNode {
		if gp := t.Node(parent.parent); ti.IsStructPointer(gp.typ) {
			base = &gp.addrVars
		}
	}

	offset, hasOffset := ti.DeclaredOffset(n.typ)
	prog := t.env.Program
	for _, v := range base.Values() {
		if v == nil {
			continue
		}
		for _, user := range prog.Uses(v) {
			val, ok := user.(ssa.Value)
			if !ok {
				continue
			}
			u := prog.Classify(user, v)
			switch u.Kind {
			case UseLoad:
				// A struct value is never loaded to reach one of its fields.
				if !parentIsStruct {
					n.addrVars.Add(val)
				}
			case UseOffset:
				if hasOffset && u.Offset == offset {
					n.addrVars.Add(val)
				}
			}
		}
	}
}

// AddAccessTag adds tag to the tags of id.
func (t *Tree) AddAccessTag(id NodeID, tag AccessTag) {
	t.Node(id).addAccessTag(tag)
}

// IsStructMember reports whether id was created for a struct field.
func (t *Tree) IsStructMember(id NodeID) bool {
	typ := t.Node(id).typ
	return typ != nil && t.env.Types.Classify(typ) == FieldMarker
}

// Path renders the access path from the root to id, e.g. "p.*.next".
func (t *Tree) Path(id NodeID) string {
	var parts []string
	for cur := id; cur != NoNode; cur = t.Node(cur).parent {
		n := t.Node(cur)
		switch {
		case n.parent == NoNode:
			parts = append(parts, valueName(n.value))
		case t.IsStructMember(cur):
			parts = append(parts, t.env.Types.Name(n.typ))
		default:
			parts = append(parts, "*")
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func valueName(v ssa.Value) string {
	if v == nil {
		return ""
	}
	return v.Name()
}
