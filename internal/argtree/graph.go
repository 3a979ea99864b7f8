package argtree

// EdgeKind names a dependence-graph edge type.
type EdgeKind string

const (
	// EdgeField links a tree node to a child reached by a field or a dereference.
	EdgeField EdgeKind = "parameter_field"
	// EdgeParamIn links an actual-in tree node at a call site to the matching
	// formal-in tree node of the callee.
	EdgeParamIn EdgeKind = "parameter_in"
)

// NodeRef addresses one node across trees.
type NodeRef struct {
	Tree *Tree
	ID   NodeID
}

// Graph is the dependence-graph collaborator. From the tree's point of view
// it is append-only.
type Graph interface {
	AddEdge(from, to NodeRef, kind EdgeKind)
	InEdges(n NodeRef, kind EdgeKind) int
}

// Edge is one recorded dependence-graph edge.
type Edge struct {
	From, To NodeRef
	Kind     EdgeKind
}

// EdgeLog is an in-memory Graph. It keeps edges in insertion order and drops
// duplicates of the same (from, to, kind).
type EdgeLog struct {
	Edges []Edge
	seen  map[Edge]struct{}
	in    map[inKey]int
}

type inKey struct {
	to   NodeRef
	kind EdgeKind
}

// NewEdgeLog creates an empty edge log.
func NewEdgeLog() *EdgeLog {
	return &EdgeLog{
		seen: make(map[Edge]struct{}),
		in:   make(map[inKey]int),
	}
}

// AddEdge appends an edge if no edge with the same (from, to, kind) already exists.
func (l *EdgeLog) AddEdge(from, to NodeRef, kind EdgeKind) {
	e := Edge{From: from, To: to, Kind: kind}
	if _, dup := l.seen[e]; dup {
		return
	}
	l.seen[e] = struct{}{}
	l.Edges = append(l.Edges, e)
	l.in[inKey{to, kind}]++
}

func (l *EdgeLog) InEdges(n NodeRef, kind EdgeKind) int {
	return l.in[inKey{n, kind}]
}

// discardGraph is used when a tree is built without a graph.
type discardGraph struct{}

func (discardGraph) AddEdge(NodeRef, NodeRef, EdgeKind) {}
func (discardGraph) InEdges(NodeRef, EdgeKind) int { return 0 }

// ConnectParamIn records a parameter-in edge from every node of actual to the
// node at the same position in formal and returns the number of node pairs
// connected.
// actual is expected to be a prototype of formal built to the same depth;
// where the shapes differ only the common part is connected.
func ConnectParamIn(actual, formal *Tree) int {
	g := formal.env.Graph
	type pair struct{ a, f NodeID }
	queue := []pair{{RootID, RootID}}
	added := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		g.AddEdge(NodeRef{actual, cur.a}, NodeRef{formal, cur.f}, EdgeParamIn)
		added++
		ac, fc := actual.nodes[cur.a].children, formal.nodes[cur.f].children
		for i := 0; i < len(ac) && i < len(fc); i++ {
			queue = append(queue, pair{ac[i], fc[i]})
		}
	}
	return added
}
