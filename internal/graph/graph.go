package graph

// Graph is an undirected social graph. Node iteration follows insertion order
// and neighbor lists follow edge insertion order, so every traversal is
// reproducible for a given input file.
type Graph struct {
	order []NodeID
	index map[NodeID]int
	adj   map[NodeID][]NodeID
	edges map[edgeKey]struct{}
	list  []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		order: []NodeID{},
		index: make(map[NodeID]int),
		adj:   make(map[NodeID][]NodeID),
		edges: make(map[edgeKey]struct{}),
	}
}

// AddNode adds id to the graph. Adding a known node is a no-op.
func (g *Graph) AddNode(id NodeID) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.adj[id] = nil
}

// AddEdge connects a and b, adding either node if needed. Self loops and
// duplicate edges are ignored; the return value reports whether an edge was
// added.
func (g *Graph) AddEdge(a, b NodeID) bool {
	if a == b {
		g.AddNode(a)
		return false
	}
	k := keyOf(a, b)
	if _, ok := g.edges[k]; ok {
		return false
	}
	g.AddNode(a)
	g.AddNode(b)
	g.edges[k] = struct{}{}
	g.list = append(g.list, Edge{A: a, B: b})
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return true
}

// HasNode returns true if id is part of the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// HasEdge returns true if a and b are adjacent.
func (g *Graph) HasEdge(a, b NodeID) bool {
	_, ok := g.edges[keyOf(a, b)]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// Neighbors returns the nodes adjacent to id. Unknown nodes have no neighbors.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	nbrs := g.adj[id]
	if len(nbrs) == 0 {
		return nil
	}
	out := make([]NodeID, len(nbrs))
	copy(out, nbrs)
	return out
}

// Degree returns the number of neighbors of id.
func (g *Graph) Degree(id NodeID) int {
	return len(g.adj[id])
}

// Edges returns every edge once, in insertion order. Replaying them with
// AddEdge rebuilds identical neighbor lists.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.list))
	copy(out, g.list)
	return out
}

// InducedSubgraph returns the subgraph made of ids and every edge of g joining
// two of them. Unknown and duplicate ids are dropped; the remaining ids keep
// the order they were given in.
func (g *Graph) InducedSubgraph(ids []NodeID) Adapter {
	return g.induced(ids)
}

func (g *Graph) induced(ids []NodeID) *Graph {
	sg := NewGraph()
	for _, id := range ids {
		if g.HasNode(id) {
			sg.AddNode(id)
		}
	}
	for _, a := range sg.order {
		for _, b := range g.adj[a] {
			if sg.HasNode(b) {
				sg.AddEdge(a, b)
			}
		}
	}
	return sg
}
