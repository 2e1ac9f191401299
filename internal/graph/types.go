package graph

// NodeID identifies a member of the social graph. It carries no structure and
// is only compared for equality.
type NodeID string

// Edge is an undirected connection between two members.
type Edge struct {
	A NodeID `json:"a"`
	B NodeID `json:"b"`
}

// Stats summarises the shape of a graph snapshot.
type Stats struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Isolated   int     `json:"isolated"`
	MaxDegree  int     `json:"max_degree"`
	MeanDegree float64 `json:"mean_degree"`
}

type edgeKey struct {
	a, b NodeID
}

func keyOf(a, b NodeID) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}
