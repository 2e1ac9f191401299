package graph

// Adapter is the read-only view of a social graph used by the predictors.
// Alternative backends only need to provide these four capabilities.
type Adapter interface {
	// Nodes returns every node identifier.
	Nodes() []NodeID
	// Neighbors returns the nodes adjacent to id, or nil for unknown nodes.
	Neighbors(id NodeID) []NodeID
	// InducedSubgraph returns the subgraph over ids.
	InducedSubgraph(ids []NodeID) Adapter
	// MaximalCliques enumerates the maximal cliques of the graph.
	MaximalCliques() [][]NodeID
}

var _ Adapter = (*Graph)(nil)
