package predict

import (
	"attrinfer/internal/graph"

	lru "github.com/hashicorp/golang-lru/v2"
)

// neighborhood is the attribute-independent part of the clique-weighted
// method for one node.
type neighborhood struct {
	// nodes of the subgraph induced by the node and its neighbors, the node
	// itself first.
	nodes     []graph.NodeID
	neighbors []graph.NodeID
	// clique is the largest maximal clique of that subgraph, nil when
	// enumeration was skipped.
	clique []graph.NodeID
}

type neighborhoods struct {
	g               graph.Adapter
	maxNeighborhood int
	cache           *lru.Cache[graph.NodeID, neighborhood]
}

func newNeighborhoods(g graph.Adapter, opts Options) *neighborhoods {
	h := &neighborhoods{g: g, maxNeighborhood: opts.MaxNeighborhood}
	if opts.CacheSize > 0 {
		if cache, err := lru.New[graph.NodeID, neighborhood](opts.CacheSize); err == nil {
			h.cache = cache
		}
	}
	return h
}

func (h *neighborhoods) get(n graph.NodeID) neighborhood {
	if h.cache != nil {
		if nb, ok := h.cache.Get(n); ok {
			return nb
		}
	}

	nbrs := h.g.Neighbors(n)
	ids := make([]graph.NodeID, 0, len(nbrs)+1)
	ids = append(ids, n)
	ids = append(ids, nbrs...)
	sg := h.g.InducedSubgraph(ids)

	nb := neighborhood{nodes: sg.Nodes(), neighbors: nbrs}
	if h.maxNeighborhood <= 0 || len(nbrs) <= h.maxNeighborhood {
		nb.clique = graph.LargestClique(sg.MaximalCliques())
	}

	if h.cache != nil {
		h.cache.Add(n, nb)
	}
	return nb
}
