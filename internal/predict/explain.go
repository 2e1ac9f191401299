package predict

import (
	"sort"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// Explanation shows how the clique-weighted method reached its prediction
// for one node.
type Explanation struct {
	Node      graph.NodeID   `json:"node"`
	Neighbors []graph.NodeID `json:"neighbors"`
	// Clique is the largest clique of the neighborhood, empty when
	// enumeration was skipped.
	Clique     []graph.NodeID `json:"clique,omitempty"`
	UsedClique bool           `json:"used_clique"`
	// Candidates lists every value of the pool, best first. Equal scores keep
	// first-encounter order, so Candidates[0] is the predicted value.
	Candidates []Candidate `json:"candidates"`
}

// Explain scores every candidate value of n instead of only the winner.
func (p *Predictor) Explain(n graph.NodeID, table profile.Table) Explanation {
	nb, ranked := p.rank(n, table)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if ranked == nil {
		ranked = []Candidate{}
	}
	return Explanation{
		Node:       n,
		Neighbors:  nb.neighbors,
		Clique:     nb.clique,
		UsedClique: len(nb.clique) > p.opts.CliqueThreshold,
		Candidates: ranked,
	}
}
