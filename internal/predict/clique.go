package predict

import (
	"context"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// Predictor runs the neighborhood-based methods against one graph. It
// memoises neighborhood analysis, which does not depend on the attribute
// type, so a single Predictor should be reused across attribute tables of the
// same graph.
type Predictor struct {
	g     graph.Adapter
	opts  Options
	hoods *neighborhoods
}

// New creates a predictor for g.
func New(g graph.Adapter, opts Options) *Predictor {
	return &Predictor{
		g:     g,
		opts:  opts,
		hoods: newNeighborhoods(g, opts),
	}
}

// Options returns the settings the predictor was created with.
func (p *Predictor) Options() Options {
	return p.opts
}

// Majority runs the neighbor-majority baseline on the predictor's graph.
func (p *Predictor) Majority(empty []graph.NodeID, table profile.Table) profile.Predictions {
	return Majority(p.g, empty, table)
}

// CliqueWeighted predicts the best scored value for every empty node.
//
// The candidate pool is the largest clique of the node's neighborhood when it
// has more than CliqueThreshold members, the plain neighbor list otherwise.
// Each candidate value v scores count(v) * (1 + k*(k-1)), where k is the
// number of neighborhood members (the node included) listing v: the second
// factor counts the ordered pairs of members that both hold v.
func CliqueWeighted(g graph.Adapter, empty []graph.NodeID, table profile.Table) Scored {
	return New(g, DefaultOptions()).CliqueWeighted(empty, table)
}

// CliqueWeighted is the method form of the package level CliqueWeighted.
func (p *Predictor) CliqueWeighted(empty []graph.NodeID, table profile.Table) Scored {
	out, _ := p.cliqueWeighted(context.Background(), empty, table)
	return out
}

func (p *Predictor) cliqueWeighted(ctx context.Context, empty []graph.NodeID, table profile.Table) (Scored, error) {
	out := make(Scored, len(empty))
	for _, n := range empty {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[n] = p.score(n, table)
	}
	return out, nil
}

func (p *Predictor) score(n graph.NodeID, table profile.Table) []Candidate {
	_, ranked := p.rank(n, table)
	var best Candidate
	for _, c := range ranked {
		if c.Score > best.Score {
			best = c
		}
	}
	if best.Score == 0 {
		return []Candidate{}
	}
	return []Candidate{best}
}

// rank weighs every value of the candidate pool of n, in first-encounter
// order.
func (p *Predictor) rank(n graph.NodeID, table profile.Table) (neighborhood, []Candidate) {
	nb := p.hoods.get(n)

	pool := nb.neighbors
	if len(nb.clique) > p.opts.CliqueThreshold {
		pool = nb.clique
	}

	votes := count(pool, table)
	if votes.empty() {
		return nb, nil
	}

	held := holders(nb.nodes, table)
	out := make([]Candidate, 0, len(votes.order))
	for _, v := range votes.order {
		k := held[v]
		out = append(out, Candidate{Value: v, Score: votes.counts[v] * (1 + k*(k-1))})
	}
	return nb, out
}
