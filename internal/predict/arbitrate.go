package predict

import (
	"context"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"

	"golang.org/x/sync/errgroup"
)

// Arbitrate runs the clique-weighted predictor once per attribute type and,
// for every empty node, keeps only the types whose score equals the best
// score seen for that node. Other types are cleared. Tied types all keep their
// value.
func Arbitrate(g graph.Adapter, empty []graph.NodeID, tables profile.Tables) map[profile.Type]profile.Predictions {
	out, _ := New(g, DefaultOptions()).Arbitrate(context.Background(), empty, tables)
	return out
}

// Arbitrate is the method form of the package level Arbitrate. With the
// Parallel option the attribute types are scored concurrently; the result is
// the same either way. It only fails when ctx is done.
func (p *Predictor) Arbitrate(ctx context.Context, empty []graph.NodeID, tables profile.Tables) (map[profile.Type]profile.Predictions, error) {
	types := tables.Types()
	scored := make([]Scored, len(types))

	if p.opts.Parallel {
		eg, egCtx := errgroup.WithContext(ctx)
		for i, t := range types {
			eg.Go(func() error {
				s, err := p.cliqueWeighted(egCtx, empty, tables[t])
				if err != nil {
					return err
				}
				scored[i] = s
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, t := range types {
			s, err := p.cliqueWeighted(ctx, empty, tables[t])
			if err != nil {
				return nil, err
			}
			scored[i] = s
		}
	}

	return arbitrate(empty, types, scored), nil
}

func arbitrate(empty []graph.NodeID, types []profile.Type, scored []Scored) map[profile.Type]profile.Predictions {
	out := make(map[profile.Type]profile.Predictions, len(types))
	for _, t := range types {
		out[t] = make(profile.Predictions, len(empty))
	}

	for _, n := range empty {
		best := 0
		for i := range types {
			if c := scored[i][n]; len(c) > 0 && c[0].Score > best {
				best = c[0].Score
			}
		}
		for i, t := range types {
			c := scored[i][n]
			if len(c) == 0 || c[0].Score < best {
				out[t][n] = []string{}
				continue
			}
			out[t][n] = []string{c[0].Value}
		}
	}
	return out
}
