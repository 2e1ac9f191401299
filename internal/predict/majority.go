package predict

import (
	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// Majority predicts, for every empty node, the value held most often by its
// direct neighbors. A neighbor holding k values contributes k votes. Nodes
// whose neighbors have no known value get an empty prediction.
func Majority(g graph.Adapter, empty []graph.NodeID, table profile.Table) profile.Predictions {
	out := make(profile.Predictions, len(empty))
	for _, n := range empty {
		out[n] = []string{}
		if v, _, ok := count(g.Neighbors(n), table).top(); ok {
			out[n] = []string{v}
		}
	}
	return out
}
