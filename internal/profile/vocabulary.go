package profile

import "sort"

// ValueCount is one distinct attribute value and the number of nodes holding
// it.
type ValueCount struct {
	Value string `json:"value"`
	Nodes int    `json:"nodes"`
}

// Vocabulary lists the distinct values of t, most common first and then
// alphabetically. A value repeated within one node's list counts once for
// that node.
func Vocabulary(t Table) []ValueCount {
	counts := make(map[string]int)
	for _, vals := range t {
		seen := make(map[string]bool, len(vals))
		for _, v := range vals {
			if seen[v] {
				continue
			}
			seen[v] = true
			counts[v]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Nodes: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nodes == out[j].Nodes {
			return out[i].Value < out[j].Value
		}
		return out[i].Nodes > out[j].Nodes
	})
	return out
}
