package predict

import (
	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// tally is a multiset of attribute values that remembers first-encounter
// order, which is the tie-break order for every argmax in this package.
type tally struct {
	order  []string
	counts map[string]int
}

func count(pool []graph.NodeID, table profile.Table) tally {
	t := tally{counts: make(map[string]int)}
	for _, id := range pool {
		vals, ok := table[id]
		if !ok {
			continue
		}
		for _, v := range vals {
			if _, seen := t.counts[v]; !seen {
				t.order = append(t.order, v)
			}
			t.counts[v]++
		}
	}
	return t
}

func (t tally) empty() bool {
	return len(t.order) == 0
}

// top returns the most frequent value. Among equally frequent values the one
// encountered first wins.
func (t tally) top() (string, int, bool) {
	var best string
	max := 0
	for _, v := range t.order {
		if c := t.counts[v]; c > max {
			best, max = v, c
		}
	}
	return best, max, max > 0
}

// holders counts, for every value, how many of the given nodes list it at
// least once.
func holders(nodes []graph.NodeID, table profile.Table) map[string]int {
	out := make(map[string]int)
	for _, id := range nodes {
		vals, ok := table[id]
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(vals))
		for _, v := range vals {
			if seen[v] {
				continue
			}
			seen[v] = true
			out[v]++
		}
	}
	return out
}
