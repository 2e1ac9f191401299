package graph

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// MaximalCliques enumerates the maximal cliques of g with the Bron-Kerbosch
// algorithm. Isolated nodes form singleton cliques.
//
// Members of each clique are listed in node insertion order, and cliques are
// sorted largest first, then lexicographically by member position. The result
// is therefore stable even though the enumeration order of the backend is not.
func (g *Graph) MaximalCliques() [][]NodeID {
	if len(g.order) == 0 {
		return nil
	}

	ug := simple.NewUndirectedGraph()
	for i := range g.order {
		ug.AddNode(simple.Node(int64(i)))
	}
	for k := range g.edges {
		ug.SetEdge(simple.Edge{
			F: simple.Node(int64(g.index[k.a])),
			T: simple.Node(int64(g.index[k.b])),
		})
	}

	raw := topo.BronKerbosch(ug)
	positions := make([][]int, 0, len(raw))
	for _, c := range raw {
		positions = append(positions, cliquePositions(c))
	}
	sort.Slice(positions, func(i, j int) bool {
		return lessClique(positions[i], positions[j])
	})

	cliques := make([][]NodeID, len(positions))
	for i, pos := range positions {
		members := make([]NodeID, len(pos))
		for j, p := range pos {
			members[j] = g.order[p]
		}
		cliques[i] = members
	}
	return cliques
}

func cliquePositions(c []gonum.Node) []int {
	pos := make([]int, len(c))
	for i, n := range c {
		pos[i] = int(n.ID())
	}
	sort.Ints(pos)
	return pos
}

func lessClique(a, b []int) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// LargestClique returns the first clique of the canonical ordering produced by
// MaximalCliques, i.e. the largest one with ties going to the clique whose
// members appear earliest. It returns nil for an empty slice.
func LargestClique(cliques [][]NodeID) []NodeID {
	var best []NodeID
	for _, c := range cliques {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}
