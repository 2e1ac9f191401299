package graph

// Stats reports node, edge and degree counts for g.
func (g *Graph) Stats() Stats {
	if g == nil || len(g.order) == 0 {
		return Stats{}
	}
	s := Stats{Nodes: len(g.order), Edges: len(g.edges)}
	total := 0
	for _, id := range g.order {
		d := g.Degree(id)
		if d == 0 {
			s.Isolated++
		}
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
		total += d
	}
	s.MeanDegree = float64(total) / float64(s.Nodes)
	return s
}
