package predict

import (
	"testing"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain(t *testing.T) {
	g, table := cliqueFixture()

	t.Run("Clique pool", func(t *testing.T) {
		exp := New(g, DefaultOptions()).Explain("n", table)
		assert.True(t, exp.UsedClique)
		assert.Len(t, exp.Clique, 6)
		assert.Len(t, exp.Neighbors, 11)
		assert.Equal(t, []Candidate{{Value: "A", Score: 105}}, exp.Candidates)
	})

	t.Run("Neighbor pool ranks every value", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxNeighborhood = 5
		p := New(g, opts)

		exp := p.Explain("n", table)
		assert.False(t, exp.UsedClique)
		assert.Empty(t, exp.Clique)
		require.Len(t, exp.Candidates, 2)
		assert.Equal(t, Candidate{Value: "B", Score: 186}, exp.Candidates[0])
		assert.Equal(t, Candidate{Value: "A", Score: 105}, exp.Candidates[1])

		scored := p.CliqueWeighted([]graph.NodeID{"n"}, table)
		assert.Equal(t, exp.Candidates[:1], scored["n"])
	})

	t.Run("Unknown node", func(t *testing.T) {
		exp := New(g, DefaultOptions()).Explain("ghost", profile.Table{"a": {"A"}})
		assert.Empty(t, exp.Neighbors)
		assert.Equal(t, []Candidate{}, exp.Candidates)
	})
}
