package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGEXF = `<?xml version="1.0" encoding="UTF-8"?>
<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2">
  <graph mode="static" defaultedgetype="undirected">
    <nodes>
      <node id="U1" label="U1"/>
      <node id="U2" label="U2"/>
      <node id="U3" label="U3"/>
      <node id="U4" label="U4"/>
    </nodes>
    <edges>
      <edge id="0" source="U1" target="U2"/>
      <edge id="1" source="U2" target="U3"/>
      <edge id="2" source="U3" target="U2"/>
    </edges>
  </graph>
</gexf>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadGEXF(t *testing.T) {
	g, err := ReadGEXF(strings.NewReader(sampleGEXF))
	require.NoError(t, err)

	assert.Equal(t, []graph.NodeID{"U1", "U2", "U3", "U4"}, g.Nodes())
	assert.Equal(t, 2, g.EdgeCount(), "reverse duplicate edge is merged")
	assert.Equal(t, []graph.NodeID{"U1", "U3"}, g.Neighbors("U2"))
	assert.Equal(t, []graph.NodeID{"U2"}, g.Neighbors("U3"))
	assert.Empty(t, g.Neighbors("U4"))
}

func TestReadGEXF_Invalid(t *testing.T) {
	_, err := ReadGEXF(strings.NewReader("<gexf><graph><edges><edge source=\"a\"/></edges></graph></gexf>"))
	assert.Error(t, err)

	_, err = ReadGEXF(strings.NewReader("not xml"))
	assert.Error(t, err)
}

func TestReadEdgeList(t *testing.T) {
	input := `# comment
a b
b,c 0.5

d
`
	g, err := ReadEdgeList(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []graph.NodeID{"a", "b", "c", "d"}, g.Nodes())
	assert.True(t, g.HasEdge("c", "b"))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestLoadGraph_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.bin")
	writeFile(t, path, "")
	_, err := LoadGraph(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(`{"a": ["x", "y"], "b": "z", "c": null, "d": []}`))
	require.NoError(t, err)

	assert.Equal(t, profile.Table{
		"a": {"x", "y"},
		"b": {"z"},
		"c": {},
		"d": {},
	}, tbl)

	_, err = ReadTable(strings.NewReader(`{"a": 3}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ReadTable(strings.NewReader(`{"a": ["x", 1]}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ReadTable(strings.NewReader(`["a"]`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestLoadNodes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "empty.json")
	writeFile(t, good, `["U2", "U4"]`)
	ids, err := LoadNodes(good)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"U2", "U4"}, ids)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `["U2", ""]`)
	_, err = LoadNodes(bad)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDiscoverAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "graph.gexf"), sampleGEXF)
	writeFile(t, filepath.Join(dir, "employer.json"), `{"U1": ["Acme"]}`)
	writeFile(t, filepath.Join(dir, "location.json"), `{"U3": ["Paris"]}`)
	writeFile(t, filepath.Join(dir, "notes.json"), `{}`)
	writeFile(t, filepath.Join(dir, "truth", "employer.json"), `{"U2": ["Acme"], "U4": []}`)
	writeFile(t, filepath.Join(dir, ".cache", "college.json"), `{}`)

	layout, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "graph.gexf"), layout.Graph)
	assert.Empty(t, layout.Empty)
	assert.Len(t, layout.Tables, 2)
	assert.Equal(t, filepath.Join(dir, "truth", "employer.json"), layout.Truth[profile.Employer])
	assert.NotContains(t, layout.Tables, profile.College)

	snap, err := Load(layout)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Graph.Len())
	assert.Equal(t, []graph.NodeID{"U2", "U4"}, snap.Empty, "unprofiled nodes are predicted")
	assert.Equal(t, []string{"Acme"}, snap.Tables[profile.Employer]["U1"])
	assert.Equal(t, []string{"Acme"}, snap.Truth[profile.Employer]["U2"])

	t.Run("Explicit empty-node list", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "empty.json"), `["U4"]`)
		layout, err := Discover(dir)
		require.NoError(t, err)
		snap, err := Load(layout)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{"U4"}, snap.Empty)
	})
}

func TestDiscover_NoGraph(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestWritePredictions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	preds := map[profile.Type]profile.Predictions{
		profile.Employer: {"U2": {"Acme"}, "U4": {}},
	}
	require.NoError(t, WritePredictions(dir, preds))

	back, err := LoadTable(filepath.Join(dir, "employer.json"))
	require.NoError(t, err)
	assert.Equal(t, profile.Table{"U2": {"Acme"}, "U4": {}}, back)
}
