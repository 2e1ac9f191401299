package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"attrinfer/internal/config"
	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
	"attrinfer/internal/report"
	"attrinfer/internal/snapshot"
	"attrinfer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// writeDataDir lays out a hub "e" whose neighbors mostly work at acme and
// only one of which has a known location.
func writeDataDir(t *testing.T, empty string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	writeFile(t, filepath.Join(dir, "graph.edges"), "# hub\ne a\ne b\ne c\na b\n")
	writeFile(t, filepath.Join(dir, "employer.json"), `{"a":["acme"],"b":"acme","c":["globex"]}`)
	writeFile(t, filepath.Join(dir, "location.json"), `{"a":["paris"]}`)
	writeFile(t, filepath.Join(dir, "empty.json"), empty)
	writeFile(t, filepath.Join(dir, "truth", "employer.json"), `{"e":["acme"]}`)
	return dir
}

func testConfig(t *testing.T, dataDir string) *config.Config {
	t.Helper()
	out := t.TempDir()
	cfg := config.Default()
	cfg.Data.Dir = dataDir
	cfg.Store.Path = filepath.Join(out, "attrinfer.db")
	cfg.Output.Predictions = filepath.Join(out, "predictions")
	cfg.Output.Report = filepath.Join(out, "report.json")
	return cfg
}

func TestRunner_RunFromFiles(t *testing.T) {
	cfg := testConfig(t, writeDataDir(t, `["e"]`))
	ctx := context.Background()

	res, err := New(cfg, nil).Run(ctx)
	require.NoError(t, err)

	majority := res.Predictions[MethodMajority]
	assert.Equal(t, []string{"acme"}, majority[profile.Employer]["e"])
	assert.Equal(t, []string{"paris"}, majority[profile.Location]["e"])

	arbitrated := res.Predictions[MethodArbitrated]
	assert.Equal(t, []string{"acme"}, arbitrated[profile.Employer]["e"])
	assert.Equal(t, []string{}, arbitrated[profile.Location]["e"])

	for _, method := range []string{MethodMajority, MethodArbitrated} {
		s, ok := res.Scores[method][profile.Employer]
		require.True(t, ok, method)
		assert.Equal(t, 100.0, s.Accuracy, method)
		_, hasLocation := res.Scores[method][profile.Location]
		assert.False(t, hasLocation, "location has no ground truth")
	}

	require.Len(t, res.RunIDs, 2)
	store, err := storage.NewSQLiteStore(cfg.Store.Path)
	require.NoError(t, err)
	defer store.Close()
	saved, err := store.LoadRunPredictions(ctx, res.RunIDs[MethodArbitrated])
	require.NoError(t, err)
	assert.Equal(t, arbitrated, saved)

	written, err := snapshot.LoadTable(filepath.Join(cfg.Output.Predictions, MethodArbitrated, "employer.json"))
	require.NoError(t, err)
	assert.Equal(t, profile.Table{"e": {"acme"}}, written)

	data, err := os.ReadFile(cfg.Output.Report)
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, res.RunIDs[MethodArbitrated], rep.RunID)
	assert.Equal(t, 0, rep.Summary.FailedStages)
	assert.Equal(t, 2, rep.Summary.ScoreCount)
}

func TestRunner_ImportThenRunFromStore(t *testing.T) {
	cfg := testConfig(t, writeDataDir(t, `["e"]`))
	ctx := context.Background()
	runner := New(cfg, nil)

	snap, err := runner.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"e"}, snap.Empty)

	cfg.Data.Source = config.SourceStore
	cfg.Data.Dir = filepath.Join(t.TempDir(), "missing")
	res, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, res.Predictions[MethodArbitrated][profile.Employer]["e"])
}

func TestRunner_NoEmptyNodes(t *testing.T) {
	cfg := testConfig(t, writeDataDir(t, `[]`))

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Predictions)
	assert.Empty(t, res.RunIDs)

	res.Report.Finalize()
	require.Len(t, res.Report.Signals, 1)
	assert.Equal(t, "no_empty_nodes", res.Report.Signals[0].Code)
	assert.Equal(t, "critical", res.Report.Signals[0].Severity)
}

func TestRunner_MissingGraph(t *testing.T) {
	cfg := testConfig(t, t.TempDir())

	_, err := New(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrNoGraph)
}

func TestRunner_ImportNeedsStore(t *testing.T) {
	cfg := testConfig(t, writeDataDir(t, `["e"]`))
	cfg.Store.Path = ""

	_, err := New(cfg, nil).Import(context.Background())
	assert.Error(t, err)
}
