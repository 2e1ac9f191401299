package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"attrinfer/internal/evaluate"
	"attrinfer/internal/graph"
	"attrinfer/internal/predict"
	"attrinfer/internal/profile"
	"attrinfer/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot() *snapshot.Snapshot {
	g := graph.NewGraph()
	g.AddNode("z")
	g.AddEdge("b", "a")
	g.AddEdge("a", "c")
	g.AddEdge("c", "b")
	return &snapshot.Snapshot{
		Graph: g,
		Empty: []graph.NodeID{"c", "z"},
		Tables: profile.Tables{
			profile.Employer: {"a": {"acme", "globex"}, "b": {}},
			profile.College:  {"a": {"mit"}},
			profile.Location: {},
		},
		Truth: profile.Tables{
			profile.Employer: {"c": {"acme"}, "z": {}},
		},
	}
}

func TestSQLiteStore_SnapshotRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	want := testSnapshot()

	require.NoError(t, store.SaveSnapshot(ctx, want))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Graph.Nodes(), got.Graph.Nodes())
	assert.Equal(t, want.Graph.Edges(), got.Graph.Edges())
	for _, id := range want.Graph.Nodes() {
		assert.Equal(t, want.Graph.Neighbors(id), got.Graph.Neighbors(id), "neighbors of %s", id)
	}
	assert.Equal(t, want.Empty, got.Empty)
	assert.Equal(t, want.Tables, got.Tables)
	assert.Equal(t, want.Tables.Types(), got.Tables.Types(), "types with empty tables survive")
	assert.Equal(t, want.Truth, got.Truth)
}

func TestSQLiteStore_SaveSnapshotReplacesPrevious(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))

	g := graph.NewGraph()
	g.AddEdge("x", "y")
	next := &snapshot.Snapshot{
		Graph:  g,
		Empty:  []graph.NodeID{"y"},
		Tables: profile.Tables{profile.Location: {"x": {"paris"}}},
		Truth:  profile.Tables{},
	}
	require.NoError(t, store.SaveSnapshot(ctx, next))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"x", "y"}, got.Graph.Nodes())
	assert.Equal(t, 1, got.Graph.EdgeCount())
	assert.Equal(t, []graph.NodeID{"y"}, got.Empty)
	assert.Equal(t, profile.Tables{profile.Location: {"x": {"paris"}}}, got.Tables)
	assert.Empty(t, got.Truth)
}

func TestSQLiteStore_LoadSnapshotEmpty(t *testing.T) {
	store := openStore(t)

	_, err := store.LoadSnapshot(context.Background())
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestSQLiteStore_Runs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run := &Run{
		Method:  "arbitrated",
		Options: predict.DefaultOptions(),
		Predictions: map[profile.Type]profile.Predictions{
			profile.Employer: {"c": {"acme"}, "z": {}},
		},
		Scores: map[profile.Type]evaluate.Summary{
			profile.Employer: {Accuracy: 100, Predictions: 2, Evaluated: 2, Coverage: 50},
		},
	}
	require.NoError(t, store.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	require.False(t, run.CreatedAt.IsZero())

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "arbitrated", runs[0].Method)
	assert.Equal(t, predict.DefaultOptions(), runs[0].Options)
	assert.Equal(t, run.Scores, runs[0].Scores)
	assert.True(t, run.CreatedAt.Equal(runs[0].CreatedAt))

	preds, err := store.LoadRunPredictions(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Predictions, preds)
}

func TestSQLiteStore_SaveRunOverwritesSameID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run := &Run{
		ID:     "fixed",
		Method: "majority",
		Predictions: map[profile.Type]profile.Predictions{
			profile.College: {"a": {"mit"}},
		},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	run.Predictions = map[profile.Type]profile.Predictions{
		profile.College: {"b": {}},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	preds, err := store.LoadRunPredictions(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, map[profile.Type]profile.Predictions{profile.College: {"b": {}}}, preds)
}

func TestSQLiteStore_LoadRunPredictionsUnknown(t *testing.T) {
	store := openStore(t)

	_, err := store.LoadRunPredictions(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLiteStore_ListRunsBadOptions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, &Run{ID: "broken", Method: "majority"}))

	_, err := store.db.ExecContext(ctx, "UPDATE runs SET options = ? WHERE id = ?", []byte("{not json"), "broken")
	require.NoError(t, err)

	_, err = store.ListRuns(ctx)
	assert.ErrorContains(t, err, "bad options")
}
