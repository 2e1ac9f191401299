package evaluate

import (
	"fmt"
	"testing"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	t.Run("Empty prediction matches empty truth", func(t *testing.T) {
		acc, err := Accuracy(profile.Table{"n": {}}, profile.Predictions{"n": {}})
		require.NoError(t, err)
		assert.InDelta(t, 100.0, acc, 1e-9)
	})

	t.Run("Partial credit over several true values", func(t *testing.T) {
		acc, err := Accuracy(profile.Table{"n": {"X", "Y"}}, profile.Predictions{"n": {"X"}})
		require.NoError(t, err)
		assert.InDelta(t, 50.0, acc, 1e-9)
	})

	t.Run("One right one wrong", func(t *testing.T) {
		acc, err := Accuracy(
			profile.Table{"n1": {"X"}, "n2": {"Y"}},
			profile.Predictions{"n1": {"X"}, "n2": {"Z"}},
		)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, acc, 1e-9)
	})

	t.Run("Missing truth is skipped but counted", func(t *testing.T) {
		acc, err := Accuracy(
			profile.Table{"n1": {"X"}},
			profile.Predictions{"n1": {"X"}, "n2": {"X"}},
		)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, acc, 1e-9)
	})

	t.Run("Prediction against empty truth earns nothing", func(t *testing.T) {
		acc, err := Accuracy(profile.Table{"n": {}}, profile.Predictions{"n": {"X"}})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, acc, 1e-9)
	})

	t.Run("No predictions", func(t *testing.T) {
		_, err := Accuracy(profile.Table{"n": {"X"}}, profile.Predictions{})
		assert.ErrorIs(t, err, ErrNoPredictions)
	})
}

func TestSummarize(t *testing.T) {
	truth := profile.Table{
		"a": {"X"},
		"b": {"Y", "Z"},
		"c": {"W"},
	}
	pred := profile.Predictions{
		"a":     {"X"},
		"b":     {"Z"},
		"c":     {},
		"ghost": {"X"},
	}

	s, err := Summarize(truth, pred)
	require.NoError(t, err)

	assert.InDelta(t, 100*1.5/4, s.Accuracy, 1e-9)
	assert.Equal(t, 4, s.Predictions)
	assert.Equal(t, 3, s.Evaluated)
	assert.Equal(t, 1, s.Skipped)
	assert.InDelta(t, 200.0/3, s.Coverage, 1e-9)
	assert.InDelta(t, 100.0, s.Precision, 1e-9)
	assert.InDelta(t, 50.0, s.Recall, 1e-9)
	assert.InDelta(t, 0.5, s.MeanCredit, 1e-9)
	assert.InDelta(t, 0.5, s.StdDevCredit, 1e-9)
}

func TestSummarize_SingleNode(t *testing.T) {
	s, err := Summarize(profile.Table{"a": {"X"}}, profile.Predictions{"a": {"Y"}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Evaluated)
	assert.InDelta(t, 0.0, s.StdDevCredit, 1e-9)
	assert.InDelta(t, 0.0, s.Precision, 1e-9)
	assert.InDelta(t, 100.0, s.Coverage, 1e-9)

	_, err = Summarize(profile.Table{}, profile.Predictions{})
	assert.ErrorIs(t, err, ErrNoPredictions)
}

func TestAccuracy_Reproducible(t *testing.T) {
	truth := profile.Table{}
	pred := profile.Predictions{}
	for i := 0; i < 200; i++ {
		id := graph.NodeID(fmt.Sprintf("n%03d", i))
		truth[id] = []string{"a", "b", "c"}
		pred[id] = []string{[]string{"a", "x"}[i%2]}
	}

	first, err := Accuracy(truth, pred)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := Accuracy(truth, pred)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}

	s, err := Summarize(truth, pred)
	require.NoError(t, err)
	assert.Equal(t, first, s.Accuracy)
}
