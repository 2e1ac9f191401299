package evaluate

import (
	"errors"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// ErrNoPredictions is returned when there is nothing to score.
var ErrNoPredictions = errors.New("no predictions to evaluate")

// Accuracy scores pred against truth as a percentage.
//
// A node earns the share of its ground-truth values that were predicted, so a
// single correct guess against two true employers earns one half. A node with
// no prediction and no ground truth counts as fully correct; a prediction
// against an empty ground truth earns nothing. Nodes missing from truth are
// skipped but still count in the denominator, which is len(pred). Nodes are
// summed in sorted order so the result is reproducible.
func Accuracy(truth profile.Table, pred profile.Predictions) (float64, error) {
	if len(pred) == 0 {
		return 0, ErrNoPredictions
	}
	sum := 0.0
	for _, id := range pred.SortedNodes() {
		if c, ok := credit(truth, id, pred[id]); ok {
			sum += c
		}
	}
	return 100 * sum / float64(len(pred)), nil
}

// credit returns the score of one node and false when the node has no ground
// truth entry.
func credit(truth profile.Table, id graph.NodeID, vals []string) (float64, bool) {
	want, ok := truth[id]
	if !ok {
		return 0, false
	}
	if len(vals) == 0 && len(want) == 0 {
		return 1, true
	}
	if len(want) == 0 {
		return 0, true
	}
	return float64(hits(truth, id, vals)) / float64(len(want)), true
}

// hits counts the predicted values recorded in truth for id.
func hits(truth profile.Table, id graph.NodeID, vals []string) int {
	n := 0
	for _, v := range vals {
		if truth.Contains(id, v) {
			n++
		}
	}
	return n
}
