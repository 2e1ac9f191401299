package evaluate

import (
	"gonum.org/v1/gonum/stat"

	"attrinfer/internal/profile"
)

// Summary extends Accuracy with coverage and precision/recall figures.
type Summary struct {
	Accuracy     float64 `json:"accuracy"`
	Predictions  int     `json:"predictions"`
	Evaluated    int     `json:"evaluated"`
	Skipped      int     `json:"skipped"`
	Coverage     float64 `json:"coverage"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	MeanCredit   float64 `json:"mean_credit"`
	StdDevCredit float64 `json:"stddev_credit"`
}

// Summarize scores pred against truth. Coverage is the percentage of
// evaluated nodes that received a value. Precision is the share of predicted
// values found in the ground truth, recall the share of ground-truth values
// that were predicted, both over evaluated nodes and as percentages.
func Summarize(truth profile.Table, pred profile.Predictions) (Summary, error) {
	acc, err := Accuracy(truth, pred)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Accuracy: acc, Predictions: len(pred)}

	var (
		credits   []float64
		covered   int
		predicted int
		relevant  int
		correct   int
	)
	for _, id := range pred.SortedNodes() {
		vals := pred[id]
		c, ok := credit(truth, id, vals)
		if !ok {
			s.Skipped++
			continue
		}
		s.Evaluated++
		credits = append(credits, c)
		if len(vals) > 0 {
			covered++
		}
		predicted += len(vals)
		relevant += len(truth[id])
		correct += hits(truth, id, vals)
	}

	if s.Evaluated > 0 {
		s.Coverage = 100 * float64(covered) / float64(s.Evaluated)
		s.MeanCredit, s.StdDevCredit = stat.MeanStdDev(credits, nil)
		if len(credits) == 1 {
			s.StdDevCredit = 0
		}
	}
	if predicted > 0 {
		s.Precision = 100 * float64(correct) / float64(predicted)
	}
	if relevant > 0 {
		s.Recall = 100 * float64(correct) / float64(relevant)
	}
	return s, nil
}
