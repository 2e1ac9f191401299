package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"attrinfer/internal/evaluate"
	"attrinfer/internal/profile"
)

// LowCoverage is the coverage percentage below which a method is flagged.
const LowCoverage = 50.0

type Signal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Score is the evaluation of one method on one attribute type.
type Score struct {
	Method string           `json:"method"`
	Type   profile.Type     `json:"type"`
	Result evaluate.Summary `json:"result"`
}

type Summary struct {
	StageCount        int                `json:"stage_count"`
	FailedStages      int                `json:"failed_stages"`
	ScoreCount        int                `json:"score_count"`
	MeanAccuracy      map[string]float64 `json:"mean_accuracy,omitempty"`
	SignalsBySeverity map[string]int     `json:"signals_by_severity"`
}

// Report records the stages, scores and quality signals of one run.
type Report struct {
	Version     string        `json:"version"`
	Mode        string        `json:"mode"`
	RunID       string        `json:"run_id,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Stages      []StageMetric `json:"stages"`
	Scores      []Score       `json:"scores,omitempty"`
	Signals     []Signal      `json:"signals,omitempty"`
	Summary     Summary       `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func New(mode string) *Report {
	return &Report{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Scores:      []Score{},
		Signals:     []Signal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) EndStage(h StageHandle, counters map[string]float64, err error) {
	if r == nil || h.name == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	r.Stages = append(r.Stages, m)
}

// Note attaches a free-form note to the most recent stage named stage.
func (r *Report) Note(stage, note string) {
	if r == nil {
		return
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Name == stage {
			r.Stages[i].Notes = append(r.Stages[i].Notes, note)
			return
		}
	}
}

// AddScore records a method's evaluation and raises low_coverage when it
// filled in fewer than half of the evaluated nodes.
func (r *Report) AddScore(method string, typ profile.Type, s evaluate.Summary) {
	if r == nil {
		return
	}
	r.Scores = append(r.Scores, Score{Method: method, Type: typ, Result: s})
	if s.Evaluated > 0 && s.Coverage < LowCoverage {
		r.AddSignal("low_coverage", "evaluate", "warning",
			method+" left most "+string(typ)+" predictions empty", s.Coverage)
	}
}

func (r *Report) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := Signal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	var mean map[string]float64
	if len(r.Scores) > 0 {
		mean = make(map[string]float64)
		n := make(map[string]int)
		for _, s := range r.Scores {
			mean[s.Method] += s.Result.Accuracy
			n[s.Method]++
		}
		for m := range mean {
			mean[m] /= float64(n[m])
		}
	}

	r.Summary = Summary{
		StageCount:        len(r.Stages),
		FailedStages:      failed,
		ScoreCount:        len(r.Scores),
		MeanAccuracy:      mean,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
