package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"attrinfer/internal/config"
	"attrinfer/internal/evaluate"
	"attrinfer/internal/predict"
	"attrinfer/internal/profile"
	"attrinfer/internal/report"
	"attrinfer/internal/snapshot"
	"attrinfer/internal/storage"
)

// Method names used in runs, reports and output directories.
const (
	MethodMajority   = "majority"
	MethodArbitrated = "arbitrated"
)

// Runner sequences a prediction run: load, baseline, arbitration,
// evaluation, persistence and report.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
}

// Result holds everything one run produced. Scores is keyed by method and
// only has entries for types with ground truth.
type Result struct {
	Snapshot    *snapshot.Snapshot
	Predictions map[string]map[profile.Type]profile.Predictions
	Scores      map[string]map[profile.Type]evaluate.Summary
	RunIDs      map[string]string
	Report      *report.Report
}

func New(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: logger}
}

// Run executes the whole pipeline. Failures to write the report are logged
// but do not fail the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		Predictions: make(map[string]map[profile.Type]profile.Predictions),
		Scores:      make(map[string]map[profile.Type]evaluate.Summary),
		RunIDs:      make(map[string]string),
		Report:      report.New("predict"),
	}
	defer r.saveReport(res.Report)

	snap, err := r.loadStage(ctx, res.Report)
	if err != nil {
		return nil, err
	}
	res.Snapshot = snap

	if len(snap.Empty) == 0 {
		res.Report.AddSignal("no_empty_nodes", "load", "critical", "snapshot has no nodes to predict", 0)
		r.log.Warn("nothing to predict")
		return res, nil
	}

	p := predict.New(snap.Graph, r.cfg.Inference)

	if res.Predictions[MethodMajority], err = r.baselineStage(ctx, res.Report, p, snap); err != nil {
		return nil, err
	}
	if res.Predictions[MethodArbitrated], err = r.arbitrateStage(ctx, res.Report, p, snap); err != nil {
		return nil, err
	}

	r.evaluateStage(res)

	if err := r.persistStage(ctx, res); err != nil {
		return nil, err
	}
	if err := r.outputStage(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Import reads the configured data files and stores them as the current
// snapshot.
func (r *Runner) Import(ctx context.Context) (*snapshot.Snapshot, error) {
	if r.cfg.Store.Path == "" {
		return nil, errors.New("import needs a store path")
	}
	snap, err := r.loadFiles()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(r.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	r.log.Info("snapshot imported",
		zap.String("db", r.cfg.Store.Path),
		zap.Int("nodes", snap.Graph.Len()),
		zap.Int("edges", snap.Graph.EdgeCount()),
		zap.Int("empty", len(snap.Empty)),
	)
	return snap, nil
}

func (r *Runner) loadStage(ctx context.Context, rep *report.Report) (*snapshot.Snapshot, error) {
	h := rep.BeginStage("load")

	snap, err := r.Load(ctx)
	if err != nil {
		rep.EndStage(h, nil, err)
		return nil, err
	}

	stats := snap.Graph.Stats()
	rep.EndStage(h, map[string]float64{
		"nodes":       float64(stats.Nodes),
		"edges":       float64(stats.Edges),
		"isolated":    float64(stats.Isolated),
		"max_degree":  float64(stats.MaxDegree),
		"mean_degree": stats.MeanDegree,
		"empty_nodes": float64(len(snap.Empty)),
		"types":       float64(len(snap.Tables)),
	}, nil)
	rep.Note("load", "source: "+string(r.cfg.Data.Source))

	for _, t := range snap.Tables.Types() {
		if len(snap.Tables[t]) == 0 {
			rep.AddSignal("empty_table", "load", "warning", string(t)+" table has no entries", 0)
		}
	}

	r.log.Info("snapshot loaded",
		zap.String("source", string(r.cfg.Data.Source)),
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("empty", len(snap.Empty)),
		zap.Int("types", len(snap.Tables)),
	)
	return snap, nil
}

// Load reads the snapshot from the configured source.
func (r *Runner) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	if r.cfg.Data.Source == config.SourceStore {
		return r.loadStore(ctx)
	}
	return r.loadFiles()
}

func (r *Runner) loadFiles() (*snapshot.Snapshot, error) {
	layout := r.cfg.Data.Layout
	if layout.Graph == "" {
		var err error
		if layout, err = snapshot.Discover(r.cfg.Data.Dir); err != nil {
			return nil, fmt.Errorf("failed to discover data files: %w", err)
		}
	}
	snap, err := snapshot.Load(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

func (r *Runner) loadStore(ctx context.Context) (*snapshot.Snapshot, error) {
	store, err := storage.NewSQLiteStore(r.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

func (r *Runner) baselineStage(ctx context.Context, rep *report.Report, p *predict.Predictor, snap *snapshot.Snapshot) (map[profile.Type]profile.Predictions, error) {
	h := rep.BeginStage(MethodMajority)

	out := make(map[profile.Type]profile.Predictions, len(snap.Tables))
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, t := range snap.Tables.Types() {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			preds := p.Majority(snap.Empty, snap.Tables[t])
			mu.Lock()
			out[t] = preds
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		rep.EndStage(h, nil, err)
		return nil, err
	}

	rep.EndStage(h, predictedCounters(out), nil)
	r.log.Info("baseline done", zap.Int("types", len(out)))
	return out, nil
}

func (r *Runner) arbitrateStage(ctx context.Context, rep *report.Report, p *predict.Predictor, snap *snapshot.Snapshot) (map[profile.Type]profile.Predictions, error) {
	h := rep.BeginStage(MethodArbitrated)

	out, err := p.Arbitrate(ctx, snap.Empty, snap.Tables)
	if err != nil {
		rep.EndStage(h, nil, err)
		return nil, err
	}

	rep.EndStage(h, predictedCounters(out), nil)
	r.log.Info("arbitration done",
		zap.Int("types", len(out)),
		zap.Int("clique_threshold", p.Options().CliqueThreshold),
		zap.Bool("parallel", p.Options().Parallel),
	)
	return out, nil
}

func (r *Runner) evaluateStage(res *Result) {
	h := res.Report.BeginStage("evaluate")
	scored := 0

	for _, method := range []string{MethodMajority, MethodArbitrated} {
		for _, t := range res.Snapshot.Tables.Types() {
			truth, ok := res.Snapshot.Truth[t]
			if !ok {
				continue
			}
			s, err := evaluate.Summarize(truth.Restrict(res.Snapshot.Empty), res.Predictions[method][t])
			if errors.Is(err, evaluate.ErrNoPredictions) {
				continue
			}
			if res.Scores[method] == nil {
				res.Scores[method] = make(map[profile.Type]evaluate.Summary)
			}
			res.Scores[method][t] = s
			res.Report.AddScore(method, t, s)
			scored++

			r.log.Info("evaluated",
				zap.String("method", method),
				zap.String("type", string(t)),
				zap.Float64("accuracy", s.Accuracy),
				zap.Float64("coverage", s.Coverage),
				zap.Int("evaluated", s.Evaluated),
			)
		}
	}

	res.Report.EndStage(h, map[string]float64{"scores": float64(scored)}, nil)
	if scored == 0 {
		res.Report.Note("evaluate", "no ground truth")
	}
}

func (r *Runner) persistStage(ctx context.Context, res *Result) error {
	if r.cfg.Store.Path == "" {
		return nil
	}
	h := res.Report.BeginStage("persist")

	store, err := storage.NewSQLiteStore(r.cfg.Store.Path)
	if err != nil {
		err = fmt.Errorf("failed to initialize database: %w", err)
		res.Report.EndStage(h, nil, err)
		return err
	}
	defer store.Close()

	for _, method := range []string{MethodMajority, MethodArbitrated} {
		run := &storage.Run{
			Method:      method,
			Options:     r.cfg.Inference,
			Predictions: res.Predictions[method],
			Scores:      res.Scores[method],
		}
		if err := store.SaveRun(ctx, run); err != nil {
			err = fmt.Errorf("failed to save %s run: %w", method, err)
			res.Report.EndStage(h, nil, err)
			return err
		}
		res.RunIDs[method] = run.ID
		r.log.Info("run saved", zap.String("method", method), zap.String("run_id", run.ID))
	}

	res.Report.RunID = res.RunIDs[MethodArbitrated]
	res.Report.EndStage(h, map[string]float64{"runs": float64(len(res.RunIDs))}, nil)
	return nil
}

func (r *Runner) outputStage(res *Result) error {
	dir := r.cfg.Output.Predictions
	if dir == "" {
		return nil
	}
	h := res.Report.BeginStage("output")
	for method, preds := range res.Predictions {
		if err := snapshot.WritePredictions(filepath.Join(dir, method), preds); err != nil {
			res.Report.EndStage(h, nil, err)
			return err
		}
	}
	res.Report.EndStage(h, nil, nil)
	r.log.Info("predictions written", zap.String("dir", dir))
	return nil
}

func (r *Runner) saveReport(rep *report.Report) {
	path := r.cfg.Output.Report
	if path == "" {
		return
	}
	if err := rep.Save(path); err != nil {
		r.log.Warn("failed to save report", zap.String("path", path), zap.Error(err))
		return
	}
	r.log.Info("report saved", zap.String("path", path))
}

func predictedCounters(preds map[profile.Type]profile.Predictions) map[string]float64 {
	out := make(map[string]float64, len(preds))
	for t, p := range preds {
		out["predicted_"+string(t)] = float64(p.Predicted())
	}
	return out
}
