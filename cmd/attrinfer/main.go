package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"attrinfer/internal/config"
	"attrinfer/internal/evaluate"
	"attrinfer/internal/graph"
	"attrinfer/internal/logging"
	"attrinfer/internal/pipeline"
	"attrinfer/internal/predict"
	"attrinfer/internal/profile"
	"attrinfer/internal/snapshot"
	"attrinfer/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:               "attrinfer",
		Short:             "Infer missing profile attributes from a social graph",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	configPath string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		} else {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		os.Exit(1)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite store (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	registerPredictFlags(predictCmd.Flags())

	vocabCmd.Flags().Int("top", 10, "Number of values to print per attribute type (0 prints all)")
	vocabCmd.Flags().Bool("from-store", false, "Read the snapshot imported into the store instead of data files")

	explainCmd.Flags().String("type", "", "Attribute type to explain (default: every type)")
	explainCmd.Flags().Bool("from-store", false, "Read the snapshot imported into the store instead of data files")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(explainCmd)
}

// setup loads the configuration and builds the logger before any command.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, zap.String("cmd", cmd.Name())); err != nil {
		return err
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <data-dir>",
	Short: "Load graph, attribute tables and ground truth into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Path == "" {
			cfg.Store.Path = "attrinfer.db"
		}
		cfg.Data.Dir = args[0]
		cfg.Data.Layout = snapshot.Layout{}

		start := time.Now()
		snap, err := pipeline.New(cfg, logger).Import(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✅ Imported %d nodes, %d edges, %d attribute types in %v.\n",
			snap.Graph.Len(), snap.Graph.EdgeCount(), len(snap.Tables), time.Since(start).Round(time.Millisecond))
		fmt.Printf("💾 Store: %s\n", cfg.Store.Path)
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the majority baseline and the arbitrated clique method",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyPredictFlags(cfg, cmd.Flags())
		if cfg.Data.Source == config.SourceStore && cfg.Store.Path == "" {
			return errors.New("--from-store needs --db or store.path")
		}

		res, err := pipeline.New(cfg, logger).Run(cmd.Context())
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func registerPredictFlags(fs *pflag.FlagSet) {
	fs.String("data", "", "Data directory to read (overrides config)")
	fs.Bool("from-store", false, "Read the snapshot imported into the store instead of data files")
	fs.String("out", "", "Directory for per-method prediction files")
	fs.String("report", "", "Path of the JSON run report")
	fs.Int("threshold", -1, "Clique size a neighborhood must exceed to narrow the candidate pool")
	fs.Int("max-neighborhood", -1, "Skip clique enumeration above this many neighbors (0 disables the cap)")
}

// applyPredictFlags copies the predict flags that were given onto cfg.
// Numeric flags default to -1 so that 0 can be set explicitly.
func applyPredictFlags(cfg *config.Config, flags *pflag.FlagSet) {
	if v, _ := flags.GetString("data"); v != "" {
		cfg.Data.Dir = v
		cfg.Data.Layout = snapshot.Layout{}
	}
	if v, _ := flags.GetBool("from-store"); v {
		cfg.Data.Source = config.SourceStore
	}
	if v, _ := flags.GetString("out"); v != "" {
		cfg.Output.Predictions = v
	}
	if v, _ := flags.GetString("report"); v != "" {
		cfg.Output.Report = v
	}
	if v, _ := flags.GetInt("threshold"); v >= 0 {
		cfg.Inference.CliqueThreshold = v
	}
	if v, _ := flags.GetInt("max-neighborhood"); v >= 0 {
		cfg.Inference.MaxNeighborhood = v
	}
}

func printResult(res *pipeline.Result) {
	if len(res.Predictions) == 0 {
		fmt.Println("⚠️  Nothing to predict.")
		return
	}
	fmt.Printf("🔮 Predicted %d nodes.\n", len(res.Snapshot.Empty))
	for _, method := range []string{pipeline.MethodMajority, pipeline.MethodArbitrated} {
		preds := res.Predictions[method]
		for _, t := range res.Snapshot.Tables.Types() {
			line := fmt.Sprintf("  %-10s %-9s filled %d/%d", method, t, preds[t].Predicted(), len(preds[t]))
			if s, ok := res.Scores[method][t]; ok {
				line += fmt.Sprintf("  accuracy %.2f%%  coverage %.2f%%", s.Accuracy, s.Coverage)
			}
			fmt.Println(line)
		}
	}
	if id := res.RunIDs[pipeline.MethodArbitrated]; id != "" {
		fmt.Printf("💾 Run: %s\n", id)
	}
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <predictions.json> <truth.json>",
	Short: "Score a prediction file against a ground truth file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pred, err := snapshot.LoadTable(args[0])
		if err != nil {
			return err
		}
		truth, err := snapshot.LoadTable(args[1])
		if err != nil {
			return err
		}

		s, err := evaluate.Summarize(truth, profile.Predictions(pred))
		if err != nil {
			return err
		}
		fmt.Printf("Accuracy:  %.2f%%\n", s.Accuracy)
		fmt.Printf("Coverage:  %.2f%%\n", s.Coverage)
		fmt.Printf("Precision: %.2f%%\n", s.Precision)
		fmt.Printf("Recall:    %.2f%%\n", s.Recall)
		fmt.Printf("Credit:    mean %.3f, stddev %.3f\n", s.MeanCredit, s.StdDevCredit)
		fmt.Printf("Nodes:     %d predicted, %d evaluated, %d without ground truth\n", s.Predictions, s.Evaluated, s.Skipped)
		return nil
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "List the distinct values of each attribute table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("from-store"); v {
			cfg.Data.Source = config.SourceStore
		}
		top, _ := cmd.Flags().GetInt("top")

		snap, err := pipeline.New(cfg, logger).Load(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range snap.Tables.Types() {
			vocab := profile.Vocabulary(snap.Tables[t])
			fmt.Printf("%s: %d values over %d nodes\n", t, len(vocab), len(snap.Tables[t]))
			if top > 0 && len(vocab) > top {
				vocab = vocab[:top]
			}
			for _, vc := range vocab {
				fmt.Printf("  %6d  %s\n", vc.Nodes, vc.Value)
			}
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored prediction runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Path == "" {
			return errors.New("runs needs --db or store.path")
		}
		store, err := storage.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  %-10s %s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Method, formatScores(r.Scores))
		}
		return nil
	},
}

func formatScores(scores map[profile.Type]evaluate.Summary) string {
	if len(scores) == 0 {
		return "-"
	}
	types := make([]string, 0, len(scores))
	for t := range scores {
		types = append(types, string(t))
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s=%.2f%%", t, scores[profile.Type(t)].Accuracy))
	}
	return strings.Join(parts, " ")
}

var explainCmd = &cobra.Command{
	Use:   "explain <node>",
	Short: "Show the candidate pool and scores behind a node's prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("from-store"); v {
			cfg.Data.Source = config.SourceStore
		}
		var types []profile.Type
		if v, _ := cmd.Flags().GetString("type"); v != "" {
			t, err := profile.ParseType(v)
			if err != nil {
				return err
			}
			types = []profile.Type{t}
		}

		snap, err := pipeline.New(cfg, logger).Load(cmd.Context())
		if err != nil {
			return err
		}
		node := graph.NodeID(args[0])
		if !snap.Graph.HasNode(node) {
			return fmt.Errorf("node %q is not in the graph", node)
		}
		if types == nil {
			types = snap.Tables.Types()
		}

		p := predict.New(snap.Graph, cfg.Inference)
		for _, t := range types {
			exp := p.Explain(node, snap.Tables[t])
			pool := "neighbors"
			if exp.UsedClique {
				pool = fmt.Sprintf("clique of %d", len(exp.Clique))
			}
			fmt.Printf("%s: %d neighbors, pool: %s\n", t, len(exp.Neighbors), pool)
			if len(exp.Candidates) == 0 {
				fmt.Println("  (no candidate values)")
			}
			for _, c := range exp.Candidates {
				fmt.Printf("  %8d  %s\n", c.Score, c.Value)
			}
		}
		return nil
	},
}
