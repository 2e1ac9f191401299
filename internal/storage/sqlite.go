package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"attrinfer/internal/evaluate"
	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
	"attrinfer/internal/snapshot"
)

const (
	roleKnown = "known"
	roleTruth = "truth"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			position INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			a TEXT,
			b TEXT,
			position INTEGER,
			PRIMARY KEY (a, b)
		);`,
		`CREATE TABLE IF NOT EXISTS attribute_kinds (
			role TEXT,
			kind TEXT,
			PRIMARY KEY (role, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS attribute_nodes (
			role TEXT,
			kind TEXT,
			node_id TEXT,
			PRIMARY KEY (role, kind, node_id)
		);`,
		`CREATE TABLE IF NOT EXISTS attribute_values (
			role TEXT,
			kind TEXT,
			node_id TEXT,
			position INTEGER,
			value TEXT,
			PRIMARY KEY (role, kind, node_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS empty_nodes (
			node_id TEXT,
			position INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT,
			method TEXT,
			options JSON
		);`,
		`CREATE TABLE IF NOT EXISTS predictions (
			run_id TEXT,
			kind TEXT,
			node_id TEXT,
			value TEXT,
			PRIMARY KEY (run_id, kind, node_id)
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			run_id TEXT,
			kind TEXT,
			summary JSON,
			PRIMARY KEY (run_id, kind)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- SnapshotStore Implementation ---

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Snapshot semantics: the stored snapshot mirrors the latest import.
	for _, table := range []string{"nodes", "edges", "attribute_kinds", "attribute_nodes", "attribute_values", "empty_nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// 1. Save Nodes
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, position) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for i, id := range snap.Graph.Nodes() {
		if _, err := nodeStmt.ExecContext(ctx, string(id), i); err != nil {
			return err
		}
	}

	// 2. Save Edges
	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (a, b, position) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for i, e := range snap.Graph.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, string(e.A), string(e.B), i); err != nil {
			return err
		}
	}

	// 3. Save attribute tables and ground truth
	if err := saveTables(ctx, tx, roleKnown, snap.Tables); err != nil {
		return err
	}
	if err := saveTables(ctx, tx, roleTruth, snap.Truth); err != nil {
		return err
	}

	// 4. Save empty nodes
	emptyStmt, err := tx.PrepareContext(ctx, `INSERT INTO empty_nodes (node_id, position) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer emptyStmt.Close()
	for i, id := range snap.Empty {
		if _, err := emptyStmt.ExecContext(ctx, string(id), i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveTables(ctx context.Context, tx *sql.Tx, role string, tables profile.Tables) error {
	kindStmt, err := tx.PrepareContext(ctx, `INSERT INTO attribute_kinds (role, kind) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer kindStmt.Close()
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO attribute_nodes (role, kind, node_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	valueStmt, err := tx.PrepareContext(ctx, `INSERT INTO attribute_values (role, kind, node_id, position, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer valueStmt.Close()

	for kind, table := range tables {
		// Types with an empty table still need a row.
		if _, err := kindStmt.ExecContext(ctx, role, string(kind)); err != nil {
			return fmt.Errorf("failed to save %s %s table: %w", role, kind, err)
		}
		for id, vals := range table {
			if _, err := nodeStmt.ExecContext(ctx, role, string(kind), string(id)); err != nil {
				return fmt.Errorf("failed to save %s %s entry: %w", role, kind, err)
			}
			for i, v := range vals {
				if _, err := valueStmt.ExecContext(ctx, role, string(kind), string(id), i, v); err != nil {
					return fmt.Errorf("failed to save %s %s value: %w", role, kind, err)
				}
			}
		}
	}
	return nil
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	g := graph.NewGraph()

	// 1. Load Nodes
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM nodes ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		g.AddNode(graph.NodeID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, ErrNoSnapshot
	}

	// 2. Load Edges
	edgeRows, err := s.db.QueryContext(ctx, "SELECT a, b FROM edges ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var a, b string
		if err := edgeRows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		g.AddEdge(graph.NodeID(a), graph.NodeID(b))
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	snap := &snapshot.Snapshot{Graph: g}
	if snap.Tables, err = s.loadTables(ctx, roleKnown); err != nil {
		return nil, err
	}
	if snap.Truth, err = s.loadTables(ctx, roleTruth); err != nil {
		return nil, err
	}

	// 3. Load empty nodes
	emptyRows, err := s.db.QueryContext(ctx, "SELECT node_id FROM empty_nodes ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query empty nodes: %w", err)
	}
	defer emptyRows.Close()
	for emptyRows.Next() {
		var id string
		if err := emptyRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan empty node: %w", err)
		}
		snap.Empty = append(snap.Empty, graph.NodeID(id))
	}
	return snap, emptyRows.Err()
}

func (s *SQLiteStore) loadTables(ctx context.Context, role string) (profile.Tables, error) {
	tables := profile.Tables{}

	kindRows, err := s.db.QueryContext(ctx, "SELECT kind FROM attribute_kinds WHERE role = ?", role)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s tables: %w", role, err)
	}
	defer kindRows.Close()
	for kindRows.Next() {
		var kind string
		if err := kindRows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("failed to scan %s table: %w", role, err)
		}
		tables[profile.Type(kind)] = profile.Table{}
	}
	if err := kindRows.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, node_id FROM attribute_nodes WHERE role = ?", role)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s entries: %w", role, err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", role, err)
		}
		t := tables[profile.Type(kind)]
		if t == nil {
			t = profile.Table{}
			tables[profile.Type(kind)] = t
		}
		t[graph.NodeID(id)] = []string{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	valueRows, err := s.db.QueryContext(ctx, "SELECT kind, node_id, value FROM attribute_values WHERE role = ? ORDER BY kind, node_id, position", role)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s values: %w", role, err)
	}
	defer valueRows.Close()
	for valueRows.Next() {
		var kind, id, value string
		if err := valueRows.Scan(&kind, &id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s value: %w", role, err)
		}
		t := tables[profile.Type(kind)]
		if t == nil {
			continue
		}
		t[graph.NodeID(id)] = append(t[graph.NodeID(id)], value)
	}
	return tables, valueRows.Err()
}

// --- RunStore Implementation ---

// SaveRun stores r, assigning an id and a creation time when missing.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	opts, err := json.Marshal(r.Options)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, method, options) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET created_at=excluded.created_at, method=excluded.method, options=excluded.options
	`, r.ID, r.CreatedAt.Format(time.RFC3339Nano), r.Method, opts); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	for _, table := range []string{"predictions", "scores"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", r.ID); err != nil {
			return err
		}
	}

	predStmt, err := tx.PrepareContext(ctx, `INSERT INTO predictions (run_id, kind, node_id, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer predStmt.Close()
	for kind, preds := range r.Predictions {
		for id, vals := range preds {
			var value sql.NullString
			if len(vals) > 0 {
				value = sql.NullString{String: vals[0], Valid: true}
			}
			if _, err := predStmt.ExecContext(ctx, r.ID, string(kind), string(id), value); err != nil {
				return fmt.Errorf("failed to save prediction: %w", err)
			}
		}
	}

	scoreStmt, err := tx.PrepareContext(ctx, `INSERT INTO scores (run_id, kind, summary) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer scoreStmt.Close()
	for kind, summary := range r.Scores {
		data, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		if _, err := scoreStmt.ExecContext(ctx, r.ID, string(kind), data); err != nil {
			return fmt.Errorf("failed to save score: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns every run, oldest first, with scores but without
// predictions.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at, method, options FROM runs ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	index := make(map[string]int)
	for rows.Next() {
		var (
			r       Run
			created string
			opts    []byte
		)
		if err := rows.Scan(&r.ID, &created, &r.Method, &opts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
		}
		if len(opts) > 0 {
			if err := json.Unmarshal(opts, &r.Options); err != nil {
				return nil, fmt.Errorf("run %s: bad options: %w", r.ID, err)
			}
		}
		r.Scores = map[profile.Type]evaluate.Summary{}
		index[r.ID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scoreRows, err := s.db.QueryContext(ctx, "SELECT run_id, kind, summary FROM scores")
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var (
			id, kind string
			data     []byte
			summary  evaluate.Summary
		)
		if err := scoreRows.Scan(&id, &kind, &data); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, &summary); err != nil {
			return nil, fmt.Errorf("run %s: bad score: %w", id, err)
		}
		runs[i].Scores[profile.Type(kind)] = summary
	}
	return runs, scoreRows.Err()
}

func (s *SQLiteStore) LoadRunPredictions(ctx context.Context, id string) (map[profile.Type]profile.Predictions, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, node_id, value FROM predictions WHERE run_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	out := make(map[profile.Type]profile.Predictions)
	for rows.Next() {
		var (
			kind, node string
			value      sql.NullString
		)
		if err := rows.Scan(&kind, &node, &value); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p := out[profile.Type(kind)]
		if p == nil {
			p = profile.Predictions{}
			out[profile.Type(kind)] = p
		}
		if value.Valid {
			p[graph.NodeID(node)] = []string{value.String}
		} else {
			p[graph.NodeID(node)] = []string{}
		}
	}
	return out, rows.Err()
}
