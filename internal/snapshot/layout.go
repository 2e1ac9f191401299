package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// ErrNoGraph is returned by Discover when the data directory holds no graph
// file.
var ErrNoGraph = errors.New("no graph file found")

// Layout locates the files of one snapshot.
type Layout struct {
	Graph  string                  `yaml:"graph"`
	Empty  string                  `yaml:"empty_nodes"`
	Tables map[profile.Type]string `yaml:"attributes"`
	Truth  map[profile.Type]string `yaml:"ground_truth"`
}

// Snapshot is everything a prediction run reads.
type Snapshot struct {
	Graph  *graph.Graph
	Empty  []graph.NodeID
	Tables profile.Tables
	Truth  profile.Tables
}

var graphNames = map[string]bool{
	"graph.gexf":  true,
	"graph.edges": true,
	"graph.txt":   true,
	"graph.csv":   true,
}

// Discover walks dir and maps the conventional file names to a Layout:
// graph.{gexf,edges,txt,csv} for the graph, empty.json for the nodes to
// predict, <type>.json for known attributes and truth/<type>.json for the
// ground truth. Hidden directories are skipped.
func Discover(dir string) (Layout, error) {
	l := Layout{
		Tables: make(map[profile.Type]string),
		Truth:  make(map[profile.Type]string),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := d.Name()
		parent := filepath.Dir(rel)

		switch {
		case parent == "." && graphNames[name]:
			if l.Graph == "" || strings.HasSuffix(name, ".gexf") {
				l.Graph = path
			}
		case parent == "." && name == "empty.json":
			l.Empty = path
		case strings.HasSuffix(name, ".json"):
			typ, err := profile.ParseType(strings.TrimSuffix(name, ".json"))
			if err != nil {
				return nil
			}
			switch parent {
			case ".":
				l.Tables[typ] = path
			case "truth":
				l.Truth[typ] = path
			}
		}
		return nil
	})
	if err != nil {
		return Layout{}, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if l.Graph == "" {
		return Layout{}, fmt.Errorf("%w in %s", ErrNoGraph, dir)
	}
	return l, nil
}

// Load reads every file of the layout. Without an empty-node file the nodes
// missing from every attribute table are predicted.
func Load(l Layout) (*Snapshot, error) {
	g, err := LoadGraph(l.Graph)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		Graph:  g,
		Tables: make(profile.Tables, len(l.Tables)),
		Truth:  make(profile.Tables, len(l.Truth)),
	}

	for typ, path := range l.Tables {
		t, err := LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("%s table: %w", typ, err)
		}
		s.Tables[typ] = t
	}
	for typ, path := range l.Truth {
		t, err := LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("%s ground truth: %w", typ, err)
		}
		s.Truth[typ] = t
	}

	if l.Empty != "" {
		if s.Empty, err = LoadNodes(l.Empty); err != nil {
			return nil, err
		}
	} else {
		s.Empty = Unprofiled(g, s.Tables)
	}
	return s, nil
}

// Unprofiled returns the graph nodes that appear in none of the tables, in
// graph order.
func Unprofiled(g *graph.Graph, tables profile.Tables) []graph.NodeID {
	var out []graph.NodeID
	for _, id := range g.Nodes() {
		known := false
		for _, t := range tables {
			if t.Has(id) {
				known = true
				break
			}
		}
		if !known {
			out = append(out, id)
		}
	}
	return out
}
