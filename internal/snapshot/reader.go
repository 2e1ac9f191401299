package snapshot

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"attrinfer/internal/graph"
	"attrinfer/internal/profile"
)

// ErrUnknownFormat is returned for graph files whose extension is not
// recognised.
var ErrUnknownFormat = errors.New("unknown graph format")

type gexfDocument struct {
	XMLName xml.Name `xml:"gexf"`
	Graph   struct {
		Nodes []struct {
			ID string `xml:"id,attr"`
		} `xml:"nodes>node"`
		Edges []struct {
			Source string `xml:"source,attr"`
			Target string `xml:"target,attr"`
		} `xml:"edges>edge"`
	} `xml:"graph"`
}

// ReadGEXF parses a GEXF document. Edge direction is ignored.
func ReadGEXF(r io.Reader) (*graph.Graph, error) {
	var doc gexfDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode gexf: %w", err)
	}

	g := graph.NewGraph()
	for _, n := range doc.Graph.Nodes {
		if n.ID == "" {
			continue
		}
		g.AddNode(graph.NodeID(n.ID))
	}
	for _, e := range doc.Graph.Edges {
		if e.Source == "" || e.Target == "" {
			return nil, fmt.Errorf("gexf edge with missing endpoint (%q, %q)", e.Source, e.Target)
		}
		g.AddEdge(graph.NodeID(e.Source), graph.NodeID(e.Target))
	}
	return g, nil
}

// ReadEdgeList parses one edge per line as two node ids separated by
// whitespace or a comma.
// Extra columns are ignored, a single id declares an isolated node, and lines
// starting with '#' are comments.
func ReadEdgeList(r io.Reader) (*graph.Graph, error) {
	g := graph.NewGraph()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, isSeparator)
		if len(fields) == 1 {
			g.AddNode(graph.NodeID(fields[0]))
			continue
		}
		g.AddEdge(graph.NodeID(fields[0]), graph.NodeID(fields[1]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge list at line %d: %w", line, err)
	}
	return g, nil
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// LoadGraph reads a graph file, picking the parser from its extension.
func LoadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gexf":
		return ReadGEXF(f)
	case ".edges", ".txt", ".tsv", ".csv":
		return ReadEdgeList(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// ReadTable decodes a JSON object mapping node ids to value lists. A bare
// string is accepted as a one-value list and null as an empty list. Any
// other shape fails with ErrInvalidDocument.
func ReadTable(r io.Reader) (profile.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute table: %w", err)
	}
	if err := validate(tableSchemaURL, data); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode attribute table: %w", err)
	}

	t := make(profile.Table, len(raw))
	for id, msg := range raw {
		vals, err := decodeValues(msg)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		t[graph.NodeID(id)] = vals
	}
	return t, nil
}

func decodeValues(msg json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(msg))
	switch {
	case trimmed == "null":
		return []string{}, nil
	case strings.HasPrefix(trimmed, "\""):
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	default:
		vals := []string{}
		if err := json.Unmarshal(msg, &vals); err != nil {
			return nil, err
		}
		return vals, nil
	}
}

// LoadTable reads an attribute table from a JSON file.
func LoadTable(path string) (profile.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute table: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// LoadNodes reads a JSON array of node ids.
func LoadNodes(path string) ([]graph.NodeID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node list: %w", err)
	}
	if err := validate(nodesSchemaURL, data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var ids []graph.NodeID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode node list: %w", err)
	}
	return ids, nil
}
