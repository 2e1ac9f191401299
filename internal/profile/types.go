package profile

import (
	"fmt"
	"sort"

	"attrinfer/internal/graph"
)

// Type names one family of profile attributes.
type Type string

const (
	Location Type = "location"
	Employer Type = "employer"
	College  Type = "college"
)

// AllTypes lists the attribute types in their canonical order.
var AllTypes = []Type{Location, Employer, College}

// ParseType resolves a type name.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown attribute type %q", s)
}

// Table maps a node to its known values for one attribute type, in the order
// they were recorded. A node may hold several values (several employers, for
// instance). A node absent from the table has no known value.
type Table map[graph.NodeID][]string

// Has returns true if id has an entry in the table, even an empty one.
func (t Table) Has(id graph.NodeID) bool {
	_, ok := t[id]
	return ok
}

// Contains returns true if value is one of the values recorded for id.
func (t Table) Contains(id graph.NodeID, value string) bool {
	for _, v := range t[id] {
		if v == value {
			return true
		}
	}
	return false
}

// Restrict returns the entries of t for the given nodes only.
func (t Table) Restrict(ids []graph.NodeID) Table {
	out := make(Table, len(ids))
	for _, id := range ids {
		if vals, ok := t[id]; ok {
			out[id] = vals
		}
	}
	return out
}

// SortedNodes returns the nodes of t in ascending order.
func (t Table) SortedNodes() []graph.NodeID {
	return sortedKeys(t)
}

// Tables groups one Table per attribute type.
type Tables map[Type]Table

// Types returns the attribute types present, in canonical order first and then
// any other type alphabetically.
func (ts Tables) Types() []Type {
	out := make([]Type, 0, len(ts))
	seen := make(map[Type]bool, len(ts))
	for _, t := range AllTypes {
		if _, ok := ts[t]; ok {
			out = append(out, t)
			seen[t] = true
		}
	}
	var extra []string
	for t := range ts {
		if !seen[t] {
			extra = append(extra, string(t))
		}
	}
	sort.Strings(extra)
	for _, t := range extra {
		out = append(out, Type(t))
	}
	return out
}

// Predictions maps each node to zero or one predicted value.
type Predictions map[graph.NodeID][]string

// Predicted returns the number of nodes that received a value.
func (p Predictions) Predicted() int {
	n := 0
	for _, vals := range p {
		if len(vals) > 0 {
			n++
		}
	}
	return n
}

// SortedNodes returns the nodes of p in ascending order.
func (p Predictions) SortedNodes() []graph.NodeID {
	return sortedKeys(p)
}

func sortedKeys[T any](m map[graph.NodeID]T) []graph.NodeID {
	keys := make([]graph.NodeID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
