package domain

import (
	"sort"
	"strings"
)

// NodeKind classifies a graph node.
type NodeKind string

const (
	KindDataSource  NodeKind = "datasource"
	KindJoin        NodeKind = "join"
	KindAggregation NodeKind = "aggregation"
	KindProjection  NodeKind = "projection"
	KindUnion       NodeKind = "union"
	KindOther       NodeKind = "other"
)

// ParseNodeKind maps a view-format type string (e.g. "Calculation:JoinView")
// to a NodeKind. Unknown strings map to KindOther rather than failing, since
// the format grows node types the engine only needs to pass through.
func ParseNodeKind(s string) NodeKind {
	t := s
	if i := strings.LastIndex(t, ":"); i >= 0 {
		t = t[i+1:]
	}
	switch strings.ToLower(t) {
	case "joinview", "join":
		return KindJoin
	case "aggregationview", "aggregation":
		return KindAggregation
	case "projectionview", "projection":
		return KindProjection
	case "unionview", "union":
		return KindUnion
	case "datasource", "data_base_table":
		return KindDataSource
	default:
		return KindOther
	}
}

// StringSet is a set of field names.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s StringSet) Add(item string)      { s[item] = struct{}{} }
func (s StringSet) Remove(item string)   { delete(s, item) }
func (s StringSet) Has(item string) bool { _, ok := s[item]; return ok }
func (s StringSet) Len() int             { return len(s) }

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) Copy() StringSet {
	out := make(StringSet, len(s))
	for it := range s {
		out[it] = struct{}{}
	}
	return out
}

// CalculatedColumn is a formula-derived output column local to one node.
type CalculatedColumn struct {
	ID                 string
	Datatype           string
	Length             int
	ExpressionLanguage string
	Formula            string
}

// FilterExpression is a row filter attached to a node.
type FilterExpression struct {
	Expression string
	Language   string // defaults to SQL when empty
}

// InputParameter is a view-level variable, owned by the Graph rather than
// by any node.
type InputParameter struct {
	ID            string
	IsParameter   bool
	Description   string
	Datatype      string
	Length        int
	Mandatory     bool
	SelectionType string
}

// Node is one vertex of the dependency graph. Dependencies and Dependents
// are derived adjacency, recomputed from edges, never authoritative.
type Node struct {
	ID                string
	Kind              NodeKind
	Fields            StringSet
	CalculatedColumns []CalculatedColumn
	Filters           []FilterExpression
	Dependencies      []string
	Dependents        []string
	Metadata          map[string]string
}

// NewNode creates a node with an empty field set and metadata bag.
func NewNode(id string, kind NodeKind) *Node {
	return &Node{
		ID:       id,
		Kind:     kind,
		Fields:   NewStringSet(),
		Metadata: map[string]string{},
	}
}

// HasCalculatedColumn reports whether the node defines the named
// calculated column.
func (n *Node) HasCalculatedColumn(name string) bool {
	for _, cc := range n.CalculatedColumns {
		if cc.ID == name {
			return true
		}
	}
	return false
}

// CalculatedColumn returns the named calculated-column definition.
func (n *Node) CalculatedColumn(name string) (CalculatedColumn, bool) {
	for _, cc := range n.CalculatedColumns {
		if cc.ID == name {
			return cc, true
		}
	}
	return CalculatedColumn{}, false
}

// Clone deep-copies the node.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:                n.ID,
		Kind:              n.Kind,
		Fields:            n.Fields.Copy(),
		CalculatedColumns: append([]CalculatedColumn(nil), n.CalculatedColumns...),
		Filters:           append([]FilterExpression(nil), n.Filters...),
		Dependencies:      append([]string(nil), n.Dependencies...),
		Dependents:        append([]string(nil), n.Dependents...),
		Metadata:          make(map[string]string, len(n.Metadata)),
	}
	for k, v := range n.Metadata {
		out.Metadata[k] = v
	}
	return out
}
