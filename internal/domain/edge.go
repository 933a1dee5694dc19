package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// EdgeKind classifies an edge.
type EdgeKind string

const (
	EdgeInput  EdgeKind = "input"
	EdgeJoin   EdgeKind = "join"
	EdgeLookup EdgeKind = "lookup"
)

// FieldMap is an ordered upstream-field to downstream-field mapping with
// unique keys. Order matters for deterministic re-serialization, so a plain
// map is not enough.
type FieldMap = orderedmap.OrderedMap[string, string]

// NewFieldMap returns an empty ordered field mapping.
func NewFieldMap() *FieldMap {
	return orderedmap.New[string, string]()
}

// CopyFieldMap returns an independent copy preserving order. A nil input
// yields an empty map.
func CopyFieldMap(m *FieldMap) *FieldMap {
	out := NewFieldMap()
	if m == nil {
		return out
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// Edge connects a source node to a target node. Endpoints are referenced by
// id, never by handle, so graph mutation cannot invalidate an edge silently;
// a stale id simply fails lookup.
type Edge struct {
	Source   string
	Target   string
	Mappings *FieldMap // source field -> target field
	Kind     EdgeKind
}

// NewEdge creates an edge with an empty mapping.
func NewEdge(source, target string, kind EdgeKind) *Edge {
	return &Edge{Source: source, Target: target, Mappings: NewFieldMap(), Kind: kind}
}

// Clone deep-copies the edge.
func (e *Edge) Clone() *Edge {
	return &Edge{Source: e.Source, Target: e.Target, Mappings: CopyFieldMap(e.Mappings), Kind: e.Kind}
}
