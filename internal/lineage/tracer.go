// Package lineage answers provenance queries: given a field of a view's
// final output, it reconstructs the full derivation path back to the
// original source column or calculated expression, recursing into nested
// sub-views where the path crosses file boundaries.
package lineage

import (
	"strings"

	"cvmigrate/internal/domain"
)

// Resolver resolves a nested-view reference (a data source's resource URI)
// to its parsed definition.
type Resolver interface {
	ResolveView(resourceURI string) (*domain.ViewDefinition, error)
}

// Tracer walks field lineage backward through a view. A nil Resolver makes
// nested-view references trace terminals instead of recursing.
type Tracer struct {
	Resolver Resolver
}

// NewTracer returns a tracer using the given resolver for nested views.
func NewTracer(r Resolver) *Tracer {
	return &Tracer{Resolver: r}
}

// Trace returns the derivation path of an output field, ordered source to
// sink, plus the events raised along the way (ambiguous fan-in, unresolved
// references, cycles). Only a field absent from the view's output is an
// error.
func (t *Tracer) Trace(view *domain.ViewDefinition, field string) ([]domain.LineageEntry, domain.Events, error) {
	var events domain.Events
	visited := map[string]bool{}
	entries, err := t.trace(view, field, visited, &events)
	if err != nil {
		return nil, events, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, events, nil
}

// trace locates the field in the logical model and walks backward,
// returning entries in discovery (sink to source) order.
func (t *Tracer) trace(view *domain.ViewDefinition, field string, visited map[string]bool, events *domain.Events) ([]domain.LineageEntry, error) {
	lc, ok := findLogical(view, field)
	if !ok {
		return nil, domain.ErrNotFound("field %q is not in the output of view %q", field, view.ID)
	}
	var entries []domain.LineageEntry
	node := strings.TrimPrefix(lc.ColumnObjectName, "#")
	if node == "" && len(view.Nodes) > 0 {
		// A column without a keyMapping resolves against the view's final
		// node in document order.
		node = view.Nodes[len(view.Nodes)-1].ID
	}
	current := lc.ColumnName
	if current == "" {
		current = field
	}
	if lc.ID != current {
		// The logical model itself renames the field.
		entries = append(entries, domain.LineageEntry{
			FieldName:   lc.ID,
			NodeID:      view.ID,
			SourceField: current,
			SourceNode:  node,
		})
	}
	return t.walk(view, node, current, visited, events, entries), nil
}

func (t *Tracer) walk(view *domain.ViewDefinition, nodeID, field string, visited map[string]bool, events *domain.Events, entries []domain.LineageEntry) []domain.LineageEntry {
	key := view.ID + "|" + nodeID + "|" + field
	if visited[key] {
		*events = append(*events, domain.Event{
			Severity: domain.SeverityWarning,
			Code:     domain.CodeCycleDetected,
			Node:     nodeID,
			Field:    field,
			Message:  "lineage revisited node, stopping to avoid a cycle",
		})
		return entries
	}
	visited[key] = true

	if ds, ok := view.DataSource(nodeID); ok {
		return t.walkDataSource(ds, field, visited, events, entries)
	}

	nd, ok := view.NodeDef(nodeID)
	if !ok {
		events.Warnf(domain.CodeUnresolvedReference, nodeID, "lineage reached unknown node %q", nodeID)
		return append(entries, domain.LineageEntry{FieldName: field, NodeID: nodeID})
	}

	// A calculated column is a terminal even when a view attribute of the
	// same name exists: the value originates from the formula, not from an
	// upstream column.
	for _, cc := range nd.CalculatedColumns {
		if cc.ID == field {
			return append(entries, domain.LineageEntry{
				FieldName:        field,
				NodeID:           nodeID,
				IsOriginalSource: true,
				IsCalculated:     true,
			})
		}
	}

	type match struct{ src, srcField string }
	var matches []match
	for _, in := range nd.Inputs {
		for _, m := range in.Mappings {
			if m.Target == field {
				matches = append(matches, match{strings.TrimPrefix(in.SourceNode, "#"), m.Source})
			}
		}
	}
	if len(matches) > 1 {
		*events = append(*events, domain.Event{
			Severity: domain.SeverityWarning,
			Code:     domain.CodeClassificationAmbiguity,
			Node:     nodeID,
			Field:    field,
			Message:  "field is mapped from multiple inputs, following the first",
		})
	}
	if len(matches) > 0 {
		m := matches[0]
		// Only renaming hops contribute entries; a passthrough hop adds no
		// information, and an unrenamed field must trace to just its
		// terminal.
		if m.srcField != field {
			entries = append(entries, domain.LineageEntry{
				FieldName:   field,
				NodeID:      nodeID,
				SourceField: m.srcField,
				SourceNode:  m.src,
			})
		}
		return t.walk(view, m.src, m.srcField, visited, events, entries)
	}

	// No explicit mapping: an input without mappings forwards all columns.
	for _, in := range nd.Inputs {
		if len(in.Mappings) == 0 {
			src := strings.TrimPrefix(in.SourceNode, "#")
			return t.walk(view, src, field, visited, events, entries)
		}
	}

	events.Warnf(domain.CodeUnresolvedReference, nodeID, "no input of node %q maps field %q", nodeID, field)
	return append(entries, domain.LineageEntry{FieldName: field, NodeID: nodeID})
}

// walkDataSource handles the two terminal kinds of data source: a base
// table ends the path, a nested calculation view is traced recursively and
// its path spliced in.
func (t *Tracer) walkDataSource(ds domain.DataSourceDef, field string, visited map[string]bool, events *domain.Events, entries []domain.LineageEntry) []domain.LineageEntry {
	if ds.IsBaseTable() {
		return append(entries, domain.LineageEntry{
			FieldName:        field,
			NodeID:           ds.ID,
			SourceField:      field,
			IsOriginalSource: true,
		})
	}
	if t.Resolver == nil {
		events.Warnf(domain.CodeUnresolvedReference, ds.ID, "nested view %q cannot be resolved (no resolver)", ds.ID)
		return append(entries, domain.LineageEntry{FieldName: field, NodeID: ds.ID})
	}
	sub, err := t.Resolver.ResolveView(ds.ResourceURI)
	if err != nil {
		events.Warnf(domain.CodeUnresolvedReference, ds.ID, "nested view %q: %v", ds.ID, err)
		return append(entries, domain.LineageEntry{FieldName: field, NodeID: ds.ID})
	}
	subEntries, err := t.trace(sub, field, visited, events)
	if err != nil {
		events.Warnf(domain.CodeUnresolvedReference, ds.ID, "nested view %q: %v", ds.ID, err)
		return append(entries, domain.LineageEntry{FieldName: field, NodeID: ds.ID})
	}
	return append(entries, subEntries...)
}

func findLogical(view *domain.ViewDefinition, field string) (domain.LogicalColumn, bool) {
	for _, lc := range view.LogicalModel {
		if lc.ID == field {
			return lc, true
		}
	}
	return domain.LogicalColumn{}, false
}
