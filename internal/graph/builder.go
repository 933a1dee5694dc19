package graph

import (
	"strings"

	"cvmigrate/internal/domain"
)

// Builder converts a parsed view definition into a Graph.
type Builder struct{}

// Build creates one leaf node per data source, one internal node per
// computation stage, and one edge per (node, input) pair, then runs a
// forward field-inference pass for nodes that do not enumerate their
// columns explicitly.
func (Builder) Build(view *domain.ViewDefinition) (*Graph, error) {
	g := New()
	g.ID = view.ID
	g.Description = view.Description
	g.Parameters = append([]domain.InputParameter(nil), view.Parameters...)

	for _, ds := range view.DataSources {
		n := domain.NewNode(ds.ID, domain.KindDataSource)
		n.Metadata["type"] = ds.Type
		n.Metadata["schema"] = ds.Schema
		n.Metadata["table"] = ds.Table
		if ds.ResourceURI != "" {
			n.Metadata["resource_uri"] = ds.ResourceURI
		}
		g.AddNode(n)
	}

	for _, nd := range view.Nodes {
		n := domain.NewNode(nd.ID, domain.ParseNodeKind(nd.Kind))
		for _, attr := range nd.Attributes {
			n.Fields.Add(attr)
		}
		for _, cc := range nd.CalculatedColumns {
			n.Fields.Add(cc.ID)
		}
		n.CalculatedColumns = append([]domain.CalculatedColumn(nil), nd.CalculatedColumns...)
		if nd.Filter != "" {
			n.Filters = append(n.Filters, domain.FilterExpression{Expression: nd.Filter, Language: "SQL"})
		}
		if nd.JoinType != "" {
			n.Metadata["join_type"] = nd.JoinType
		}
		if nd.Cardinality != "" {
			n.Metadata["cardinality"] = nd.Cardinality
		}
		if nd.Description != "" {
			n.Metadata["description"] = nd.Description
		}
		g.AddNode(n)
	}

	for _, nd := range view.Nodes {
		for _, in := range nd.Inputs {
			// Input refs carry a leading # in the view format; canonical
			// node ids are bare.
			src := strings.TrimPrefix(in.SourceNode, "#")
			kind := domain.EdgeInput
			if domain.ParseNodeKind(nd.Kind) == domain.KindJoin {
				kind = domain.EdgeJoin
			}
			e := domain.NewEdge(src, nd.ID, kind)
			for _, m := range in.Mappings {
				e.Mappings.Set(m.Source, m.Target)
			}
			if err := g.AddEdge(e); err != nil {
				return nil, err
			}
		}
	}

	inferFields(g)
	return g, nil
}

// inferFields fills empty field sets in topological order. Data sources with
// "consume all columns" semantics declare no fields, and intermediate nodes
// that pass everything through inherit from their inputs, applying each
// edge's renames.
func inferFields(g *Graph) {
	order, _ := g.TopologicalOrder()
	for _, id := range order {
		n, ok := g.Node(id)
		if !ok || n.Fields.Len() > 0 {
			continue
		}
		for _, e := range g.EdgesInto(id) {
			src, ok := g.Node(e.Source)
			if !ok {
				continue
			}
			for _, f := range src.Fields.Sorted() {
				if renamed, ok := e.Mappings.Get(f); ok {
					n.Fields.Add(renamed)
				} else {
					n.Fields.Add(f)
				}
			}
		}
	}
}
