package remap

import (
	"fmt"
	"strings"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
	"cvmigrate/internal/transform"
)

// MissingPrefix names the synthetic join input holding a fragmented table's
// unresolved fields.
const MissingPrefix = "MISSING_"

// RewriteSpec synthesizes a declarative rewrite specification from
// classification results: deletes for deprecated tables, add+delete for
// substitutions, and an add/join chain for splits. Consumers of a deleted
// table are left to the spec author (or Apply) to re-route; the transformer
// reports them as unresolved rather than failing.
func RewriteSpec(results []domain.TableMappingResult) *transform.Spec {
	spec := &transform.Spec{}
	for _, res := range results {
		switch res.Case {
		case domain.CaseDeprecated:
			spec.DeleteNodes = append(spec.DeleteNodes, res.SourceTable)

		case domain.CaseSubstitution:
			target := res.TargetTables[0]
			spec.AddNodes = append(spec.AddNodes, transform.AddNodeSpec{
				NodeID:       target,
				Type:         "datasource",
				TableName:    target,
				FieldSources: fieldSources(res, target),
			})
			spec.DeleteNodes = append(spec.DeleteNodes, res.SourceTable)

		case domain.CaseSplit, domain.CaseFragmented:
			inputs := splitInputs(res)
			for _, in := range inputs {
				spec.AddNodes = append(spec.AddNodes, transform.AddNodeSpec{
					NodeID:       in.id,
					Type:         "datasource",
					TableName:    in.id,
					FieldSources: in.sources,
				})
			}
			spec.AddJoins = append(spec.AddJoins, joinChain(inputs)...)
			spec.DeleteNodes = append(spec.DeleteNodes, res.SourceTable)
		}
	}
	return spec
}

// Apply rewrites the graph directly from classification results:
// deprecated tables are removed, substitutions renamed in place, splits
// replaced by a left-deep chain of binary joins whose final join takes over
// the original table's consumers. Field renames then propagate to every
// affected descendant.
func Apply(g *graph.Graph, results []domain.TableMappingResult) (domain.Events, error) {
	var events domain.Events
	sources := map[string]map[string]string{}

	for _, res := range results {
		node, ok := findTableNode(g, res.SourceTable)
		if !ok {
			events.Warnf(domain.CodeUnresolvedReference, res.SourceTable, "table %q not present in graph, skipped", res.SourceTable)
			continue
		}

		switch res.Case {
		case domain.CaseDeprecated:
			for _, dep := range g.DependentsOf(node.ID) {
				events.Warnf(domain.CodeDanglingReference, dep, "node %q consumed deprecated table %q", dep, res.SourceTable)
			}
			g.RemoveNode(node.ID)
			events.Infof(domain.CodeNodeDeleted, node.ID, "removed deprecated table %q", res.SourceTable)

		case domain.CaseSubstitution:
			target := res.TargetTables[0]
			if err := g.RenameNode(node.ID, target); err != nil {
				events.Warnf(domain.CodeSkipped, node.ID, "cannot substitute %q with %q: %v", node.ID, target, err)
				continue
			}
			node.Metadata["table"] = target
			renames := map[string]string{}
			for _, m := range res.MappedFields {
				if node.Fields.Has(m.SourceField) {
					node.Fields.Remove(m.SourceField)
					node.Fields.Add(m.TargetField)
				}
				if m.SourceField != m.TargetField {
					renames[m.SourceField] = m.TargetField
				}
			}
			if len(renames) > 0 {
				sources[target] = renames
			}
			events.Infof(domain.CodeNodeSubstituted, target, "substituted table %q with %q", res.SourceTable, target)

		case domain.CaseSplit, domain.CaseFragmented:
			final, renames, err := applySplit(g, node, res, &events)
			if err != nil {
				return events, err
			}
			if len(renames) > 0 {
				sources[final] = renames
			}
		}
	}

	events = append(events, transform.PropagateRenames(g, sources)...)
	return events, nil
}

// applySplit builds the target datasources and join chain for one split
// table, rewires the original's consumers to the final join, and returns
// the final join id plus the old-to-new field renames.
func applySplit(g *graph.Graph, orig *domain.Node, res domain.TableMappingResult, events *domain.Events) (string, map[string]string, error) {
	inputs := splitInputs(res)
	renames := map[string]string{}

	for _, in := range inputs {
		n := domain.NewNode(in.id, domain.KindDataSource)
		n.Metadata["type"] = "DATA_BASE_TABLE"
		n.Metadata["table"] = in.id
		for field := range in.sources {
			n.Fields.Add(field)
		}
		g.AddNode(n)
		events.Infof(domain.CodeNodeAdded, in.id, "added datasource %q for split table %q", in.id, res.SourceTable)
		for target, source := range in.sources {
			if old := bare(source); old != target {
				renames[old] = target
			}
		}
	}

	final := inputs[0].id
	for _, j := range joinChain(inputs) {
		join := domain.NewNode(j.JoinID, domain.KindJoin)
		join.Metadata["join_type"] = j.Type
		left, _ := g.Node(j.LeftNode)
		right, _ := g.Node(j.RightNode)
		le := domain.NewEdge(j.LeftNode, j.JoinID, domain.EdgeJoin)
		re := domain.NewEdge(j.RightNode, j.JoinID, domain.EdgeJoin)
		for _, f := range left.Fields.Sorted() {
			join.Fields.Add(f)
			le.Mappings.Set(f, f)
		}
		for _, f := range right.Fields.Sorted() {
			join.Fields.Add(f)
			re.Mappings.Set(f, f)
		}
		g.AddNode(join)
		if err := g.AddEdge(le); err != nil {
			return "", nil, err
		}
		if err := g.AddEdge(re); err != nil {
			return "", nil, err
		}
		final = j.JoinID
	}

	outgoing := g.EdgesFrom(orig.ID)
	g.RemoveNode(orig.ID)
	for _, e := range outgoing {
		e.Source = final
		if !g.HasNode(e.Target) {
			events.Warnf(domain.CodeDanglingReference, e.Target, "consumer %q of split table %q no longer exists", e.Target, res.SourceTable)
			continue
		}
		if err := g.AddEdge(e); err != nil {
			return "", nil, err
		}
	}
	events.Infof(domain.CodeTableSplit, final, "split table %q into %d targets joined at %q", res.SourceTable, len(inputs), final)
	return final, renames, nil
}

// splitInput is one join input of a split: a target table (or the synthetic
// missing-fields node) with its field sources.
type splitInput struct {
	id      string
	sources map[string]string // field -> "SOURCE_TABLE.field"
}

func splitInputs(res domain.TableMappingResult) []splitInput {
	var inputs []splitInput
	for _, target := range res.TargetTables {
		inputs = append(inputs, splitInput{id: target, sources: fieldSources(res, target)})
	}
	if res.IsFragmented {
		missing := map[string]string{}
		for _, f := range res.MissingFields {
			missing[f] = res.SourceTable + "." + f
		}
		inputs = append(inputs, splitInput{id: MissingPrefix + res.SourceTable, sources: missing})
	}
	return inputs
}

func fieldSources(res domain.TableMappingResult, target string) map[string]string {
	out := map[string]string{}
	for _, m := range res.MappedFields {
		if m.TargetTable == target {
			out[m.TargetField] = m.SourceTable + "." + m.SourceField
		}
	}
	return out
}

// joinChain builds the left-deep chain of binary joins over the split
// inputs: JOIN_T1_T2, then JOIN_T1_T2_T3, and so on. Each join equates the
// fields both sides share; the last join is the unique sink of the chain.
func joinChain(inputs []splitInput) []transform.AddJoinSpec {
	if len(inputs) < 2 {
		return nil
	}
	var joins []transform.AddJoinSpec
	parts := []string{inputs[0].id}
	leftID := inputs[0].id
	leftFields := fieldSet(inputs[0].sources)

	for _, right := range inputs[1:] {
		parts = append(parts, right.id)
		joinID := "JOIN_" + strings.Join(parts, "_")
		rightFields := fieldSet(right.sources)
		var conds []transform.JoinCondition
		for _, f := range leftFields.Sorted() {
			if rightFields.Has(f) {
				conds = append(conds, transform.JoinCondition{
					FieldMapping: fmt.Sprintf("%s.%s = %s.%s", leftID, f, right.id, f),
				})
			}
		}
		joins = append(joins, transform.AddJoinSpec{
			JoinID:     joinID,
			LeftNode:   leftID,
			RightNode:  right.id,
			Type:       "inner",
			Conditions: conds,
		})
		for f := range rightFields {
			leftFields.Add(f)
		}
		leftID = joinID
	}
	return joins
}

func fieldSet(sources map[string]string) domain.StringSet {
	s := domain.NewStringSet()
	for f := range sources {
		s.Add(f)
	}
	return s
}

// findTableNode resolves a table name to its datasource node: by id first,
// then by table metadata.
func findTableNode(g *graph.Graph, table string) (*domain.Node, bool) {
	if n, ok := g.Resolve(table); ok {
		return n, true
	}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		if n.Kind == domain.KindDataSource && n.Metadata["table"] == table {
			return n, true
		}
	}
	return nil, false
}

func bare(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}
