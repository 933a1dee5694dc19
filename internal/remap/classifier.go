package remap

import (
	"sort"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
)

// TableUsage describes one base table as the view actually uses it: which
// fields the view consumes. An empty field set means "all columns".
type TableUsage struct {
	Table  string
	Schema string
	Fields domain.StringSet
}

// UsageFromGraph derives per-table field usage from a view graph's
// datasource leaves. A datasource that does not enumerate fields falls back
// to the fields its consumers pull through edge mappings.
func UsageFromGraph(g *graph.Graph) []TableUsage {
	var out []TableUsage
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		if n.Kind != domain.KindDataSource || n.Metadata["type"] == "CALCULATION_VIEW" {
			continue
		}
		table := n.Metadata["table"]
		if table == "" {
			table = n.ID
		}
		fields := n.Fields.Copy()
		if fields.Len() == 0 {
			for _, e := range g.EdgesFrom(id) {
				for pair := e.Mappings.Oldest(); pair != nil; pair = pair.Next() {
					fields.Add(pair.Key)
				}
			}
		}
		out = append(out, TableUsage{Table: table, Schema: n.Metadata["schema"], Fields: fields})
	}
	return out
}

// Classifier classifies each source table's migration case against the
// mapping table. It is a pure analysis step: it never mutates a graph.
type Classifier struct {
	Table *Table
}

// Classify returns one result per non-excluded table plus the events raised
// along the way: ambiguous field targets, flagged rows, and used fields with
// no usable mapping. Target tables are grouped over every mapping row of the
// source table, whether or not the view touches the field: a table whose
// rows span two targets is a split even when the view only reads from one.
// Usage determines only the missing-field set, and every missing field is
// flagged for review regardless of the row-level flag bit.
func (c *Classifier) Classify(usages []TableUsage) ([]domain.TableMappingResult, domain.Events) {
	var results []domain.TableMappingResult
	var events domain.Events

	for _, u := range usages {
		if c.Table.IsExcluded(u.Schema, u.Table) {
			events.Infof(domain.CodeSkipped, u.Table, "table %q excluded (custom or transparent)", u.Table)
			continue
		}
		rows := c.Table.Rows(u.Table)
		if len(rows) == 0 {
			results = append(results, domain.TableMappingResult{
				Case:        domain.CaseDeprecated,
				SourceTable: u.Table,
			})
			continue
		}

		byField := map[string][]domain.FieldMapping{}
		for _, r := range rows {
			byField[r.SourceField] = append(byField[r.SourceField], r)
		}
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		res := domain.TableMappingResult{SourceTable: u.Table}
		targetSet := domain.NewStringSet()
		mapped := map[string]bool{}
		for _, f := range fields {
			frows := byField[f]
			if distinctTargets(frows) > 1 {
				events = append(events, domain.Event{
					Severity: domain.SeverityWarning,
					Code:     domain.CodeClassificationAmbiguity,
					Node:     u.Table,
					Field:    f,
					Message:  "field maps to multiple target tables, following the first",
				})
			}
			row := frows[0]
			if row.TargetTable == "" || row.TargetField == "" {
				continue
			}
			mapped[f] = true
			res.MappedFields = append(res.MappedFields, row)
			targetSet.Add(row.TargetTable)
			if row.FlaggedForReview {
				events = append(events, domain.Event{
					Severity: domain.SeverityWarning,
					Code:     domain.CodeFlaggedField,
					Node:     u.Table,
					Field:    f,
					Message:  "mapping row flagged for review",
				})
			}
		}

		for _, f := range u.Fields.Sorted() {
			if mapped[f] {
				continue
			}
			res.MissingFields = append(res.MissingFields, f)
			msg := "field has no mapping row, manual review required"
			if len(byField[f]) > 0 {
				msg = "mapping row has no target, manual review required"
			}
			events = append(events, domain.Event{
				Severity: domain.SeverityWarning,
				Code:     domain.CodeFlaggedField,
				Node:     u.Table,
				Field:    f,
				Message:  msg,
			})
		}

		res.TargetTables = targetSet.Sorted()
		switch {
		case len(res.MissingFields) > 0:
			res.Case = domain.CaseFragmented
			res.IsFragmented = true
		case len(res.TargetTables) >= 2:
			res.Case = domain.CaseSplit
		default:
			res.Case = domain.CaseSubstitution
		}
		results = append(results, res)
	}
	return results, events
}

func distinctTargets(rows []domain.FieldMapping) int {
	seen := domain.NewStringSet()
	for _, r := range rows {
		if r.TargetTable != "" {
			seen.Add(r.TargetTable)
		}
	}
	return seen.Len()
}

// FlaggedField is one field needing human review.
type FlaggedField struct {
	Table  string
	Field  string
	Target string // "TABLE.FIELD" when a tentative target exists
	Reason string // "missing_mapping" or "review"
}

// FlaggedFields collects the review list across classification results:
// every missing field and every mapped field whose row carries the review
// flag.
func FlaggedFields(results []domain.TableMappingResult) []FlaggedField {
	var out []FlaggedField
	for _, res := range results {
		for _, f := range res.MissingFields {
			out = append(out, FlaggedField{Table: res.SourceTable, Field: f, Reason: "missing_mapping"})
		}
		for _, m := range res.MappedFields {
			if m.FlaggedForReview {
				out = append(out, FlaggedField{
					Table:  res.SourceTable,
					Field:  m.SourceField,
					Target: m.TargetTable + "." + m.TargetField,
					Reason: "review",
				})
			}
		}
	}
	return out
}
