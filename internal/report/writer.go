// Package report renders classification and lineage results for humans:
// CSV reports per view and a terminal-friendly lineage format, plus a
// parallel batch runner over directories of view files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/remap"
)

// WriteClassification renders one CSV row per classified table.
func WriteClassification(w io.Writer, results []domain.TableMappingResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source_table", "case", "target_tables", "mapped_fields", "missing_fields", "fragmented"}); err != nil {
		return err
	}
	for _, r := range results {
		var mapped []string
		for _, m := range r.MappedFields {
			mapped = append(mapped, m.SourceField+">"+m.TargetTable+"."+m.TargetField)
		}
		row := []string{
			r.SourceTable,
			string(r.Case),
			strings.Join(r.TargetTables, ";"),
			strings.Join(mapped, ";"),
			strings.Join(r.MissingFields, ";"),
			strconv.FormatBool(r.IsFragmented),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFlaggedFields renders the manual-review list as CSV.
func WriteFlaggedFields(w io.Writer, fields []remap.FlaggedField) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"table", "field", "target", "reason"}); err != nil {
		return err
	}
	for _, f := range fields {
		if err := cw.Write([]string{f.Table, f.Field, f.Target, f.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatLineage renders a derivation path, source first, one hop per line.
func FormatLineage(entries []domain.LineageEntry) string {
	if len(entries) == 0 {
		return "(no lineage)"
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s.%s", i+1, e.NodeID, e.FieldName)
		switch {
		case e.IsCalculated:
			b.WriteString(" [calculated]")
		case e.IsOriginalSource:
			b.WriteString(" [source]")
		}
		if e.SourceField != "" && !e.IsOriginalSource {
			fmt.Fprintf(&b, " (renamed from %s", e.SourceField)
			if e.SourceNode != "" {
				fmt.Fprintf(&b, " of %s", e.SourceNode)
			}
			b.WriteString(")")
		}
		if i < len(entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
