// Package remap classifies how each source table referenced by a view
// migrates to the target schema generation, based on an external
// source-of-truth field-mapping table, and synthesizes the graph rewrite
// for each case.
package remap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"cvmigrate/internal/domain"
)

// Table holds the source-of-truth field mappings keyed by source table,
// plus the exclusion rules: custom-table patterns and the transparent-table
// allow-list. Excluded tables pass through the migration unchanged.
type Table struct {
	rows        map[string][]domain.FieldMapping
	patterns    []string // "SCHEMA.*" or "SCHEMA.TABLE"
	transparent map[string]struct{}
}

// NewTable returns an empty mapping table.
func NewTable() *Table {
	return &Table{
		rows:        map[string][]domain.FieldMapping{},
		transparent: map[string]struct{}{},
	}
}

// Add appends a mapping row.
func (t *Table) Add(m domain.FieldMapping) {
	t.rows[m.SourceTable] = append(t.rows[m.SourceTable], m)
}

// Override replaces the row keyed by (source_table, source_field), or adds
// it when absent. Replacement, not merge: the override row wins entirely.
func (t *Table) Override(m domain.FieldMapping) {
	rows := t.rows[m.SourceTable]
	for i, r := range rows {
		if r.SourceField == m.SourceField {
			rows[i] = m
			return
		}
	}
	t.rows[m.SourceTable] = append(rows, m)
}

// Rows returns the mapping rows for a source table, in load order.
func (t *Table) Rows(sourceTable string) []domain.FieldMapping {
	return t.rows[sourceTable]
}

// AddCustomPattern registers a custom-table pattern ("SCHEMA.*" or
// "SCHEMA.TABLE"). Matching tables are excluded from classification.
func (t *Table) AddCustomPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern != "" {
		t.patterns = append(t.patterns, pattern)
	}
}

// AddTransparent registers a transparent table that migrates unchanged.
func (t *Table) AddTransparent(table string) {
	table = strings.TrimSpace(table)
	if table != "" {
		t.transparent[table] = struct{}{}
	}
}

// IsExcluded reports whether a table is outside the migration's scope:
// transparent, or matching a custom-table pattern.
func (t *Table) IsExcluded(schema, table string) bool {
	if _, ok := t.transparent[table]; ok {
		return true
	}
	for _, p := range t.patterns {
		ps, pt, found := strings.Cut(p, ".")
		if !found {
			if p == table {
				return true
			}
			continue
		}
		if ps == schema && (pt == "*" || pt == table) {
			return true
		}
	}
	return false
}

// LoadMappingsCSV reads mapping rows from a CSV stream with columns
// source_table,source_field,target_table,target_field,flagged. A header row
// is detected by its first column and skipped.
func (t *Table) LoadMappingsCSV(r io.Reader) error {
	return t.loadCSV(r, t.Add)
}

// LoadOverridesCSV reads a second mapping file whose rows replace existing
// rows keyed by (source_table, source_field).
func (t *Table) LoadOverridesCSV(r io.Reader) error {
	return t.loadCSV(r, t.Override)
}

func (t *Table) loadCSV(r io.Reader, add func(domain.FieldMapping)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return domain.ErrValidation("mapping csv: %v", err)
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "source_table") {
			continue
		}
		if len(rec) < 4 {
			return domain.ErrValidation("mapping csv line %d: want at least 4 columns, got %d", line, len(rec))
		}
		m := domain.FieldMapping{
			SourceTable: strings.TrimSpace(rec[0]),
			SourceField: strings.TrimSpace(rec[1]),
			TargetTable: strings.TrimSpace(rec[2]),
			TargetField: strings.TrimSpace(rec[3]),
		}
		if len(rec) > 4 {
			m.FlaggedForReview = parseFlag(rec[4])
		}
		if m.SourceTable == "" || m.SourceField == "" {
			return domain.ErrValidation("mapping csv line %d: source_table and source_field are required", line)
		}
		add(m)
	}
}

// LoadMappingsFile loads the primary mapping CSV from disk.
func (t *Table) LoadMappingsFile(path string) error {
	return t.loadFile(path, t.LoadMappingsCSV)
}

// LoadOverridesFile loads the override mapping CSV from disk.
func (t *Table) LoadOverridesFile(path string) error {
	return t.loadFile(path, t.LoadOverridesCSV)
}

func (t *Table) loadFile(path string, load func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()
	if err := load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadList reads a newline-separated list (custom patterns or transparent
// tables), skipping blanks and #-comments.
func LoadList(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// LoadListFile reads a list file from disk.
func LoadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer f.Close()
	return LoadList(f)
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "x", "yes", "y":
		return true
	default:
		return false
	}
}
