package remap

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"cvmigrate/internal/domain"
)

// LoadSQLite reads mapping rows from a sqlite database holding the same
// columns as the CSV format in a field_mappings table. Large migration
// projects keep the source of truth in a database rather than spreadsheets.
func (t *Table) LoadSQLite(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open mapping db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT source_table, source_field, target_table, target_field, flagged
		FROM field_mappings
		ORDER BY source_table, source_field`)
	if err != nil {
		return fmt.Errorf("query field_mappings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.FieldMapping
		var target, field sql.NullString
		var flagged sql.NullBool
		if err := rows.Scan(&m.SourceTable, &m.SourceField, &target, &field, &flagged); err != nil {
			return fmt.Errorf("scan field_mappings: %w", err)
		}
		m.TargetTable = target.String
		m.TargetField = field.String
		m.FlaggedForReview = flagged.Valid && flagged.Bool
		if m.SourceTable == "" || m.SourceField == "" {
			return domain.ErrValidation("field_mappings row missing source_table or source_field")
		}
		t.Add(m)
	}
	return rows.Err()
}
