package domain

// FieldMapping is one source-of-truth migration record: how a single field
// of a source-generation table maps into the target generation. An empty
// TargetTable or TargetField means the field has no counterpart yet.
type FieldMapping struct {
	SourceTable      string
	SourceField      string
	TargetTable      string
	TargetField      string
	FlaggedForReview bool
}

// MappingCase classifies how a source table migrates.
type MappingCase string

const (
	// CaseDeprecated: no mapping rows exist, the table is dropped outright.
	CaseDeprecated MappingCase = "1.1"
	// CaseSubstitution: every row targets the same table with a target field.
	CaseSubstitution MappingCase = "1.2"
	// CaseSplit: rows target two or more tables, all fully specified.
	CaseSplit MappingCase = "2.1"
	// CaseFragmented: a split where some used fields have no target.
	CaseFragmented MappingCase = "2.2"
)

// TableMappingResult is the classifier's verdict for one source table.
type TableMappingResult struct {
	Case         MappingCase
	SourceTable  string
	TargetTables []string
	MappedFields []FieldMapping
	// MissingFields are fields used by the view with no usable mapping row.
	// They are always flagged for review regardless of the row-level flag.
	MissingFields []string
	IsFragmented  bool
}
