package domain

// LineageEntry is one hop of a field's derivation path. SourceField and
// SourceNode are empty when the hop does not rename or the origin is
// unknown. A lineage path is ordered source to sink.
type LineageEntry struct {
	FieldName        string
	NodeID           string
	SourceField      string
	SourceNode       string
	IsOriginalSource bool
	// IsCalculated marks a derived column terminal: the origin is a formula
	// local to NodeID, not a table column.
	IsCalculated bool
}
