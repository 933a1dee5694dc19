package domain

// ViewDefinition is the parsed-view contract handed over by the XML codec:
// everything the graph builder, classifier, and lineage tracer need, in
// document order.
type ViewDefinition struct {
	ID           string
	Description  string
	Parameters   []InputParameter
	DataSources  []DataSourceDef
	Nodes        []NodeDef
	LogicalModel []LogicalColumn
}

// DataSourceDef describes one declared data source. Type distinguishes base
// tables ("DATA_BASE_TABLE") from nested views ("CALCULATION_VIEW"), in
// which case ResourceURI points at the referenced view.
type DataSourceDef struct {
	ID             string
	Type           string
	Schema         string
	Table          string
	UsesAllColumns bool
	ResourceURI    string
}

// IsBaseTable reports whether the data source is a physical table.
func (d DataSourceDef) IsBaseTable() bool {
	return d.Type != "CALCULATION_VIEW"
}

// MappingPair is one source-to-target field pair on an input.
type MappingPair struct {
	Source string
	Target string
}

// InputDef is one input of a computation node with its field mappings.
type InputDef struct {
	SourceNode string
	Mappings   []MappingPair
}

// NodeDef describes one computation stage of the view.
type NodeDef struct {
	ID                string
	Kind              string
	Attributes        []string
	CalculatedColumns []CalculatedColumn
	Inputs            []InputDef
	Filter            string
	JoinType          string
	Cardinality       string
	Description       string
}

// LogicalColumn is one output-facing attribute or measure of the logical
// model, with the keyMapping that ties it back to a node and column.
type LogicalColumn struct {
	ID               string
	Description      string
	ColumnObjectName string // internal node id the output maps to
	ColumnName       string // field name on that node
	IsMeasure        bool
}

// DataSource returns the data source with the given id.
func (v *ViewDefinition) DataSource(id string) (DataSourceDef, bool) {
	for _, ds := range v.DataSources {
		if ds.ID == id {
			return ds, true
		}
	}
	return DataSourceDef{}, false
}

// NodeDef returns the computation node with the given id.
func (v *ViewDefinition) NodeDef(id string) (NodeDef, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeDef{}, false
}
