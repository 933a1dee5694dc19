package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmigrate/internal/domain"
)

func TestBuildCreatesNodesAndEdges(t *testing.T) {
	view := &domain.ViewDefinition{
		ID: "CV_TEST",
		DataSources: []domain.DataSourceDef{
			{ID: "BSEG", Type: "DATA_BASE_TABLE", Schema: "SAPHANADB", Table: "BSEG", UsesAllColumns: true},
		},
		Nodes: []domain.NodeDef{
			{
				ID:         "PROJ_1",
				Kind:       "Calculation:ProjectionView",
				Attributes: []string{"MANDT", "BUKRS"},
				Inputs: []domain.InputDef{
					{SourceNode: "#BSEG", Mappings: []domain.MappingPair{
						{Source: "MANDT", Target: "MANDT"},
						{Source: "BUKRS", Target: "BUKRS"},
					}},
				},
				Filter: "\"BUKRS\" = '1000'",
			},
			{
				ID:   "JOIN_1",
				Kind: "Calculation:JoinView",
				Attributes: []string{
					"MANDT", "BUKRS",
				},
				JoinType: "inner",
				Inputs: []domain.InputDef{
					{SourceNode: "#PROJ_1", Mappings: []domain.MappingPair{
						{Source: "MANDT", Target: "MANDT"},
						{Source: "BUKRS", Target: "BUKRS"},
					}},
				},
			},
		},
	}

	g, err := (Builder{}).Build(view)
	require.NoError(t, err)

	assert.Equal(t, "CV_TEST", g.ID)
	assert.Equal(t, 3, g.NodeCount())

	bseg, ok := g.Node("BSEG")
	require.True(t, ok)
	assert.Equal(t, domain.KindDataSource, bseg.Kind)
	assert.Equal(t, "SAPHANADB", bseg.Metadata["schema"])

	proj, ok := g.Node("PROJ_1")
	require.True(t, ok)
	assert.Equal(t, domain.KindProjection, proj.Kind)
	assert.ElementsMatch(t, []string{"MANDT", "BUKRS"}, proj.Fields.Sorted())
	require.Len(t, proj.Filters, 1)
	assert.Equal(t, "SQL", proj.Filters[0].Language)

	join, ok := g.Node("JOIN_1")
	require.True(t, ok)
	assert.Equal(t, domain.KindJoin, join.Kind)
	assert.Equal(t, "inner", join.Metadata["join_type"])

	// The leading # on input refs is stripped; edges use canonical ids.
	require.Len(t, g.Edges(), 2)
	assert.Equal(t, []string{"BSEG"}, g.DependenciesOf("PROJ_1"))
	assert.Equal(t, []string{"PROJ_1"}, g.DependenciesOf("JOIN_1"))
	assert.Equal(t, domain.EdgeJoin, g.EdgesInto("JOIN_1")[0].Kind)
}

func TestBuildFieldInference(t *testing.T) {
	view := &domain.ViewDefinition{
		ID: "CV_INFER",
		DataSources: []domain.DataSourceDef{
			{ID: "SRC", Type: "DATA_BASE_TABLE", Table: "SRC", UsesAllColumns: true},
		},
		Nodes: []domain.NodeDef{
			{
				ID:         "P1",
				Kind:       "Calculation:ProjectionView",
				Attributes: []string{"A", "B"},
				Inputs:     []domain.InputDef{{SourceNode: "#SRC"}},
			},
			{
				ID:   "OUT",
				Kind: "Calculation:AggregationView",
				// No declared attributes: fields are inferred from P1,
				// applying the edge's rename.
				Inputs: []domain.InputDef{
					{SourceNode: "#P1", Mappings: []domain.MappingPair{{Source: "A", Target: "A2"}}},
				},
			},
		},
	}

	g, err := (Builder{}).Build(view)
	require.NoError(t, err)

	src, _ := g.Node("SRC")
	assert.Zero(t, src.Fields.Len(), "all-columns datasource stays unenumerated")

	out, _ := g.Node("OUT")
	assert.ElementsMatch(t, []string{"A2", "B"}, out.Fields.Sorted())
}

func TestBuildCalculatedColumnsJoinFieldSet(t *testing.T) {
	view := &domain.ViewDefinition{
		ID: "CV_CC",
		Nodes: []domain.NodeDef{
			{
				ID:         "P1",
				Kind:       "Calculation:ProjectionView",
				Attributes: []string{"AMOUNT"},
				CalculatedColumns: []domain.CalculatedColumn{
					{ID: "AMOUNT_EUR", Datatype: "DECIMAL", Formula: "\"AMOUNT\" * 0.9"},
				},
			},
		},
	}

	g, err := (Builder{}).Build(view)
	require.NoError(t, err)
	p1, _ := g.Node("P1")
	assert.ElementsMatch(t, []string{"AMOUNT", "AMOUNT_EUR"}, p1.Fields.Sorted())
	assert.True(t, p1.HasCalculatedColumn("AMOUNT_EUR"))
}

func TestBuildUnresolvedInputIsError(t *testing.T) {
	view := &domain.ViewDefinition{
		ID: "CV_BAD",
		Nodes: []domain.NodeDef{
			{ID: "P1", Kind: "Calculation:ProjectionView", Inputs: []domain.InputDef{{SourceNode: "#GHOST"}}},
		},
	}

	_, err := (Builder{}).Build(view)
	var serr *domain.StructuralError
	require.ErrorAs(t, err, &serr)
}
