package remap

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
)

func splitResult(source string, targets map[string][][2]string, missing []string) domain.TableMappingResult {
	res := domain.TableMappingResult{SourceTable: source, MissingFields: missing}
	var names []string
	for tgt := range targets {
		names = append(names, tgt)
	}
	sort.Strings(names)
	for _, tgt := range names {
		res.TargetTables = append(res.TargetTables, tgt)
		for _, p := range targets[tgt] {
			res.MappedFields = append(res.MappedFields, domain.FieldMapping{
				SourceTable: source, SourceField: p[0], TargetTable: tgt, TargetField: p[1],
			})
		}
	}
	if len(missing) > 0 {
		res.Case = domain.CaseFragmented
		res.IsFragmented = true
	} else if len(res.TargetTables) > 1 {
		res.Case = domain.CaseSplit
	} else {
		res.Case = domain.CaseSubstitution
	}
	return res
}

func TestRewriteSpecJoinChain(t *testing.T) {
	res := domain.TableMappingResult{
		Case:        domain.CaseSplit,
		SourceTable: "BSEG",
		TargetTables: []string{
			"T1", "T2", "T3",
		},
		MappedFields: []domain.FieldMapping{
			{SourceTable: "BSEG", SourceField: "MANDT", TargetTable: "T1", TargetField: "MANDT"},
			{SourceTable: "BSEG", SourceField: "BUKRS", TargetTable: "T2", TargetField: "MANDT"},
			{SourceTable: "BSEG", SourceField: "HKONT", TargetTable: "T3", TargetField: "MANDT"},
		},
	}

	spec := RewriteSpec([]domain.TableMappingResult{res})

	assert.Equal(t, []string{"BSEG"}, spec.DeleteNodes)
	require.Len(t, spec.AddNodes, 3)

	// N targets yield N-1 joins, chained left-deep.
	require.Len(t, spec.AddJoins, 2)
	assert.Equal(t, "JOIN_T1_T2", spec.AddJoins[0].JoinID)
	assert.Equal(t, "T1", spec.AddJoins[0].LeftNode)
	assert.Equal(t, "T2", spec.AddJoins[0].RightNode)
	assert.Equal(t, "JOIN_T1_T2_T3", spec.AddJoins[1].JoinID)
	assert.Equal(t, "JOIN_T1_T2", spec.AddJoins[1].LeftNode)
	assert.Equal(t, "T3", spec.AddJoins[1].RightNode)

	// Shared fields become join conditions.
	require.Len(t, spec.AddJoins[0].Conditions, 1)
	assert.Equal(t, "T1.MANDT = T2.MANDT", spec.AddJoins[0].Conditions[0].FieldMapping)

	require.NoError(t, spec.Validate())
}

func TestRewriteSpecFragmentedAddsMissingNode(t *testing.T) {
	res := splitResult("BSEG",
		map[string][][2]string{"ACDOCA": {{"MANDT", "RCLNT"}}},
		[]string{"ZZCUST"})

	spec := RewriteSpec([]domain.TableMappingResult{res})

	var ids []string
	for _, a := range spec.AddNodes {
		ids = append(ids, a.NodeID)
	}
	assert.Contains(t, ids, "MISSING_BSEG")
	require.Len(t, spec.AddJoins, 1)
	assert.Equal(t, "MISSING_BSEG", spec.AddJoins[0].RightNode)
}

// substitutionGraph is BSEG {MANDT, BUKRS} feeding AGG {MANDT, BUKRS}
// through identity mappings.
func substitutionGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	bseg := domain.NewNode("BSEG", domain.KindDataSource)
	bseg.Metadata["table"] = "BSEG"
	bseg.Fields.Add("MANDT")
	bseg.Fields.Add("BUKRS")
	agg := domain.NewNode("AGG", domain.KindAggregation)
	agg.Fields.Add("MANDT")
	agg.Fields.Add("BUKRS")
	g.AddNode(bseg)
	g.AddNode(agg)
	e := domain.NewEdge("BSEG", "AGG", domain.EdgeInput)
	e.Mappings.Set("MANDT", "MANDT")
	e.Mappings.Set("BUKRS", "BUKRS")
	require.NoError(t, g.AddEdge(e))
	return g
}

func TestApplySubstitutionRenamesAndPropagates(t *testing.T) {
	g := substitutionGraph(t)
	res := splitResult("BSEG", map[string][][2]string{
		"ACDOCA": {{"MANDT", "RCLNT"}, {"BUKRS", "RBUKRS"}},
	}, nil)

	events, err := Apply(g, []domain.TableMappingResult{res})
	require.NoError(t, err)

	_, ok := g.Node("BSEG")
	assert.False(t, ok)
	acdoca, ok := g.Node("ACDOCA")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"RCLNT", "RBUKRS"}, acdoca.Fields.Sorted())

	// The rename propagated through the identity mappings into AGG.
	agg, _ := g.Node("AGG")
	assert.ElementsMatch(t, []string{"RCLNT", "RBUKRS"}, agg.Fields.Sorted())
	tgt, ok := g.Edges()[0].Mappings.Get("RBUKRS")
	require.True(t, ok)
	assert.Equal(t, "RBUKRS", tgt)

	assert.True(t, events.HasCode(domain.CodeNodeSubstituted))
}

func TestApplySplitSynthesizesJoinChain(t *testing.T) {
	g := substitutionGraph(t)
	res := splitResult("BSEG", map[string][][2]string{
		"ACDOCA":    {{"MANDT", "MANDT"}},
		"FAGLFLEXT": {{"BUKRS", "MANDT"}},
	}, nil)

	events, err := Apply(g, []domain.TableMappingResult{res})
	require.NoError(t, err)

	_, ok := g.Node("BSEG")
	assert.False(t, ok)
	join, ok := g.Node("JOIN_ACDOCA_FAGLFLEXT")
	require.True(t, ok)
	assert.Equal(t, domain.KindJoin, join.Kind)

	// The final join is the unique sink of the chain: both targets feed it
	// and only the original consumer hangs off it.
	assert.Equal(t, []string{"JOIN_ACDOCA_FAGLFLEXT"}, g.DependentsOf("ACDOCA"))
	assert.Equal(t, []string{"JOIN_ACDOCA_FAGLFLEXT"}, g.DependentsOf("FAGLFLEXT"))
	assert.Equal(t, []string{"AGG"}, g.DependentsOf("JOIN_ACDOCA_FAGLFLEXT"))
	assert.True(t, events.HasCode(domain.CodeTableSplit))
}

func TestApplyDeprecatedWarnsDanglingConsumers(t *testing.T) {
	g := substitutionGraph(t)
	res := domain.TableMappingResult{Case: domain.CaseDeprecated, SourceTable: "BSEG"}

	events, err := Apply(g, []domain.TableMappingResult{res})
	require.NoError(t, err)

	_, ok := g.Node("BSEG")
	assert.False(t, ok)
	warnings := events.WithCode(domain.CodeDanglingReference)
	require.Len(t, warnings, 1)
	assert.Equal(t, "AGG", warnings[0].Node)
}

func TestApplyUnknownTableSkipped(t *testing.T) {
	g := substitutionGraph(t)
	res := domain.TableMappingResult{Case: domain.CaseDeprecated, SourceTable: "GHOST"}

	events, err := Apply(g, []domain.TableMappingResult{res})
	require.NoError(t, err)
	assert.True(t, events.HasCode(domain.CodeUnresolvedReference))
	assert.Equal(t, 2, g.NodeCount())
}
