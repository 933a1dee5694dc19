package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmigrate/internal/domain"
)

func TestParseSpec(t *testing.T) {
	s := mustSpec(t, `
DELETE_NODES: [BSEG, BKPF]
ADD_NODES:
  - node_id: ACDOCA
    type: datasource
    schema_name: SAPHANADB
    table_name: ACDOCA
    field_sources:
      RCLNT: BSEG.MANDT
ADD_JOINS:
  - join_id: J1
    left_node: ACDOCA
    right_node: SKA1
    type: inner
    join_conditions:
      - field_mapping: ACDOCA.RACCT = SKA1.SAKNR
REBUILD_NODES:
  - original_node: AGG1
    new_node: AGG1_NEW
    type: aggregation
    input_mappings:
      ACDOCA:
        RBUKRS: ACDOCA.RBUKRS
UPDATE_NODES:
  - node_id: AGG1_NEW
    add_fields: [GJAHR]
INPUT_PARAMETERS:
  - id: P_YEAR
    is_parameter: true
    datatype: NVARCHAR
`)

	assert.Equal(t, []string{"BSEG", "BKPF"}, s.DeleteNodes)
	require.Len(t, s.AddNodes, 1)
	assert.Equal(t, "BSEG.MANDT", s.AddNodes[0].FieldSources["RCLNT"])
	require.Len(t, s.AddJoins, 1)
	require.Len(t, s.RebuildNodes, 1)
	assert.Equal(t, "ACDOCA.RBUKRS", s.RebuildNodes[0].InputMappings["ACDOCA"]["RBUKRS"])
	assert.False(t, s.IsEmpty())
}

func TestParseSpecEmptyDocument(t *testing.T) {
	s, err := ParseSpec(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestParseSpecRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown_top_level_key",
			doc:  "DELETE_NODE: [BSEG]",
		},
		{
			name: "unknown_entry_key",
			doc: `
ADD_NODES:
  - node_id: ACDOCA
    schema: SAPHANADB
`,
		},
		{
			name: "unsupported_add_node_type",
			doc: `
ADD_NODES:
  - node_id: ACDOCA
    type: aggregation
`,
		},
		{
			name: "unsupported_join_type",
			doc: `
ADD_JOINS:
  - join_id: J1
    left_node: A
    right_node: B
    type: cartesian
`,
		},
		{
			name: "condition_without_equality",
			doc: `
ADD_JOINS:
  - join_id: J1
    left_node: A
    right_node: B
    join_conditions:
      - field_mapping: A.F greater B.F
`,
		},
		{
			name: "rebuild_missing_new_node",
			doc: `
REBUILD_NODES:
  - original_node: AGG1
    type: aggregation
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(strings.NewReader(tt.doc))
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}
