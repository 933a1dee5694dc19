package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmigrate/internal/domain"
)

// buildGraph wires the named nodes with the given source->target edges.
func buildGraph(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, id := range nodes {
		g.AddNode(domain.NewNode(id, domain.KindOther))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(domain.NewEdge(e[0], e[1], domain.EdgeInput)))
	}
	return g
}

func TestTopologicalOrder(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []string
		edges     [][2]string
		wantCycle bool
	}{
		{
			name:  "single_node",
			nodes: []string{"A"},
		},
		{
			name:  "linear_chain",
			nodes: []string{"C", "A", "B"},
			edges: [][2]string{{"A", "B"}, {"B", "C"}},
		},
		{
			name:  "diamond",
			nodes: []string{"A", "B", "C", "D"},
			edges: [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
		},
		{
			name:      "two_node_cycle",
			nodes:     []string{"A", "B"},
			edges:     [][2]string{{"A", "B"}, {"B", "A"}},
			wantCycle: true,
		},
		{
			name:      "cycle_with_tail",
			nodes:     []string{"A", "B", "C", "D"},
			edges:     [][2]string{{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "D"}},
			wantCycle: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.nodes, tt.edges)
			order, cyclic := g.TopologicalOrder()

			assert.Equal(t, tt.wantCycle, cyclic)

			// Every node exactly once, even in the cycle fallback.
			require.Len(t, order, len(tt.nodes))
			pos := map[string]int{}
			for i, id := range order {
				_, dup := pos[id]
				require.False(t, dup, "node %s emitted twice", id)
				pos[id] = i
			}

			if !tt.wantCycle {
				for _, e := range tt.edges {
					assert.Less(t, pos[e[0]], pos[e[1]], "edge %s -> %s out of order", e[0], e[1])
				}
			}
		})
	}
}

func TestAddEdgeMissingEndpoint(t *testing.T) {
	g := New()
	g.AddNode(domain.NewNode("A", domain.KindDataSource))

	err := g.AddEdge(domain.NewEdge("A", "B", domain.EdgeInput))
	var serr *domain.StructuralError
	require.ErrorAs(t, err, &serr)

	err = g.AddEdge(domain.NewEdge("X", "A", domain.EdgeInput))
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, g.Edges())
}

func TestRemoveNodeLeavesNoDanglingState(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"A", "C"}})

	require.True(t, g.RemoveNode("B"))
	_, ok := g.Node("B")
	assert.False(t, ok)

	for _, e := range g.Edges() {
		assert.NotEqual(t, "B", e.Source)
		assert.NotEqual(t, "B", e.Target)
	}
	assert.Equal(t, []string{"A"}, g.DependenciesOf("C"))
	a, _ := g.Node("A")
	c, _ := g.Node("C")
	assert.NotContains(t, a.Dependents, "B")
	assert.NotContains(t, c.Dependencies, "B")

	assert.False(t, g.RemoveNode("B"), "second removal is a no-op")
}

func TestRenameNode(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}})

	require.NoError(t, g.RenameNode("A", "X"))
	_, ok := g.Node("A")
	assert.False(t, ok)
	n, ok := g.Node("X")
	require.True(t, ok)
	assert.Equal(t, "X", n.ID)
	assert.Equal(t, []string{"X"}, g.DependenciesOf("B"))
	assert.Equal(t, "X", g.Edges()[0].Source)

	var nf *domain.NotFoundError
	assert.ErrorAs(t, g.RenameNode("missing", "Y"), &nf)

	var ve *domain.ValidationError
	assert.ErrorAs(t, g.RenameNode("X", "B"), &ve)
}

func TestResolveHashPrefix(t *testing.T) {
	g := New()
	g.AddNode(domain.NewNode("AGG", domain.KindAggregation))

	n, ok := g.Resolve("#AGG")
	require.True(t, ok)
	assert.Equal(t, "AGG", n.ID)

	n, ok = g.Resolve("AGG")
	require.True(t, ok)
	assert.Equal(t, "AGG", n.ID)

	_, ok = g.Resolve("#NOPE")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
	a, _ := g.Node("A")
	a.Fields.Add("F1")
	g.Edges()[0].Mappings.Set("F1", "F1")

	cp := g.Clone()
	ca, _ := cp.Node("A")
	ca.Fields.Add("F2")
	cp.Edges()[0].Mappings.Set("F2", "F2")
	cp.RemoveNode("B")

	assert.False(t, a.Fields.Has("F2"))
	_, ok := g.Edges()[0].Mappings.Get("F2")
	assert.False(t, ok)
	_, ok = g.Node("B")
	assert.True(t, ok)
}
