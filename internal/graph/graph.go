// Package graph owns the dependency-graph representation of a calculation
// view: a string-id-keyed node arena, edges referencing nodes by id, derived
// adjacency indices, and topological ordering.
package graph

import (
	"sort"
	"strings"

	"cvmigrate/internal/domain"
)

// Graph owns all nodes and edges of one view. Nodes and edges reference each
// other only by id, so mutation never invalidates outstanding references;
// a stale id fails lookup and callers treat that as a recoverable miss.
type Graph struct {
	ID          string
	Description string
	Parameters  []domain.InputParameter

	nodes   map[string]*domain.Node
	edges   []*domain.Edge
	forward map[string][]string // source id -> target ids
	reverse map[string][]string // target id -> source ids
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   map[string]*domain.Node{},
		forward: map[string][]string{},
		reverse: map[string][]string{},
	}
}

// AddNode inserts a node, replacing any node with the same id.
func (g *Graph) AddNode(n *domain.Node) {
	g.nodes[n.ID] = n
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Resolve looks up a node id tolerating the leading-# reference convention
// used by the view format: "#NODE" and "NODE" address the same node.
func (g *Graph) Resolve(id string) (*domain.Node, bool) {
	if n, ok := g.nodes[id]; ok {
		return n, true
	}
	if trimmed := strings.TrimPrefix(id, "#"); trimmed != id {
		if n, ok := g.nodes[trimmed]; ok {
			return n, true
		}
	} else if n, ok := g.nodes["#"+id]; ok {
		return n, true
	}
	return nil, false
}

// HasNode reports whether the id resolves to a node.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Resolve(id)
	return ok
}

// NodeIDs returns all node ids in lexical order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Edges returns the edge list in insertion order. Callers must not reorder
// the slice; mutating the edges themselves is allowed.
func (g *Graph) Edges() []*domain.Edge { return g.edges }

// AddEdge inserts an edge after validating that both endpoints exist. A
// missing endpoint is a structural defect, not a warning.
func (g *Graph) AddEdge(e *domain.Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return domain.ErrStructural("edge %s -> %s: source node does not exist", e.Source, e.Target)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return domain.ErrStructural("edge %s -> %s: target node does not exist", e.Source, e.Target)
	}
	if e.Mappings == nil {
		e.Mappings = domain.NewFieldMap()
	}
	g.edges = append(g.edges, e)
	g.forward[e.Source] = appendUnique(g.forward[e.Source], e.Target)
	g.reverse[e.Target] = appendUnique(g.reverse[e.Target], e.Source)
	src := g.nodes[e.Source]
	tgt := g.nodes[e.Target]
	src.Dependents = appendUnique(src.Dependents, e.Target)
	tgt.Dependencies = appendUnique(tgt.Dependencies, e.Source)
	return nil
}

// RemoveNode deletes a node, every edge touching it, and every other node's
// adjacency entry for it. A partial deletion is a defect, so adjacency is
// rebuilt from the surviving edges rather than patched.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.rebuildAdjacency()
	return true
}

// RenameNode rewrites a node's id and every edge endpoint referencing it.
func (g *Graph) RenameNode(oldID, newID string) error {
	n, ok := g.nodes[oldID]
	if !ok {
		return domain.ErrNotFound("node %q does not exist", oldID)
	}
	if oldID == newID {
		return nil
	}
	if _, exists := g.nodes[newID]; exists {
		return domain.ErrValidation("cannot rename %q: node %q already exists", oldID, newID)
	}
	delete(g.nodes, oldID)
	n.ID = newID
	g.nodes[newID] = n
	for _, e := range g.edges {
		if e.Source == oldID {
			e.Source = newID
		}
		if e.Target == oldID {
			e.Target = newID
		}
	}
	g.rebuildAdjacency()
	return nil
}

// DependenciesOf returns the ids of nodes the given node consumes.
func (g *Graph) DependenciesOf(id string) []string {
	return append([]string(nil), g.reverse[id]...)
}

// DependentsOf returns the ids of nodes consuming the given node.
func (g *Graph) DependentsOf(id string) []string {
	return append([]string(nil), g.forward[id]...)
}

// EdgesInto returns the edges whose target is the given node.
func (g *Graph) EdgesInto(id string) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns the edges whose source is the given node.
func (g *Graph) EdgesFrom(id string) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// TopologicalOrder returns all node ids with every dependency before its
// dependents, using Kahn's algorithm. A valid view is acyclic; if a cycle
// exists anyway the sort must not loop forever or drop nodes, so it emits
// an arbitrary (lexically smallest) remaining node and continues. The
// second return reports whether that fallback fired.
func (g *Graph) TopologicalOrder() ([]string, bool) {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.reverse[id])
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	emitted := make(map[string]bool, len(g.nodes))
	cyclic := false

	emit := func(id string) {
		order = append(order, id)
		emitted[id] = true
		for _, dep := range g.forward[id] {
			if emitted[dep] {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	for len(order) < len(g.nodes) {
		if len(ready) == 0 {
			// Cycle: force progress by emitting the smallest remaining node.
			cyclic = true
			var remaining []string
			for id := range g.nodes {
				if !emitted[id] {
					remaining = append(remaining, id)
				}
			}
			sort.Strings(remaining)
			emit(remaining[0])
			continue
		}
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		if emitted[next] {
			continue
		}
		emit(next)
	}
	return order, cyclic
}

// RewriteReferences rewrites edge endpoints according to the rename map and
// rebuilds adjacency. Used as the global fix-up after node replacements, so
// consumers still pointing at a replaced id follow it to the new one.
func (g *Graph) RewriteReferences(renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	for _, e := range g.edges {
		if nu, ok := renames[e.Source]; ok {
			e.Source = nu
		}
		if nu, ok := renames[e.Target]; ok {
			e.Target = nu
		}
	}
	g.rebuildAdjacency()
}

// Clone deep-copies the graph, so a transformer can work on a private copy.
func (g *Graph) Clone() *Graph {
	out := New()
	out.ID = g.ID
	out.Description = g.Description
	out.Parameters = append([]domain.InputParameter(nil), g.Parameters...)
	for id, n := range g.nodes {
		out.nodes[id] = n.Clone()
	}
	for _, e := range g.edges {
		out.edges = append(out.edges, e.Clone())
	}
	out.rebuildAdjacency()
	return out
}

// rebuildAdjacency recomputes forward/reverse indices and every node's
// Dependencies/Dependents from the edge list. Edges are the single source
// of truth for adjacency.
func (g *Graph) rebuildAdjacency() {
	g.forward = make(map[string][]string, len(g.nodes))
	g.reverse = make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		n.Dependencies = nil
		n.Dependents = nil
	}
	for _, e := range g.edges {
		g.forward[e.Source] = appendUnique(g.forward[e.Source], e.Target)
		g.reverse[e.Target] = appendUnique(g.reverse[e.Target], e.Source)
		if src, ok := g.nodes[e.Source]; ok {
			src.Dependents = appendUnique(src.Dependents, e.Target)
		}
		if tgt, ok := g.nodes[e.Target]; ok {
			tgt.Dependencies = appendUnique(tgt.Dependencies, e.Source)
		}
	}
}

func appendUnique(list []string, item string) []string {
	for _, it := range list {
		if it == item {
			return list
		}
	}
	return append(list, item)
}
