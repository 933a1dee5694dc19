package transform

import (
	"log/slog"
	"sort"
	"strings"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
)

// Result enumerates everything a rewrite did: the structured event log, the
// node-id renames applied, the transformed sources discovered for rename
// propagation, and the per-field provenance index built from the rewritten
// edges.
type Result struct {
	Events  domain.Events
	Renames map[string]string
	// TransformedSources maps a node id to the old->new field renames it
	// introduces relative to its upstream.
	TransformedSources map[string]map[string]string
	// FieldLineage maps target node -> target field -> source node.
	FieldLineage map[string]map[string]string
}

// Transformer applies rewrite specifications to graphs. Phases run in a
// fixed order; later phases depend on earlier ones having stabilized ids.
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer returns a transformer logging through the given logger.
func NewTransformer(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{logger: logger}
}

// Apply mutates g according to spec. A spec entry naming an unknown node is
// skipped with a warning event; only structural corruption returns an error.
func (t *Transformer) Apply(g *graph.Graph, spec *Spec) (*Result, error) {
	res := &Result{
		Renames:            map[string]string{},
		TransformedSources: map[string]map[string]string{},
		FieldLineage:       map[string]map[string]string{},
	}

	t.deleteNodes(g, spec, res)
	t.addDataSources(g, spec, res)
	if err := t.addJoins(g, spec, res); err != nil {
		return nil, err
	}
	if err := t.rebuildNodes(g, spec, res); err != nil {
		return nil, err
	}
	g.RewriteReferences(res.Renames)
	t.buildFieldLineage(g, res)
	t.extractTransformedSources(g, spec, res)
	res.Events = append(res.Events, PropagateRenames(g, res.TransformedSources)...)
	t.updateNodes(g, spec, res)
	if spec.InputParameters != nil {
		g.Parameters = parametersFrom(spec.InputParameters)
	}

	t.logger.Debug("rewrite applied",
		"deleted", len(spec.DeleteNodes),
		"added", len(spec.AddNodes),
		"joins", len(spec.AddJoins),
		"rebuilt", len(spec.RebuildNodes),
		"warnings", len(res.Events.Warnings()))
	return res, nil
}

func (t *Transformer) deleteNodes(g *graph.Graph, spec *Spec, res *Result) {
	for _, id := range spec.DeleteNodes {
		n, ok := g.Resolve(id)
		if !ok {
			res.Events.Warnf(domain.CodeUnresolvedReference, id, "DELETE_NODES: node %q does not exist, skipped", id)
			continue
		}
		g.RemoveNode(n.ID)
		res.Events.Infof(domain.CodeNodeDeleted, n.ID, "deleted node %q", n.ID)
	}
}

func (t *Transformer) addDataSources(g *graph.Graph, spec *Spec, res *Result) {
	for _, a := range spec.AddNodes {
		if g.HasNode(a.NodeID) {
			res.Events.Warnf(domain.CodeSkipped, a.NodeID, "ADD_NODES: node %q already exists, skipped", a.NodeID)
			continue
		}
		n := domain.NewNode(a.NodeID, domain.KindDataSource)
		n.Metadata["type"] = "DATA_BASE_TABLE"
		if a.SchemaName != "" {
			n.Metadata["schema"] = a.SchemaName
		}
		if a.TableName != "" {
			n.Metadata["table"] = a.TableName
		}
		for field := range a.FieldSources {
			n.Fields.Add(field)
		}
		g.AddNode(n)
		res.Events.Infof(domain.CodeNodeAdded, a.NodeID, "added datasource %q", a.NodeID)
	}
}

func (t *Transformer) addJoins(g *graph.Graph, spec *Spec, res *Result) error {
	for _, j := range spec.AddJoins {
		left, lok := g.Resolve(j.LeftNode)
		right, rok := g.Resolve(j.RightNode)
		if !lok || !rok {
			missing := j.LeftNode
			if lok {
				missing = j.RightNode
			}
			res.Events.Warnf(domain.CodeUnresolvedReference, j.JoinID, "ADD_JOINS %s: node %q does not exist, skipped", j.JoinID, missing)
			continue
		}
		join := domain.NewNode(j.JoinID, domain.KindJoin)
		if j.Type != "" {
			join.Metadata["join_type"] = j.Type
		}
		leftMap := domain.NewFieldMap()
		rightMap := domain.NewFieldMap()
		for _, c := range j.Conditions {
			lf, rf, ok := splitCondition(c.FieldMapping)
			if !ok {
				res.Events.Warnf(domain.CodeSkipped, j.JoinID, "ADD_JOINS %s: malformed condition %q", j.JoinID, c.FieldMapping)
				continue
			}
			join.Fields.Add(lf)
			join.Fields.Add(rf)
			leftMap.Set(lf, lf)
			rightMap.Set(rf, rf)
		}
		g.AddNode(join)
		le := domain.NewEdge(left.ID, join.ID, domain.EdgeJoin)
		le.Mappings = leftMap
		re := domain.NewEdge(right.ID, join.ID, domain.EdgeJoin)
		re.Mappings = rightMap
		if err := g.AddEdge(le); err != nil {
			return err
		}
		if err := g.AddEdge(re); err != nil {
			return err
		}
		res.Events.Infof(domain.CodeNodeAdded, j.JoinID, "added join %q over %q and %q", j.JoinID, left.ID, right.ID)
	}
	return nil
}

func (t *Transformer) rebuildNodes(g *graph.Graph, spec *Spec, res *Result) error {
	for _, r := range spec.RebuildNodes {
		orig, ok := g.Resolve(r.OriginalNode)
		if !ok {
			res.Events.Warnf(domain.CodeUnresolvedReference, r.OriginalNode, "REBUILD_NODES: node %q does not exist, skipped", r.OriginalNode)
			continue
		}
		origID := orig.ID
		kind := orig.Kind
		if r.Type != "" {
			kind = domain.ParseNodeKind(r.Type)
		}

		// Consumers of the original keep their edges; they are re-attached
		// to the replacement below.
		outgoing := g.EdgesFrom(origID)
		g.RemoveNode(origID)

		n := domain.NewNode(r.NewNode, kind)
		for _, inner := range r.InputMappings {
			for target := range inner {
				n.Fields.Add(target)
			}
		}
		g.AddNode(n)

		for _, src := range sortedKeys(r.InputMappings) {
			srcNode, ok := g.Resolve(strings.TrimPrefix(src, "#"))
			if !ok {
				res.Events.Warnf(domain.CodeUnresolvedReference, r.NewNode, "REBUILD_NODES %s: input node %q does not exist, skipped", r.NewNode, src)
				continue
			}
			e := domain.NewEdge(srcNode.ID, n.ID, domain.EdgeInput)
			inner := r.InputMappings[src]
			for _, target := range sortedKeys(inner) {
				e.Mappings.Set(bareField(inner[target]), target)
			}
			if err := g.AddEdge(e); err != nil {
				return err
			}
		}

		for _, e := range outgoing {
			e.Source = n.ID
			if !g.HasNode(e.Target) {
				res.Events.Warnf(domain.CodeDanglingReference, e.Target, "REBUILD_NODES %s: consumer %q no longer exists", r.NewNode, e.Target)
				continue
			}
			if err := g.AddEdge(e); err != nil {
				return err
			}
		}

		if origID != r.NewNode {
			res.Renames[origID] = r.NewNode
		}
		res.Events.Infof(domain.CodeNodeRebuilt, r.NewNode, "rebuilt node %q as %q", origID, r.NewNode)
	}
	return nil
}

func (t *Transformer) buildFieldLineage(g *graph.Graph, res *Result) {
	for _, e := range g.Edges() {
		for pair := e.Mappings.Oldest(); pair != nil; pair = pair.Next() {
			m := res.FieldLineage[e.Target]
			if m == nil {
				m = map[string]string{}
				res.FieldLineage[e.Target] = m
			}
			m[pair.Value] = e.Source
		}
	}
}

// extractTransformedSources detects which added or rebuilt nodes introduce a
// field rename: a declared field whose name differs from the bare name of
// the upstream field it was sourced from.
func (t *Transformer) extractTransformedSources(g *graph.Graph, spec *Spec, res *Result) {
	record := func(node, old, nu string) {
		m := res.TransformedSources[node]
		if m == nil {
			m = map[string]string{}
			res.TransformedSources[node] = m
		}
		m[old] = nu
	}
	for _, a := range spec.AddNodes {
		if !g.HasNode(a.NodeID) {
			continue
		}
		for target, source := range a.FieldSources {
			if old := bareField(source); old != target {
				record(a.NodeID, old, target)
			}
		}
	}
	for _, r := range spec.RebuildNodes {
		if !g.HasNode(r.NewNode) {
			continue
		}
		for _, inner := range r.InputMappings {
			for target, source := range inner {
				if old := bareField(source); old != target {
					record(r.NewNode, old, target)
				}
			}
		}
	}
}

func (t *Transformer) updateNodes(g *graph.Graph, spec *Spec, res *Result) {
	for _, u := range spec.UpdateNodes {
		n, ok := g.Resolve(u.NodeID)
		if !ok {
			res.Events.Warnf(domain.CodeUnresolvedReference, u.NodeID, "UPDATE_NODES: node %q does not exist, skipped", u.NodeID)
			continue
		}
		for _, f := range u.AddFields {
			n.Fields.Add(f)
		}
	}
}

// PropagateRenames pushes field renames from transformed source nodes to
// every node transitively reachable through dependents. Scope is discovered
// first (BFS over dependents), then processed in topological order so a node
// is never rewritten before all of its relevant upstream renames have
// landed. A transformed source's own fields already carry the new names;
// downstream, a rename cascades through identity mappings and unmapped
// passthrough fields, while an explicit downstream rename absorbs it.
// Re-running with no sources changes nothing.
func PropagateRenames(g *graph.Graph, sources map[string]map[string]string) domain.Events {
	var events domain.Events
	if len(sources) == 0 {
		return events
	}

	affected := map[string]bool{}
	var queue []string
	for _, id := range sortedKeys(sources) {
		affected[id] = true
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range g.DependentsOf(id) {
			if !affected[dep] {
				affected[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	pending := map[string]map[string]string{}
	for id, m := range sources {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		pending[id] = cp
	}

	order, _ := g.TopologicalOrder()
	for _, id := range order {
		if !affected[id] {
			continue
		}
		ren := pending[id]
		if len(ren) == 0 {
			continue
		}
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		if sources[id] == nil {
			for _, old := range sortedKeys(ren) {
				nu := ren[old]
				if node.Fields.Has(old) {
					node.Fields.Remove(old)
					node.Fields.Add(nu)
					events = append(events, domain.Event{
						Severity: domain.SeverityInfo,
						Code:     domain.CodeFieldRenamed,
						Node:     id,
						Field:    nu,
						Message:  "renamed field " + old + " to " + nu,
					})
				}
			}
		}
		for _, e := range g.EdgesFrom(id) {
			cascadeEdge(g, e, ren, pending)
		}
	}
	return events
}

// cascadeEdge rewrites an edge's mapping keys for the source node's renames
// and records cascading renames at the consumer: an identity pair renames
// the consumer field, an unmapped passthrough field renames too, while an
// explicit mapping to a different target leaves the consumer unaffected.
func cascadeEdge(g *graph.Graph, e *domain.Edge, ren map[string]string, pending map[string]map[string]string) {
	mapped := map[string]bool{}
	out := domain.NewFieldMap()
	for pair := e.Mappings.Oldest(); pair != nil; pair = pair.Next() {
		src, tgt := pair.Key, pair.Value
		mapped[src] = true
		if nu, ok := ren[src]; ok {
			if tgt == src {
				tgt = nu
				addPending(pending, e.Target, src, nu)
			}
			src = nu
		}
		out.Set(src, tgt)
	}
	e.Mappings = out

	consumer, ok := g.Node(e.Target)
	if !ok {
		return
	}
	for old, nu := range ren {
		if !mapped[old] && consumer.Fields.Has(old) {
			addPending(pending, e.Target, old, nu)
		}
	}
}

func addPending(pending map[string]map[string]string, node, old, nu string) {
	m := pending[node]
	if m == nil {
		m = map[string]string{}
		pending[node] = m
	}
	m[old] = nu
}

func parametersFrom(specs []ParameterSpec) []domain.InputParameter {
	out := make([]domain.InputParameter, 0, len(specs))
	for _, p := range specs {
		out = append(out, domain.InputParameter{
			ID:            p.ID,
			IsParameter:   p.IsParameter,
			Description:   p.Description,
			Datatype:      p.Datatype,
			Length:        p.Length,
			Mandatory:     p.Mandatory,
			SelectionType: p.SelectionType,
		})
	}
	return out
}

// splitCondition parses "LEFT.field = RIGHT.field" into the two bare field
// names, taking the trailing identifier after the last dot on each side.
func splitCondition(cond string) (left, right string, ok bool) {
	parts := strings.SplitN(cond, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	left = bareField(strings.TrimSpace(parts[0]))
	right = bareField(strings.TrimSpace(parts[1]))
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// bareField strips a "TABLE." qualifier, keeping the trailing identifier.
func bareField(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
