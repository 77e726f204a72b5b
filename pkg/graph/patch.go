package graph

import (
	"fmt"
	"sort"
)

/*
Patch is the ordered, minimal mutation set transforming one graph snapshot
into another. Mutations run FIFO in the order Diff emits them:

 1. edge removals
 2. vertex removals
 3. vertex additions
 4. vertex property updates
 5. edge additions
 6. edge property updates

Edge removals referencing a vertex always precede that vertex's removal,
and every vertex an edge references exists before the edge is added, so the
store never sees a dangling reference mid-apply.
*/
type Patch struct {
	mutations []Mutation
}

// Mutations returns the ordered mutation list.
func (p *Patch) Mutations() []Mutation {
	return append([]Mutation(nil), p.mutations...)
}

// Len returns the number of mutations.
func (p *Patch) Len() int { return len(p.mutations) }

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool { return len(p.mutations) == 0 }

/*
Diff computes the patch transforming source into target. Entities are
matched by ident, never by store id. Label is treated as part of identity:
two entities sharing an ident always diff property-wise only, regardless of
a label mismatch. Emission order follows collection insertion order, so a
diff over the same pair of graphs is deterministic.
*/
func Diff(source, target *Graph) *Patch {
	patch := &Patch{}

	sourceVertices := source.Vertices().All()
	targetVertices := target.Vertices().All()
	sourceEdges := source.Edges().All()
	targetEdges := target.Edges().All()

	sourceVertexByIdent := make(map[string]*Vertex, len(sourceVertices))
	for _, v := range sourceVertices {
		sourceVertexByIdent[v.Ident()] = v
	}
	targetVertexByIdent := make(map[string]*Vertex, len(targetVertices))
	for _, v := range targetVertices {
		targetVertexByIdent[v.Ident()] = v
	}
	sourceEdgeByIdent := make(map[string]*Edge, len(sourceEdges))
	for _, e := range sourceEdges {
		sourceEdgeByIdent[e.Ident()] = e
	}
	targetEdgeByIdent := make(map[string]*Edge, len(targetEdges))
	for _, e := range targetEdges {
		targetEdgeByIdent[e.Ident()] = e
	}

	endpointLabel := func(identValue string) string {
		if v, ok := targetVertexByIdent[identValue]; ok {
			return v.Label()
		}
		return ""
	}

	// 1. Edge removals: in source, absent from target.
	for _, e := range sourceEdges {
		if _, ok := targetEdgeByIdent[e.Ident()]; !ok {
			patch.mutations = append(patch.mutations, removeEdgeMutation(e))
		}
	}

	// 2. Vertex removals.
	for _, v := range sourceVertices {
		if _, ok := targetVertexByIdent[v.Ident()]; !ok {
			patch.mutations = append(patch.mutations, removeVertexMutation(v))
		}
	}

	// 3. Vertex additions: in target, absent from source.
	for _, v := range targetVertices {
		if _, ok := sourceVertexByIdent[v.Ident()]; !ok {
			patch.mutations = append(patch.mutations, addVertexMutation(v))
		}
	}

	// 4. Vertex updates: present in both with differing property maps.
	for _, v := range targetVertices {
		existing, ok := sourceVertexByIdent[v.Ident()]
		if !ok {
			continue
		}
		set, removed := diffProperties(existing.Properties(), v.Properties())
		if len(set) > 0 || len(removed) > 0 {
			patch.mutations = append(patch.mutations, updateVertexMutation(v, set, removed))
		}
	}

	// 5. Edge additions.
	for _, e := range targetEdges {
		if _, ok := sourceEdgeByIdent[e.Ident()]; !ok {
			patch.mutations = append(patch.mutations,
				addEdgeMutation(e, endpointLabel(e.StartIdent()), endpointLabel(e.EndIdent())))
		}
	}

	// 6. Edge updates.
	for _, e := range targetEdges {
		existing, ok := sourceEdgeByIdent[e.Ident()]
		if !ok {
			continue
		}
		set, removed := diffProperties(existing.Properties(), e.Properties())
		if len(set) > 0 || len(removed) > 0 {
			patch.mutations = append(patch.mutations,
				updateEdgeMutation(e, endpointLabel(e.StartIdent()), endpointLabel(e.EndIdent()), set, removed))
		}
	}

	return patch
}

// diffProperties performs the shallow, key-level property diff: set holds
// keys whose value is new or changed, removed holds keys that disappeared.
func diffProperties(source, target Properties) (set Properties, removed []string) {
	set = Properties{}
	for key, val := range target {
		existing, ok := source[key]
		if !ok || !existing.Equal(val) {
			set[key] = val.Clone()
		}
	}

	for key := range source {
		if _, ok := target[key]; !ok {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)

	return set, removed
}

/*
Apply performs the patch's mutations against g, in order, mutating it in
place. Applying is idempotent: an Add whose target already exists with
identical ident, label and properties is a no-op, as is an Update whose
delta is already in effect, so re-applying an applied patch changes
nothing.
*/
func (p *Patch) Apply(g *Graph) error {
	for _, m := range p.mutations {
		if err := applyMutation(g, m); err != nil {
			return fmt.Errorf("apply %s %s %q: %w", m.Op, m.Entity, m.Ident, err)
		}
	}

	return nil
}

func applyMutation(g *Graph, m Mutation) error {
	switch {
	case m.Op == OpRemove && m.IsEdge():
		g.RemoveEdge(m.Ident)
		return nil

	case m.Op == OpRemove && m.IsVertex():
		g.RemoveVertex(m.Ident)
		return nil

	case m.Op == OpAdd && m.IsVertex():
		if existing, ok := g.Vertices().ByIdent(m.Ident); ok {
			if existing.Label() == m.Label && existing.Properties().Equal(m.Properties) {
				return nil // already applied
			}
			existing.props = m.Properties.Clone()
			g.Vertices().invalidate()
			return nil
		}
		v, err := NewVertexWithID(m.ID, m.Label, m.Properties.Clone())
		if err != nil {
			return err
		}
		return g.AttachVertex(v)

	case m.Op == OpAdd && m.IsEdge():
		if existing, ok := g.Edges().ByIdent(m.Ident); ok {
			if existing.Label() == m.Label && existing.Properties().Equal(m.Properties) {
				return nil // already applied
			}
			existing.props = m.Properties.Clone()
			g.Edges().invalidate()
			return nil
		}
		e, err := NewEdgeWithID(m.ID, m.StartID, m.EndID, m.Label, m.Properties.Clone())
		if err != nil {
			return err
		}
		return g.AttachEdge(e)

	case m.Op == OpUpdate && m.IsVertex():
		existing, ok := g.Vertices().ByIdent(m.Ident)
		if !ok {
			return fmt.Errorf("vertex %q not found", m.Ident)
		}
		if applyDelta(existing.props, m.Set, m.Removed) {
			g.Vertices().invalidate()
		}
		return nil

	case m.Op == OpUpdate && m.IsEdge():
		existing, ok := g.Edges().ByIdent(m.Ident)
		if !ok {
			return fmt.Errorf("edge %q not found", m.Ident)
		}
		if applyDelta(existing.props, m.Set, m.Removed) {
			g.Edges().invalidate()
		}
		return nil

	default:
		return fmt.Errorf("unsupported mutation %s %s", m.Op, m.Entity)
	}
}

// applyDelta writes the changed keys and drops the removed ones, reporting
// whether anything actually changed.
func applyDelta(props Properties, set Properties, removed []string) bool {
	changed := false
	for key, val := range set {
		existing, ok := props[key]
		if !ok || !existing.Equal(val) {
			props[key] = val.Clone()
			changed = true
		}
	}

	for _, key := range removed {
		if _, ok := props[key]; ok {
			delete(props, key)
			changed = true
		}
	}

	return changed
}
