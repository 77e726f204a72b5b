package graph

// Op is the mutation operation.
type Op uint8

const (
	OpAdd Op = iota
	OpRemove
	OpUpdate
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// EntityKind distinguishes vertex from edge mutations.
type EntityKind uint8

const (
	EntityVertex EntityKind = iota
	EntityEdge
)

// String returns the entity kind name.
func (k EntityKind) String() string {
	if k == EntityEdge {
		return "edge"
	}

	return "vertex"
}

/*
Mutation is one atomic change in a Patch: AddVertex, AddEdge, RemoveVertex,
RemoveEdge, or UpdateProperties. Entities are addressed by ident, never by
store id; ids travel along when known so the store layer can match on them.
Updates carry only the changed keys (Set) and removed keys (Removed), a
shallow key-level diff rather than a full property replacement.
*/
type Mutation struct {
	Op     Op
	Entity EntityKind

	Ident string
	Label string

	// Edge endpoints, by ident; endpoint labels are resolved from the
	// target graph when available because the store's MATCH clauses
	// want them.
	StartIdent string
	EndIdent   string
	StartLabel string
	EndLabel   string

	// Full property map for additions.
	Properties Properties

	// Key-level delta for updates.
	Set     Properties
	Removed []string

	// Store ids, zero when unknown.
	ID      int64
	StartID int64
	EndID   int64
}

// IsVertex reports whether the mutation targets a vertex.
func (m Mutation) IsVertex() bool { return m.Entity == EntityVertex }

// IsEdge reports whether the mutation targets an edge.
func (m Mutation) IsEdge() bool { return m.Entity == EntityEdge }

func addVertexMutation(v *Vertex) Mutation {
	return Mutation{
		Op:         OpAdd,
		Entity:     EntityVertex,
		Ident:      v.Ident(),
		Label:      v.Label(),
		Properties: v.Properties().Clone(),
		ID:         v.ID(),
	}
}

func removeVertexMutation(v *Vertex) Mutation {
	return Mutation{
		Op:     OpRemove,
		Entity: EntityVertex,
		Ident:  v.Ident(),
		Label:  v.Label(),
		ID:     v.ID(),
	}
}

func updateVertexMutation(v *Vertex, set Properties, removed []string) Mutation {
	return Mutation{
		Op:      OpUpdate,
		Entity:  EntityVertex,
		Ident:   v.Ident(),
		Label:   v.Label(),
		Set:     set,
		Removed: removed,
		ID:      v.ID(),
	}
}

func addEdgeMutation(e *Edge, startLabel, endLabel string) Mutation {
	return Mutation{
		Op:         OpAdd,
		Entity:     EntityEdge,
		Ident:      e.Ident(),
		Label:      e.Label(),
		StartIdent: e.StartIdent(),
		EndIdent:   e.EndIdent(),
		StartLabel: startLabel,
		EndLabel:   endLabel,
		Properties: e.Properties().Clone(),
		ID:         e.ID(),
		StartID:    e.StartID(),
		EndID:      e.EndID(),
	}
}

func removeEdgeMutation(e *Edge) Mutation {
	return Mutation{
		Op:         OpRemove,
		Entity:     EntityEdge,
		Ident:      e.Ident(),
		Label:      e.Label(),
		StartIdent: e.StartIdent(),
		EndIdent:   e.EndIdent(),
		ID:         e.ID(),
		StartID:    e.StartID(),
		EndID:      e.EndID(),
	}
}

func updateEdgeMutation(e *Edge, startLabel, endLabel string, set Properties, removed []string) Mutation {
	return Mutation{
		Op:         OpUpdate,
		Entity:     EntityEdge,
		Ident:      e.Ident(),
		Label:      e.Label(),
		StartIdent: e.StartIdent(),
		EndIdent:   e.EndIdent(),
		StartLabel: startLabel,
		EndLabel:   endLabel,
		Set:        set,
		Removed:    removed,
		ID:         e.ID(),
		StartID:    e.StartID(),
		EndID:      e.EndID(),
	}
}
