package graph

import (
	"encoding/json"
	"fmt"
)

/*
entity carries what vertices and edges share: the store-assigned numeric id
(zero until the first successful persistence, never set by callers), a
label, and the open property map. The ident accessors are computed from the
property map at read time so a cached copy can never drift from the source
of truth.
*/
type entity struct {
	id    int64
	label string
	props Properties
}

// ID returns the store-assigned numeric id, zero when not yet persisted.
func (e *entity) ID() int64 { return e.id }

// Label returns the entity label.
func (e *entity) Label() string { return e.label }

// Ident returns the business key stored under the "ident" property.
func (e *entity) Ident() string { return e.props.Ident() }

// Properties returns the live property map. The owning graph retains
// ownership; callers hold a view, not a copy.
func (e *entity) Properties() Properties { return e.props }

// entityJSON is the JSON shape shared by vertices and edges.
type entityJSON struct {
	ID         int64      `json:"id,omitempty"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
}

// Vertex is a labeled node with an open property map.
type Vertex struct {
	entity
}

/*
NewVertex builds an unpersisted vertex. The properties must already contain
the "ident" key; the graph's AddVertex generates one when the caller omits
it. Fails with ErrMissingRequiredProperty otherwise.
*/
func NewVertex(label string, props Properties) (*Vertex, error) {
	return NewVertexWithID(0, label, props)
}

// NewVertexWithID builds a vertex carrying a store id, for codec decoding.
func NewVertexWithID(id int64, label string, props Properties) (*Vertex, error) {
	if props == nil {
		props = Properties{}
	}

	if !props.Has(IdentKey) {
		return nil, fmt.Errorf("%w: vertex requires %q", ErrMissingRequiredProperty, IdentKey)
	}

	return &Vertex{entity{id: id, label: label, props: props}}, nil
}

// Clone returns a deep, unaliased copy.
func (v *Vertex) Clone() *Vertex {
	return &Vertex{entity{id: v.id, label: v.label, props: v.props.Clone()}}
}

// MarshalJSON emits {"id", "label", "properties"}.
func (v *Vertex) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityJSON{ID: v.id, Label: v.label, Properties: v.props})
}

// UnmarshalJSON parses the vertex JSON shape, enforcing the identity key.
func (v *Vertex) UnmarshalJSON(data []byte) error {
	var raw entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := NewVertexWithID(raw.ID, raw.Label, raw.Properties)
	if err != nil {
		return err
	}

	*v = *parsed
	return nil
}

/*
Edge is a labeled, directed connection between two vertices. The endpoints
are referenced by ident ("start_ident"/"end_ident" properties), not by
store id, and are only validated against the owning graph's vertices at
persistence time, so graphs may be built incrementally with forward
references.
*/
type Edge struct {
	entity
	startID int64
	endID   int64
}

// NewEdge builds an unpersisted edge. Properties must contain all three
// identity keys; fails with ErrMissingRequiredProperty otherwise.
func NewEdge(label string, props Properties) (*Edge, error) {
	return NewEdgeWithID(0, 0, 0, label, props)
}

// NewEdgeWithID builds an edge carrying store ids, for codec decoding.
func NewEdgeWithID(id, startID, endID int64, label string, props Properties) (*Edge, error) {
	if props == nil {
		props = Properties{}
	}

	for _, key := range []string{IdentKey, StartIdentKey, EndIdentKey} {
		if !props.Has(key) {
			return nil, fmt.Errorf("%w: edge requires %q", ErrMissingRequiredProperty, key)
		}
	}

	return &Edge{
		entity:  entity{id: id, label: label, props: props},
		startID: startID,
		endID:   endID,
	}, nil
}

// StartIdent returns the ident of the edge's start vertex.
func (e *Edge) StartIdent() string { return e.props.StartIdent() }

// EndIdent returns the ident of the edge's end vertex.
func (e *Edge) EndIdent() string { return e.props.EndIdent() }

// StartID returns the store id of the start vertex, zero when unknown.
func (e *Edge) StartID() int64 { return e.startID }

// EndID returns the store id of the end vertex, zero when unknown.
func (e *Edge) EndID() int64 { return e.endID }

// Clone returns a deep, unaliased copy.
func (e *Edge) Clone() *Edge {
	return &Edge{
		entity:  entity{id: e.id, label: e.label, props: e.props.Clone()},
		startID: e.startID,
		endID:   e.endID,
	}
}

type edgeJSON struct {
	ID         int64      `json:"id,omitempty"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
	StartID    int64      `json:"start_id,omitempty"`
	EndID      int64      `json:"end_id,omitempty"`
}

// MarshalJSON emits {"id", "label", "properties", "start_id", "end_id"}.
func (e *Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(edgeJSON{
		ID:         e.id,
		Label:      e.label,
		Properties: e.props,
		StartID:    e.startID,
		EndID:      e.endID,
	})
}

// UnmarshalJSON parses the edge JSON shape, enforcing the identity keys.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw edgeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := NewEdgeWithID(raw.ID, raw.StartID, raw.EndID, raw.Label, raw.Properties)
	if err != nil {
		return err
	}

	*e = *parsed
	return nil
}
