// Package agtype implements the bidirectional codec between the store's
// tagged textual graph values and typed vertices and edges. A value is a
// JSON object carrying id, label and a properties object, suffixed with its
// tag: `{...}::vertex`, `{...}::edge`, or an alternating JSON array of
// those suffixed `::path`.
package agtype

import (
	"errors"
	"fmt"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

// ErrMalformedRecord is returned when a tagged graph value cannot be
// decoded into a typed entity. The failure is fatal to the containing
// fetch: callers never surface a partially decoded graph.
var ErrMalformedRecord = errors.New("malformed graph record")

// Kind tags a decoded record.
type Kind uint8

const (
	KindVertex Kind = iota
	KindEdge
)

// String returns the tag name.
func (k Kind) String() string {
	if k == KindEdge {
		return "edge"
	}

	return "vertex"
}

/*
Record is one decoded tagged graph value: the store-assigned numeric id,
the label, the property map, and for edges the endpoint ids. ID zero means
the value carried no id (an unpersisted entity being encoded for a query
parameter).
*/
type Record struct {
	Kind       Kind
	ID         int64
	StartID    int64
	EndID      int64
	Label      string
	Properties graph.Properties
}

// ToVertex converts a vertex record to a typed Vertex with id and label
// populated and properties assigned verbatim.
func (r Record) ToVertex() (*graph.Vertex, error) {
	if r.Kind != KindVertex {
		return nil, fmt.Errorf("%w: record is a %s, not a vertex", ErrMalformedRecord, r.Kind)
	}

	v, err := graph.NewVertexWithID(r.ID, r.Label, r.Properties)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return v, nil
}

// ToEdge converts an edge record to a typed Edge.
func (r Record) ToEdge() (*graph.Edge, error) {
	if r.Kind != KindEdge {
		return nil, fmt.Errorf("%w: record is a %s, not an edge", ErrMalformedRecord, r.Kind)
	}

	e, err := graph.NewEdgeWithID(r.ID, r.StartID, r.EndID, r.Label, r.Properties)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return e, nil
}

// FromVertex builds the record for a typed vertex, the inverse of ToVertex.
func FromVertex(v *graph.Vertex) Record {
	return Record{
		Kind:       KindVertex,
		ID:         v.ID(),
		Label:      v.Label(),
		Properties: v.Properties().Clone(),
	}
}

// FromEdge builds the record for a typed edge.
func FromEdge(e *graph.Edge) Record {
	return Record{
		Kind:       KindEdge,
		ID:         e.ID(),
		StartID:    e.StartID(),
		EndID:      e.EndID(),
		Label:      e.Label(),
		Properties: e.Properties().Clone(),
	}
}

/*
ToGraph materializes a fresh, independent graph snapshot from decoded
records: vertices first, then edges, both in the order encountered.
*/
func ToGraph(name string, records []Record) (*graph.Graph, error) {
	return ToGraphWithCapacity(name, records, 0)
}

// ToGraphWithCapacity is ToGraph with an explicit query cache capacity per
// collection. Zero or negative means the default.
func ToGraphWithCapacity(name string, records []Record, cacheCapacity int) (*graph.Graph, error) {
	var g *graph.Graph
	if cacheCapacity > 0 {
		g = graph.NewWithCapacity(name, cacheCapacity)
	} else {
		g = graph.New(name)
	}

	for _, r := range records {
		if r.Kind != KindVertex {
			continue
		}
		v, err := r.ToVertex()
		if err != nil {
			return nil, err
		}
		if err := g.AttachVertex(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	}

	for _, r := range records {
		if r.Kind != KindEdge {
			continue
		}
		e, err := r.ToEdge()
		if err != nil {
			return nil, err
		}
		if err := g.AttachEdge(e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	}

	return g, nil
}

// FromGraph converts a graph snapshot back into records, vertices first.
func FromGraph(g *graph.Graph) []Record {
	records := make([]Record, 0, g.Vertices().Len()+g.Edges().Len())
	for _, v := range g.Vertices().All() {
		records = append(records, FromVertex(v))
	}
	for _, e := range g.Edges().All() {
		records = append(records, FromEdge(e))
	}

	return records
}
