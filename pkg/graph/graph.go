// Package graph implements the in-memory labeled-property graph: typed
// vertices and edges with open property maps, ordered collections with a
// cached chainable query builder, and the diff/patch engine that computes
// minimal mutation sets between two snapshots.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/ident"
)

// Ident generation defaults. Underscore keeps an ident a single token unit
// under stemming and n-gramming.
const (
	DefaultIdentWords     = 3
	DefaultIdentDelimiter = "_"
)

/*
Graph is a named labeled-property graph. It exclusively owns its vertices
and edges: entities are created, mutated and removed only through the graph
(or the repository driving it), and callers receive references into the
graph, never copies. A Graph has a single logical owner and is not safe for
unsynchronized concurrent mutation.
*/
type Graph struct {
	name          string
	vertices      *Vertices
	edges         *Edges
	cacheCapacity int

	gen            *ident.Generator
	identWords     int
	identDelimiter string
}

// New creates an empty graph with default cache capacity and ident shape.
func New(name string) *Graph {
	return NewWithCapacity(name, defaultCacheCapacity)
}

// NewWithCapacity creates an empty graph whose collections cache up to
// cacheCapacity query results each.
func NewWithCapacity(name string, cacheCapacity int) *Graph {
	return &Graph{
		name:           name,
		vertices:       newVertices(cacheCapacity),
		edges:          newEdges(cacheCapacity),
		cacheCapacity:  cacheCapacity,
		gen:            ident.New(),
		identWords:     DefaultIdentWords,
		identDelimiter: DefaultIdentDelimiter,
	}
}

// SetIdentShape overrides the word count and delimiter used for generated
// idents.
func (g *Graph) SetIdentShape(words int, delimiter string) {
	if words > 0 {
		g.identWords = words
	}
	if delimiter != "" {
		g.identDelimiter = delimiter
	}
}

// Name returns the graph name, unique per persisted namespace.
func (g *Graph) Name() string { return g.name }

// Vertices returns the ordered vertex collection.
func (g *Graph) Vertices() *Vertices { return g.vertices }

// Edges returns the ordered edge collection.
func (g *Graph) Edges() *Edges { return g.edges }

// generateIdent draws a fresh ident that is unique within taken.
func (g *Graph) generateIdent(taken func(string) bool) (string, error) {
	return g.gen.Generate(g.identWords, g.identDelimiter, taken)
}

func (g *Graph) vertexIdentTaken(id string) bool {
	_, ok := g.vertices.ByIdent(id)
	return ok
}

func (g *Graph) edgeIdentTaken(id string) bool {
	_, ok := g.edges.ByIdent(id)
	return ok
}

/*
AddVertex appends a new vertex and returns a reference to it. When the
properties omit "ident" one is generated, unique within the vertex
collection. Duplicate idents fail with ErrDuplicateIdent.
*/
func (g *Graph) AddVertex(label string, props Properties) (*Vertex, error) {
	if props == nil {
		props = Properties{}
	}

	if !props.Has(IdentKey) {
		generated, err := g.generateIdent(g.vertexIdentTaken)
		if err != nil {
			return nil, err
		}
		props.Set(IdentKey, String(generated))
	}

	v, err := NewVertex(label, props)
	if err != nil {
		return nil, err
	}

	if err := g.AttachVertex(v); err != nil {
		return nil, err
	}

	return v, nil
}

// AttachVertex appends an already-built vertex, enforcing ident
// uniqueness. Used by the codec and the patch engine.
func (g *Graph) AttachVertex(v *Vertex) error {
	if _, exists := g.vertices.ByIdent(v.Ident()); exists {
		return fmt.Errorf("%w: vertex %q", ErrDuplicateIdent, v.Ident())
	}

	g.vertices.append(v)
	return nil
}

/*
AddEdge appends a new edge from startIdent to endIdent and returns a
reference to it. The endpoint idents are written into the property map (the
single source of truth); they are not validated against the vertex
collection here; that happens at persistence time, so graphs can be built
incrementally with forward references.
*/
func (g *Graph) AddEdge(label, startIdent, endIdent string, props Properties) (*Edge, error) {
	if props == nil {
		props = Properties{}
	}

	if startIdent != "" {
		props.Set(StartIdentKey, String(startIdent))
	}
	if endIdent != "" {
		props.Set(EndIdentKey, String(endIdent))
	}

	if !props.Has(IdentKey) {
		generated, err := g.generateIdent(g.edgeIdentTaken)
		if err != nil {
			return nil, err
		}
		props.Set(IdentKey, String(generated))
	}

	e, err := NewEdge(label, props)
	if err != nil {
		return nil, err
	}

	if err := g.AttachEdge(e); err != nil {
		return nil, err
	}

	return e, nil
}

// AttachEdge appends an already-built edge, enforcing ident uniqueness.
func (g *Graph) AttachEdge(e *Edge) error {
	if _, exists := g.edges.ByIdent(e.Ident()); exists {
		return fmt.Errorf("%w: edge %q", ErrDuplicateIdent, e.Ident())
	}

	g.edges.append(e)
	return nil
}

/*
UpsertVertex merges props into the vertex with the given ident, creating it
when unseen. Existing keys not named in props are preserved; named keys are
overwritten (nested maps merge key-wise). Label is part of identity and is
only applied at creation; an existing vertex keeps its label, relabeling
requires remove plus add.
*/
func (g *Graph) UpsertVertex(label, identValue string, props Properties) (*Vertex, error) {
	if props == nil {
		props = Properties{}
	}
	props = props.Clone()
	props.Set(IdentKey, String(identValue))

	if existing, ok := g.vertices.ByIdent(identValue); ok {
		existing.props.Merge(props)
		g.vertices.invalidate()
		return existing, nil
	}

	return g.AddVertex(label, props)
}

/*
UpsertEdge merges props into an existing edge, creating it when unseen. An
existing edge is matched by ident when props carry one, falling back to the
(start_ident, end_ident, label) triple. As with vertices, label only
applies at creation; a matched edge keeps its label.
*/
func (g *Graph) UpsertEdge(label, startIdent, endIdent string, props Properties) (*Edge, error) {
	if props == nil {
		props = Properties{}
	}
	props = props.Clone()

	var existing *Edge
	if id := props.Ident(); id != "" {
		existing, _ = g.edges.ByIdent(id)
	}
	if existing == nil {
		existing = g.edges.Query().StartIdent(startIdent).EndIdent(endIdent).Label(label).First()
	}

	if existing != nil {
		props.Set(StartIdentKey, String(startIdent))
		props.Set(EndIdentKey, String(endIdent))
		props.Set(IdentKey, String(existing.Ident()))
		existing.props.Merge(props)
		g.edges.invalidate()
		return existing, nil
	}

	return g.AddEdge(label, startIdent, endIdent, props)
}

// RemoveVertex removes the vertex with the given ident. Removing an absent
// ident is a no-op.
func (g *Graph) RemoveVertex(identValue string) bool {
	return g.vertices.remove(identValue)
}

// RemoveEdge removes the edge with the given ident. Removing an absent
// ident is a no-op.
func (g *Graph) RemoveEdge(identValue string) bool {
	return g.edges.remove(identValue)
}

/*
ValidateEndpoints checks that every edge's start and end idents resolve to
vertices of this graph. The repository calls this before persisting.
*/
func (g *Graph) ValidateEndpoints() error {
	for _, e := range g.edges.All() {
		if _, ok := g.vertices.ByIdent(e.StartIdent()); !ok {
			return fmt.Errorf("edge %q references unknown start vertex %q", e.Ident(), e.StartIdent())
		}
		if _, ok := g.vertices.ByIdent(e.EndIdent()); !ok {
			return fmt.Errorf("edge %q references unknown end vertex %q", e.Ident(), e.EndIdent())
		}
	}

	return nil
}

// Clone returns a deep, fully independent copy of the graph, keeping the
// cache capacity and ident shape.
func (g *Graph) Clone() *Graph {
	out := NewWithCapacity(g.name, g.cacheCapacity)
	out.identWords = g.identWords
	out.identDelimiter = g.identDelimiter

	for _, v := range g.vertices.All() {
		out.vertices.append(v.Clone())
	}
	for _, e := range g.edges.All() {
		out.edges.append(e.Clone())
	}

	return out
}

// Equal compares name, vertex sets and edge sets (by ident, label,
// properties and insertion order).
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || g.name != other.name {
		return false
	}

	mine, theirs := g.vertices.All(), other.vertices.All()
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		if mine[i].Label() != theirs[i].Label() || !mine[i].Properties().Equal(theirs[i].Properties()) {
			return false
		}
	}

	myEdges, theirEdges := g.edges.All(), other.edges.All()
	if len(myEdges) != len(theirEdges) {
		return false
	}
	for i := range myEdges {
		if myEdges[i].Label() != theirEdges[i].Label() || !myEdges[i].Properties().Equal(theirEdges[i].Properties()) {
			return false
		}
	}

	return true
}

type graphJSON struct {
	Name     string    `json:"name"`
	Vertices []*Vertex `json:"vertices"`
	Edges    []*Edge   `json:"edges"`
}

// MarshalJSON emits {"name", "vertices", "edges"}.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{
		Name:     g.name,
		Vertices: g.vertices.All(),
		Edges:    g.edges.All(),
	})
}

// UnmarshalJSON parses a whole graph, enforcing entity identity keys and
// ident uniqueness.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed := New(raw.Name)
	for _, v := range raw.Vertices {
		if err := parsed.AttachVertex(v); err != nil {
			return err
		}
	}
	for _, e := range raw.Edges {
		if err := parsed.AttachEdge(e); err != nil {
			return err
		}
	}

	*g = *parsed
	return nil
}
