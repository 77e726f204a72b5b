package graph

import (
	"sync"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/cache"
)

// defaultCacheCapacity bounds each collection's query-result cache.
const defaultCacheCapacity = 100

/*
Vertices is the ordered vertex collection of a graph. Structural mutation
happens only through the owning graph's methods; the collection's single
mutex guards the backing slice and the query cache, and every add or remove
clears the cache in full so a stale result is never observable.
*/
type Vertices struct {
	mu    sync.Mutex
	items []*Vertex
	cache *cache.LRU
}

func newVertices(cacheCapacity int) *Vertices {
	return &Vertices{cache: cache.NewLRU(cacheCapacity)}
}

// Len returns the number of vertices.
func (vs *Vertices) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.items)
}

// All returns the vertices in insertion order. The slice is a fresh copy;
// the elements are the graph-owned entities themselves.
func (vs *Vertices) All() []*Vertex {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return append([]*Vertex(nil), vs.items...)
}

// ByIdent returns the vertex with the given ident, going through the
// cached query path.
func (vs *Vertices) ByIdent(ident string) (*Vertex, bool) {
	v := vs.Query().Ident(ident).First()
	return v, v != nil
}

// Query starts a chainable, cached query over the collection.
func (vs *Vertices) Query() VertexQuery {
	return VertexQuery{col: vs}
}

// Label is shorthand for Query().Label(label).
func (vs *Vertices) Label(label string) VertexQuery {
	return vs.Query().Label(label)
}

// Prop is shorthand for Query().Prop(key, value).
func (vs *Vertices) Prop(key string, value Value) VertexQuery {
	return vs.Query().Prop(key, value)
}

func (vs *Vertices) append(v *Vertex) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.items = append(vs.items, v)
	vs.cache.Clear()
}

func (vs *Vertices) remove(ident string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for i, v := range vs.items {
		if v.Ident() == ident {
			vs.items = append(vs.items[:i], vs.items[i+1:]...)
			vs.cache.Clear()
			return true
		}
	}

	return false
}

// invalidate clears the query cache. Called whenever entity properties are
// rewritten in place, since cached results may no longer match.
func (vs *Vertices) invalidate() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.cache.Clear()
}

// cached runs the eval func through the collection's LRU under its mutex.
func (vs *Vertices) cached(key string, eval func(items []*Vertex) any) any {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if hit, ok := vs.cache.Get(key); ok {
		return hit
	}

	result := eval(vs.items)
	vs.cache.Put(key, result)
	return result
}

/*
Edges is the ordered edge collection of a graph, with the same ownership,
locking and cache-invalidation contract as Vertices.
*/
type Edges struct {
	mu    sync.Mutex
	items []*Edge
	cache *cache.LRU
}

func newEdges(cacheCapacity int) *Edges {
	return &Edges{cache: cache.NewLRU(cacheCapacity)}
}

// Len returns the number of edges.
func (es *Edges) Len() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.items)
}

// All returns the edges in insertion order as a fresh slice of graph-owned
// entities.
func (es *Edges) All() []*Edge {
	es.mu.Lock()
	defer es.mu.Unlock()
	return append([]*Edge(nil), es.items...)
}

// ByIdent returns the edge with the given ident.
func (es *Edges) ByIdent(ident string) (*Edge, bool) {
	e := es.Query().Ident(ident).First()
	return e, e != nil
}

// Query starts a chainable, cached query over the collection.
func (es *Edges) Query() EdgeQuery {
	return EdgeQuery{col: es}
}

// Label is shorthand for Query().Label(label).
func (es *Edges) Label(label string) EdgeQuery {
	return es.Query().Label(label)
}

// Prop is shorthand for Query().Prop(key, value).
func (es *Edges) Prop(key string, value Value) EdgeQuery {
	return es.Query().Prop(key, value)
}

func (es *Edges) append(e *Edge) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.items = append(es.items, e)
	es.cache.Clear()
}

func (es *Edges) remove(ident string) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	for i, e := range es.items {
		if e.Ident() == ident {
			es.items = append(es.items[:i], es.items[i+1:]...)
			es.cache.Clear()
			return true
		}
	}

	return false
}

// invalidate clears the query cache after in-place property rewrites.
func (es *Edges) invalidate() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.cache.Clear()
}

func (es *Edges) cached(key string, eval func(items []*Edge) any) any {
	es.mu.Lock()
	defer es.mu.Unlock()

	if hit, ok := es.cache.Get(key); ok {
		return hit
	}

	result := eval(es.items)
	es.cache.Put(key, result)
	return result
}
