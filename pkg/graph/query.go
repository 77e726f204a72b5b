package graph

import (
	"fmt"
	"strings"
)

type stepKind uint8

const (
	stepLabel stepKind = iota
	stepProp
	stepIdent
	stepStartIdent
	stepEndIdent
)

func (k stepKind) String() string {
	switch k {
	case stepLabel:
		return "label"
	case stepProp:
		return "prop"
	case stepIdent:
		return "ident"
	case stepStartIdent:
		return "start_ident"
	case stepEndIdent:
		return "end_ident"
	default:
		return "unknown"
	}
}

// step is one predicate in a query chain.
type step struct {
	kind stepKind
	key  string
	val  Value
}

// canonical serializes the step for use in cache keys.
func (s step) canonical() string {
	raw, err := s.val.MarshalJSON()
	if err != nil {
		raw = []byte("!")
	}

	if s.kind == stepProp {
		return fmt.Sprintf("prop[%s]=%s", s.key, raw)
	}

	return fmt.Sprintf("%s=%s", s.kind, raw)
}

func (s step) matchEntity(label string, props Properties) bool {
	switch s.kind {
	case stepLabel:
		want, _ := s.val.AsString()
		return label == want
	case stepProp:
		got, ok := props.Get(s.key)
		return ok && got.Equal(s.val)
	case stepIdent:
		want, _ := s.val.AsString()
		return props.Ident() == want
	case stepStartIdent:
		want, _ := s.val.AsString()
		return props.StartIdent() == want
	case stepEndIdent:
		want, _ := s.val.AsString()
		return props.EndIdent() == want
	default:
		return false
	}
}

// cacheKey combines the canonical step chain with the terminal kind, so
// every (step-sequence, terminal) pair memoizes independently.
func cacheKey(steps []step, terminal string) string {
	parts := make([]string, len(steps)+1)
	for i, s := range steps {
		parts[i] = s.canonical()
	}
	parts[len(steps)] = "->" + terminal

	return strings.Join(parts, "|")
}

/*
VertexQuery is a chainable predicate chain over a vertex collection. Every
step returns a new query value wrapping the accumulated chain, so a prefix
can be reused for several terminal calls. Terminals evaluate against the
collection's current contents through its bounded cache.
*/
type VertexQuery struct {
	col   *Vertices
	steps []step
}

// with copies the chain and appends one step, leaving the receiver usable
// as a shared prefix.
func (q VertexQuery) with(s step) VertexQuery {
	steps := make([]step, len(q.steps), len(q.steps)+1)
	copy(steps, q.steps)

	return VertexQuery{col: q.col, steps: append(steps, s)}
}

// Label keeps vertices whose label equals label.
func (q VertexQuery) Label(label string) VertexQuery {
	return q.with(step{kind: stepLabel, val: String(label)})
}

// Prop keeps vertices whose property key equals value.
func (q VertexQuery) Prop(key string, value Value) VertexQuery {
	return q.with(step{kind: stepProp, key: key, val: value})
}

// Ident keeps the vertex with the given ident.
func (q VertexQuery) Ident(ident string) VertexQuery {
	return q.with(step{kind: stepIdent, val: String(ident)})
}

func (q VertexQuery) evaluate(items []*Vertex) []*Vertex {
	out := make([]*Vertex, 0, len(items))
	for _, v := range items {
		keep := true
		for _, s := range q.steps {
			if !s.matchEntity(v.Label(), v.Properties()) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, v)
		}
	}

	return out
}

// All returns every vertex matching the chain, in insertion order. The
// slice is a fresh copy; the memoized result stays private to the cache.
func (q VertexQuery) All() []*Vertex {
	result := q.col.cached(cacheKey(q.steps, "all"), func(items []*Vertex) any {
		return q.evaluate(items)
	})

	return append([]*Vertex(nil), result.([]*Vertex)...)
}

// First returns the first match, or nil when nothing matches.
func (q VertexQuery) First() *Vertex {
	result := q.col.cached(cacheKey(q.steps, "first"), func(items []*Vertex) any {
		matches := q.evaluate(items)
		if len(matches) == 0 {
			return (*Vertex)(nil)
		}
		return matches[0]
	})

	return result.(*Vertex)
}

// Count returns the number of matches.
func (q VertexQuery) Count() int {
	result := q.col.cached(cacheKey(q.steps, "count"), func(items []*Vertex) any {
		return len(q.evaluate(items))
	})

	return result.(int)
}

/*
EdgeQuery is the edge counterpart of VertexQuery, adding the StartIdent and
EndIdent steps.
*/
type EdgeQuery struct {
	col   *Edges
	steps []step
}

func (q EdgeQuery) with(s step) EdgeQuery {
	steps := make([]step, len(q.steps), len(q.steps)+1)
	copy(steps, q.steps)

	return EdgeQuery{col: q.col, steps: append(steps, s)}
}

// Label keeps edges whose label equals label.
func (q EdgeQuery) Label(label string) EdgeQuery {
	return q.with(step{kind: stepLabel, val: String(label)})
}

// Prop keeps edges whose property key equals value.
func (q EdgeQuery) Prop(key string, value Value) EdgeQuery {
	return q.with(step{kind: stepProp, key: key, val: value})
}

// Ident keeps the edge with the given ident.
func (q EdgeQuery) Ident(ident string) EdgeQuery {
	return q.with(step{kind: stepIdent, val: String(ident)})
}

// StartIdent keeps edges starting at the given vertex ident.
func (q EdgeQuery) StartIdent(ident string) EdgeQuery {
	return q.with(step{kind: stepStartIdent, val: String(ident)})
}

// EndIdent keeps edges ending at the given vertex ident.
func (q EdgeQuery) EndIdent(ident string) EdgeQuery {
	return q.with(step{kind: stepEndIdent, val: String(ident)})
}

func (q EdgeQuery) evaluate(items []*Edge) []*Edge {
	out := make([]*Edge, 0, len(items))
	for _, e := range items {
		keep := true
		for _, s := range q.steps {
			if !s.matchEntity(e.Label(), e.Properties()) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}

	return out
}

// All returns every edge matching the chain, in insertion order. The slice
// is a fresh copy; the memoized result stays private to the cache.
func (q EdgeQuery) All() []*Edge {
	result := q.col.cached(cacheKey(q.steps, "all"), func(items []*Edge) any {
		return q.evaluate(items)
	})

	return append([]*Edge(nil), result.([]*Edge)...)
}

// First returns the first match, or nil when nothing matches.
func (q EdgeQuery) First() *Edge {
	result := q.col.cached(cacheKey(q.steps, "first"), func(items []*Edge) any {
		matches := q.evaluate(items)
		if len(matches) == 0 {
			return (*Edge)(nil)
		}
		return matches[0]
	})

	return result.(*Edge)
}

// Count returns the number of matches.
func (q EdgeQuery) Count() int {
	result := q.col.cached(cacheKey(q.steps, "count"), func(items []*Edge) any {
		return len(q.evaluate(items))
	})

	return result.(int)
}
