package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Property keys that carry entity identity. They live inside the property
// map itself so the wire payload stays the single source of truth; the
// typed accessors below are computed views, never duplicated fields.
const (
	IdentKey      = "ident"
	StartIdentKey = "start_ident"
	EndIdentKey   = "end_ident"
)

// Properties is the open key to value map carried by every vertex and edge.
type Properties map[string]Value

// NewProperties converts a plain map of Go values. Returns an error when a
// value falls outside the closed union.
func NewProperties(raw map[string]any) (Properties, error) {
	props := make(Properties, len(raw))
	for key, item := range raw {
		val, err := FromAny(item)
		if err != nil {
			return nil, err
		}
		props[key] = val
	}

	return props, nil
}

// Get returns the value stored under key.
func (p Properties) Get(key string) (Value, bool) {
	val, ok := p[key]
	return val, ok
}

// Set stores value under key.
func (p Properties) Set(key string, value Value) {
	p[key] = value
}

// Delete removes key.
func (p Properties) Delete(key string) {
	delete(p, key)
}

// Has reports whether key is present with a non-null value.
func (p Properties) Has(key string) bool {
	val, ok := p[key]
	return ok && !val.IsNull()
}

// stringAt returns the string stored under key, or "" when absent or not a
// string.
func (p Properties) stringAt(key string) string {
	val, ok := p[key]
	if !ok {
		return ""
	}

	s, _ := val.AsString()
	return s
}

// Ident returns the value of the "ident" identity key.
func (p Properties) Ident() string { return p.stringAt(IdentKey) }

// StartIdent returns the value of the "start_ident" identity key.
func (p Properties) StartIdent() string { return p.stringAt(StartIdentKey) }

// EndIdent returns the value of the "end_ident" identity key.
func (p Properties) EndIdent() string { return p.stringAt(EndIdentKey) }

// Clone returns a deep copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for key, val := range p {
		out[key] = val.Clone()
	}

	return out
}

// Equal compares key sets and values deeply.
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}

	for key, val := range p {
		got, ok := other[key]
		if !ok || !val.Equal(got) {
			return false
		}
	}

	return true
}

/*
Merge deep-merges incoming into p: nested maps merge key-wise, every other
value kind overwrites. Keys absent from incoming are preserved, which is
what makes the repository upserts non-destructive.
*/
func (p Properties) Merge(incoming Properties) {
	for key, val := range incoming {
		existing, ok := p[key]
		if ok {
			existingMap, isMap := existing.AsMap()
			incomingMap, incomingIsMap := val.AsMap()
			if isMap && incomingIsMap {
				merged := Properties(existingMap).Clone()
				merged.Merge(Properties(incomingMap))
				p[key] = Map(merged)
				continue
			}
		}
		p[key] = val.Clone()
	}
}

// Keys returns the property keys sorted, for deterministic iteration.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// MarshalJSON emits the map as a JSON object with sorted keys.
func (p Properties) MarshalJSON() ([]byte, error) {
	return Map(p).MarshalJSON()
}

// UnmarshalJSON parses a JSON object into the map.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var val Value
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}

	m, ok := val.AsMap()
	if !ok {
		return fmt.Errorf("properties payload is not a JSON object (got %s)", val.Kind())
	}

	*p = m
	return nil
}
