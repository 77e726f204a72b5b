package agtype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

// Tag suffixes the store appends to its textual graph values.
const (
	vertexTag = "::vertex"
	edgeTag   = "::edge"
	pathTag   = "::path"
)

// envelope is the JSON shape inside a tagged value. Properties stays raw so
// a non-object payload is detected explicitly rather than silently coerced.
type envelope struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	Properties json.RawMessage `json:"properties"`
	StartID    int64           `json:"start_id"`
	EndID      int64           `json:"end_id"`
}

/*
Decode parses one tagged textual graph value. A vertex or edge value yields
one record; a path value, an ordered alternating sequence of vertex and
edge values, yields its records in the order encountered. Fails with
ErrMalformedRecord when the tag is unknown, the properties payload is not a
JSON object, or required identity keys are absent after parsing.
*/
func Decode(text string) ([]Record, error) {
	trimmed := strings.TrimSpace(text)

	switch {
	case strings.HasSuffix(trimmed, vertexTag):
		r, err := decodeEntity(strings.TrimSuffix(trimmed, vertexTag), KindVertex)
		if err != nil {
			return nil, err
		}
		return []Record{r}, nil

	case strings.HasSuffix(trimmed, edgeTag):
		r, err := decodeEntity(strings.TrimSuffix(trimmed, edgeTag), KindEdge)
		if err != nil {
			return nil, err
		}
		return []Record{r}, nil

	case strings.HasSuffix(trimmed, pathTag):
		return decodePath(strings.TrimSuffix(trimmed, pathTag))

	default:
		return nil, fmt.Errorf("%w: unrecognized tag in %q", ErrMalformedRecord, clip(trimmed))
	}
}

// decodeEntity parses the JSON object of a single vertex or edge value.
func decodeEntity(body string, kind Kind) (Record, error) {
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Record{}, fmt.Errorf("%w: %v in %q", ErrMalformedRecord, err, clip(body))
	}

	props := graph.Properties{}
	if len(env.Properties) > 0 {
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return Record{}, fmt.Errorf("%w: %v in %q", ErrMalformedRecord, err, clip(body))
		}
	}

	record := Record{
		Kind:       kind,
		ID:         env.ID,
		StartID:    env.StartID,
		EndID:      env.EndID,
		Label:      env.Label,
		Properties: props,
	}

	if err := record.validateIdentity(); err != nil {
		return Record{}, err
	}

	return record, nil
}

// validateIdentity enforces the identity keys the wire contract requires.
func (r Record) validateIdentity() error {
	required := []string{graph.IdentKey}
	if r.Kind == KindEdge {
		required = append(required, graph.StartIdentKey, graph.EndIdentKey)
	}

	for _, key := range required {
		if !r.Properties.Has(key) {
			return fmt.Errorf("%w: %s %d is missing required property %q", ErrMalformedRecord, r.Kind, r.ID, key)
		}
	}

	return nil
}

/*
decodePath parses a path body: a JSON array of tagged vertex/edge values.
The inner tags are stripped first so the remainder parses as one JSON array
(the same trick the store's own clients use), then each element decodes by
the presence of endpoint ids.
*/
func decodePath(body string) ([]Record, error) {
	stripped := strings.ReplaceAll(body, vertexTag, "")
	stripped = strings.ReplaceAll(stripped, edgeTag, "")

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(stripped), &elements); err != nil {
		return nil, fmt.Errorf("%w: invalid path value: %v", ErrMalformedRecord, err)
	}

	records := make([]Record, 0, len(elements))
	for _, element := range elements {
		kind := KindVertex
		var probe struct {
			StartID *int64 `json:"start_id"`
			EndID   *int64 `json:"end_id"`
		}
		if err := json.Unmarshal(element, &probe); err != nil {
			return nil, fmt.Errorf("%w: invalid path element: %v", ErrMalformedRecord, err)
		}
		if probe.StartID != nil && probe.EndID != nil {
			kind = KindEdge
		}

		record, err := decodeEntity(string(element), kind)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

/*
Encode serializes a record back into the tagged textual form, for use as a
query parameter when persisting. The id (and edge endpoint ids) are omitted
when absent. Decode(Encode(r)) is semantically idempotent: equal id, label
and property set; JSON key order is insignificant.
*/
func Encode(r Record) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if r.ID != 0 {
		fmt.Fprintf(&buf, `"id": %d, `, r.ID)
	}

	label, err := json.Marshal(r.Label)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&buf, `"label": %s, `, label)

	if r.Kind == KindEdge {
		if r.StartID != 0 {
			fmt.Fprintf(&buf, `"start_id": %d, `, r.StartID)
		}
		if r.EndID != 0 {
			fmt.Fprintf(&buf, `"end_id": %d, `, r.EndID)
		}
	}

	props, err := r.Properties.MarshalJSON()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&buf, `"properties": %s}`, props)

	if r.Kind == KindEdge {
		buf.WriteString(edgeTag)
	} else {
		buf.WriteString(vertexTag)
	}

	return buf.String(), nil
}

// clip bounds payload excerpts used in error messages.
func clip(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
