package age

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

/*
wrapCypher embeds an openCypher statement into the SQL shell AGE expects.
Every result column comes back as a single agtype value.
*/
func wrapCypher(graphName, stmt string) string {
	return fmt.Sprintf(
		"SELECT * FROM cypher('%s', $cy$ %s $cy$) AS (v agtype);",
		strings.ReplaceAll(graphName, "'", "''"),
		stmt,
	)
}

// quoteString renders a single-quoted cypher string literal.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('\'')
	return b.String()
}

// plainIdentifier reports whether s can appear unquoted as a cypher
// symbolic name.
func plainIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// quoteIdentifier backtick-escapes labels and map keys when needed.
func quoteIdentifier(s string) string {
	if plainIdentifier(s) {
		return s
	}

	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

/*
encodeValue renders a property value as a cypher literal. Map keys are
emitted in sorted order so the same value always produces the same text.
*/
func encodeValue(v graph.Value) string {
	switch v.Kind() {
	case graph.KindNull:
		return "null"
	case graph.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case graph.KindNumber:
		f, _ := v.AsNumber()
		// Integral values render without a decimal point, but only inside
		// the int64 range; converting beyond it is undefined.
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case graph.KindString:
		s, _ := v.AsString()
		return quoteString(s)
	case graph.KindList:
		items, _ := v.AsList()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = encodeValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case graph.KindMap:
		m, _ := v.AsMap()
		return encodeMap(m)
	default:
		return "null"
	}
}

func encodeMap(m map[string]graph.Value) string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = quoteIdentifier(key) + ": " + encodeValue(m[key])
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// encodeProperties renders a full property map literal.
func encodeProperties(props graph.Properties) string {
	return encodeMap(map[string]graph.Value(props))
}

// labelFragment renders ":Label" or nothing when the label is unknown.
func labelFragment(label string) string {
	if label == "" {
		return ""
	}

	return ":" + quoteIdentifier(label)
}

/*
Statement turns one mutation into the openCypher statement that applies it.
Removed property keys are set to null, which is how openCypher drops a key.
*/
func Statement(m graph.Mutation) (string, error) {
	switch {
	case m.IsVertex() && m.Op == graph.OpAdd:
		return fmt.Sprintf("CREATE (%s %s)",
			labelFragment(m.Label), encodeProperties(m.Properties)), nil

	case m.IsVertex() && m.Op == graph.OpRemove:
		return fmt.Sprintf("MATCH (n%s {ident: %s}) DETACH DELETE n",
			labelFragment(m.Label), quoteString(m.Ident)), nil

	case m.IsVertex() && m.Op == graph.OpUpdate:
		assignments := setClauses("n", m.Set, m.Removed)
		if assignments == "" {
			return "", fmt.Errorf("update for vertex %q carries no changes", m.Ident)
		}
		return fmt.Sprintf("MATCH (n%s {ident: %s}) SET %s",
			labelFragment(m.Label), quoteString(m.Ident), assignments), nil

	case m.IsEdge() && m.Op == graph.OpAdd:
		return fmt.Sprintf(
			"MATCH (a%s {ident: %s}), (b%s {ident: %s}) CREATE (a)-[%s %s]->(b)",
			labelFragment(m.StartLabel), quoteString(m.StartIdent),
			labelFragment(m.EndLabel), quoteString(m.EndIdent),
			labelFragment(m.Label), encodeProperties(m.Properties)), nil

	case m.IsEdge() && m.Op == graph.OpRemove:
		return fmt.Sprintf("MATCH ()-[e%s {ident: %s}]->() DELETE e",
			labelFragment(m.Label), quoteString(m.Ident)), nil

	case m.IsEdge() && m.Op == graph.OpUpdate:
		assignments := setClauses("e", m.Set, m.Removed)
		if assignments == "" {
			return "", fmt.Errorf("update for edge %q carries no changes", m.Ident)
		}
		return fmt.Sprintf("MATCH ()-[e%s {ident: %s}]->() SET %s",
			labelFragment(m.Label), quoteString(m.Ident), assignments), nil
	}

	return "", fmt.Errorf("unsupported mutation %s %s", m.Op, m.Entity)
}

// setClauses renders the SET assignments for a key-level update, changed
// keys in sorted order followed by removed keys.
func setClauses(variable string, set graph.Properties, removed []string) string {
	parts := make([]string, 0, len(set)+len(removed))

	for _, key := range set.Keys() {
		parts = append(parts,
			fmt.Sprintf("%s.%s = %s", variable, quoteIdentifier(key), encodeValue(set[key])))
	}

	for _, key := range removed {
		parts = append(parts,
			fmt.Sprintf("%s.%s = null", variable, quoteIdentifier(key)))
	}

	return strings.Join(parts, ", ")
}

/*
Statements renders every mutation in a patch, preserving the patch's order.
*/
func Statements(p *graph.Patch) ([]string, error) {
	mutations := p.Mutations()
	stmts := make([]string, 0, len(mutations))

	for _, m := range mutations {
		stmt, err := Statement(m)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	return stmts, nil
}
