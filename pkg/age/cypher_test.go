package age

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

func mustProps(raw map[string]any) graph.Properties {
	props, err := graph.NewProperties(raw)
	So(err, ShouldBeNil)
	return props
}

func TestWrapCypher(t *testing.T) {
	Convey("Given a cypher statement", t, func() {
		Convey("When wrapping it for the store", func() {
			sql := wrapCypher("people", "MATCH (n) RETURN n")

			So(sql, ShouldEqual,
				"SELECT * FROM cypher('people', $cy$ MATCH (n) RETURN n $cy$) AS (v agtype);")
		})

		Convey("When the graph name contains a quote", func() {
			sql := wrapCypher("bob's", "MATCH (n) RETURN n")

			So(sql, ShouldContainSubstring, "cypher('bob''s'")
		})
	})
}

func TestEncodeValue(t *testing.T) {
	Convey("Given property values", t, func() {
		Convey("Scalars should render as cypher literals", func() {
			So(encodeValue(graph.Null()), ShouldEqual, "null")
			So(encodeValue(graph.Bool(true)), ShouldEqual, "true")
			So(encodeValue(graph.Int(42)), ShouldEqual, "42")
			So(encodeValue(graph.Number(4.5)), ShouldEqual, "4.5")
			So(encodeValue(graph.String("plain")), ShouldEqual, "'plain'")
		})

		Convey("Strings should escape quotes and backslashes", func() {
			So(encodeValue(graph.String(`it's a \ test`)), ShouldEqual, `'it\'s a \\ test'`)
		})

		Convey("Integral values beyond the int64 range should stay floats", func() {
			So(encodeValue(graph.Number(1e20)), ShouldEqual, "1e+20")
			So(encodeValue(graph.Number(-1e20)), ShouldEqual, "-1e+20")
			So(encodeValue(graph.Number(float64(math.MaxInt64))), ShouldEqual, "9.223372036854776e+18")
			So(encodeValue(graph.Number(float64(math.MinInt64))), ShouldEqual, "-9223372036854775808")
		})

		Convey("Containers should render recursively with sorted map keys", func() {
			val := graph.Map(map[string]graph.Value{
				"b": graph.Int(2),
				"a": graph.List(graph.String("x"), graph.Int(1)),
			})

			So(encodeValue(val), ShouldEqual, "{a: ['x', 1], b: 2}")
		})

		Convey("Awkward map keys should be backtick quoted", func() {
			val := graph.Map(map[string]graph.Value{"two words": graph.Int(1)})

			So(encodeValue(val), ShouldEqual, "{`two words`: 1}")
		})
	})
}

func TestStatement(t *testing.T) {
	Convey("Given a vertex addition", t, func() {
		g := graph.New("src")
		target := graph.New("src")
		_, err := target.AddVertex("Person", mustProps(map[string]any{"ident": "ada", "name": "Ada"}))
		So(err, ShouldBeNil)

		patch := graph.Diff(g, target)
		stmts, err := Statements(patch)

		Convey("It should render a CREATE", func() {
			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 1)
			So(stmts[0], ShouldEqual, "CREATE (:Person {ident: 'ada', name: 'Ada'})")
		})
	})

	Convey("Given a connected pair in the target", t, func() {
		source := graph.New("src")
		target := graph.New("src")
		_, err := target.AddVertex("Person", mustProps(map[string]any{"ident": "ada"}))
		So(err, ShouldBeNil)
		_, err = target.AddVertex("Person", mustProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)
		_, err = target.AddEdge("KNOWS", "ada", "grace", mustProps(map[string]any{"ident": "k1"}))
		So(err, ShouldBeNil)

		stmts, err := Statements(graph.Diff(source, target))

		Convey("The edge should be created through endpoint matches", func() {
			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 3)
			So(stmts[2], ShouldEqual,
				"MATCH (a:Person {ident: 'ada'}), (b:Person {ident: 'grace'}) "+
					"CREATE (a)-[:KNOWS {end_ident: 'grace', ident: 'k1', start_ident: 'ada'}]->(b)")
		})
	})

	Convey("Given a property update with removals", t, func() {
		source := graph.New("src")
		_, err := source.AddVertex("Person", mustProps(map[string]any{"ident": "ada", "old": 1, "keep": 2}))
		So(err, ShouldBeNil)

		target := source.Clone()
		ada, _ := target.Vertices().ByIdent("ada")
		ada.Properties().Delete("old")
		ada.Properties().Set("born", graph.Int(1815))

		stmts, err := Statements(graph.Diff(source, target))

		Convey("Changed keys should be set and removed keys nulled", func() {
			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 1)
			So(stmts[0], ShouldEqual,
				"MATCH (n:Person {ident: 'ada'}) SET n.born = 1815, n.old = null")
		})
	})

	Convey("Given removals of an edge and a vertex", t, func() {
		source := graph.New("src")
		_, err := source.AddVertex("Person", mustProps(map[string]any{"ident": "ada"}))
		So(err, ShouldBeNil)
		_, err = source.AddVertex("Person", mustProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)
		_, err = source.AddEdge("KNOWS", "ada", "grace", mustProps(map[string]any{"ident": "k1"}))
		So(err, ShouldBeNil)

		target := graph.New("src")
		_, err = target.AddVertex("Person", mustProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)

		stmts, err := Statements(graph.Diff(source, target))

		Convey("The edge delete should come before the detach delete", func() {
			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 2)
			So(stmts[0], ShouldEqual, "MATCH ()-[e:KNOWS {ident: 'k1'}]->() DELETE e")
			So(stmts[1], ShouldEqual, "MATCH (n:Person {ident: 'ada'}) DETACH DELETE n")
		})
	})
}
