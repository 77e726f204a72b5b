package graph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func buildProps(raw map[string]any) Properties {
	props, err := NewProperties(raw)
	So(err, ShouldBeNil)
	return props
}

func TestAddVertex(t *testing.T) {
	Convey("Given an empty graph", t, func() {
		g := New("test")

		Convey("When adding a vertex without an ident", func() {
			v, err := g.AddVertex("Person", buildProps(map[string]any{"name": "Ada"}))

			Convey("An ident should be generated", func() {
				So(err, ShouldBeNil)
				So(v.Ident(), ShouldNotBeEmpty)
				So(strings.Count(v.Ident(), "_"), ShouldEqual, DefaultIdentWords-1)
			})

			Convey("The vertex should be findable by ident", func() {
				found, ok := g.Vertices().ByIdent(v.Ident())
				So(ok, ShouldBeTrue)
				So(found, ShouldEqual, v)
			})
		})

		Convey("When adding a vertex with an explicit ident", func() {
			v, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada"}))

			So(err, ShouldBeNil)
			So(v.Ident(), ShouldEqual, "ada")

			Convey("A second vertex with the same ident should be rejected", func() {
				_, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada"}))
				So(errors.Is(err, ErrDuplicateIdent), ShouldBeTrue)
			})
		})

		Convey("When building a vertex without an ident directly", func() {
			_, err := NewVertex("Person", Properties{"name": String("Ada")})

			Convey("It should fail with the missing property error", func() {
				So(errors.Is(err, ErrMissingRequiredProperty), ShouldBeTrue)
			})
		})
	})
}

func TestAddEdge(t *testing.T) {
	Convey("Given a graph with two vertices", t, func() {
		g := New("test")
		_, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada"}))
		So(err, ShouldBeNil)
		_, err = g.AddVertex("Person", buildProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)

		Convey("When adding an edge between them", func() {
			e, err := g.AddEdge("KNOWS", "ada", "grace", nil)

			Convey("The endpoint idents should live in the property map", func() {
				So(err, ShouldBeNil)
				So(e.StartIdent(), ShouldEqual, "ada")
				So(e.EndIdent(), ShouldEqual, "grace")
				So(e.Properties().StartIdent(), ShouldEqual, "ada")
				So(e.Properties().EndIdent(), ShouldEqual, "grace")
				So(e.Ident(), ShouldNotBeEmpty)
			})
		})

		Convey("When adding an edge with a forward reference", func() {
			_, err := g.AddEdge("KNOWS", "ada", "unknown_yet", nil)

			Convey("It should be accepted until persistence time", func() {
				So(err, ShouldBeNil)
			})

			Convey("Endpoint validation should catch it", func() {
				So(g.ValidateEndpoints(), ShouldNotBeNil)
			})
		})

		Convey("When an edge misses its endpoint properties", func() {
			_, err := NewEdge("KNOWS", Properties{"ident": String("e1")})

			Convey("Construction should fail", func() {
				So(errors.Is(err, ErrMissingRequiredProperty), ShouldBeTrue)
			})
		})
	})
}

func TestUpsertVertex(t *testing.T) {
	Convey("Given a graph with a vertex", t, func() {
		g := New("test")
		_, err := g.AddVertex("Person", buildProps(map[string]any{
			"ident": "ada",
			"name":  "Ada",
			"born":  1815,
		}))
		So(err, ShouldBeNil)

		Convey("When upserting the same ident with new properties", func() {
			v, err := g.UpsertVertex("Person", "ada", buildProps(map[string]any{
				"born":  1816,
				"field": "mathematics",
			}))

			Convey("Named keys should be overwritten or added", func() {
				So(err, ShouldBeNil)
				So(v.Properties()["born"].Equal(Int(1816)), ShouldBeTrue)
				So(v.Properties()["field"].Equal(String("mathematics")), ShouldBeTrue)
			})

			Convey("Unnamed keys should survive", func() {
				So(v.Properties()["name"].Equal(String("Ada")), ShouldBeTrue)
			})

			Convey("No second vertex should appear", func() {
				So(g.Vertices().Len(), ShouldEqual, 1)
			})
		})

		Convey("When upserting an unseen ident", func() {
			_, err := g.UpsertVertex("Person", "grace", buildProps(map[string]any{"name": "Grace"}))

			Convey("A new vertex should be created", func() {
				So(err, ShouldBeNil)
				So(g.Vertices().Len(), ShouldEqual, 2)
			})
		})

		Convey("When upserting the same ident under a different label", func() {
			snapshot := g.Clone()

			v, err := g.UpsertVertex("Engineer", "ada", nil)

			Convey("The existing label should survive", func() {
				So(err, ShouldBeNil)
				So(v.Label(), ShouldEqual, "Person")
				So(g.Vertices().Len(), ShouldEqual, 1)
			})

			Convey("The graph should diff clean against its prior snapshot", func() {
				So(Diff(snapshot, g).Empty(), ShouldBeTrue)
			})
		})
	})
}

func TestUpsertEdge(t *testing.T) {
	Convey("Given a graph with two vertices and an edge", t, func() {
		g := New("test")
		_, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada"}))
		So(err, ShouldBeNil)
		_, err = g.AddVertex("Person", buildProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)

		e, err := g.AddEdge("KNOWS", "ada", "grace", buildProps(map[string]any{"since": 1843}))
		So(err, ShouldBeNil)

		Convey("When upserting by ident", func() {
			props := buildProps(map[string]any{"ident": e.Ident(), "since": 1844})
			merged, err := g.UpsertEdge("KNOWS", "ada", "grace", props)

			Convey("The existing edge should be merged into", func() {
				So(err, ShouldBeNil)
				So(merged, ShouldEqual, e)
				So(merged.Properties()["since"].Equal(Int(1844)), ShouldBeTrue)
				So(g.Edges().Len(), ShouldEqual, 1)
			})
		})

		Convey("When upserting by ident under a different label", func() {
			props := buildProps(map[string]any{"ident": e.Ident()})
			merged, err := g.UpsertEdge("MENTORS", "ada", "grace", props)

			Convey("The matched edge should keep its label", func() {
				So(err, ShouldBeNil)
				So(merged, ShouldEqual, e)
				So(merged.Label(), ShouldEqual, "KNOWS")
				So(g.Edges().Len(), ShouldEqual, 1)
			})
		})

		Convey("When upserting without an ident but matching endpoints and label", func() {
			merged, err := g.UpsertEdge("KNOWS", "ada", "grace", buildProps(map[string]any{"weight": 2}))

			Convey("The triple match should find the existing edge", func() {
				So(err, ShouldBeNil)
				So(merged, ShouldEqual, e)
				So(g.Edges().Len(), ShouldEqual, 1)
			})
		})

		Convey("When the label differs", func() {
			created, err := g.UpsertEdge("MENTORS", "ada", "grace", nil)

			Convey("A new edge should be created", func() {
				So(err, ShouldBeNil)
				So(created, ShouldNotEqual, e)
				So(g.Edges().Len(), ShouldEqual, 2)
			})
		})
	})
}

func TestRemove(t *testing.T) {
	Convey("Given a populated graph", t, func() {
		g := New("test")
		_, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada"}))
		So(err, ShouldBeNil)
		_, err = g.AddVertex("Person", buildProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)
		e, err := g.AddEdge("KNOWS", "ada", "grace", nil)
		So(err, ShouldBeNil)

		Convey("When removing by ident", func() {
			So(g.RemoveEdge(e.Ident()), ShouldBeTrue)
			So(g.RemoveVertex("ada"), ShouldBeTrue)

			So(g.Edges().Len(), ShouldEqual, 0)
			So(g.Vertices().Len(), ShouldEqual, 1)
		})

		Convey("When removing an unknown ident", func() {
			So(g.RemoveVertex("nobody"), ShouldBeFalse)
			So(g.RemoveEdge("nothing"), ShouldBeFalse)
		})
	})
}

func TestCloneAndEqual(t *testing.T) {
	Convey("Given a populated graph", t, func() {
		g := New("test")
		v, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada", "name": "Ada"}))
		So(err, ShouldBeNil)
		_, err = g.AddVertex("Person", buildProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)
		_, err = g.AddEdge("KNOWS", "ada", "grace", nil)
		So(err, ShouldBeNil)

		Convey("When cloning", func() {
			clone := g.Clone()

			Convey("The copy should be equal", func() {
				So(clone.Equal(g), ShouldBeTrue)
			})

			Convey("Mutating the original should not leak into the clone", func() {
				v.Properties().Set("name", String("changed"))
				So(clone.Equal(g), ShouldBeFalse)
			})
		})

		Convey("When cloning a graph with a custom cache capacity and ident shape", func() {
			custom := NewWithCapacity("tuned", 7)
			custom.SetIdentShape(5, "-")

			clone := custom.Clone()

			Convey("The tuning should carry over", func() {
				So(clone.cacheCapacity, ShouldEqual, 7)
				So(clone.identWords, ShouldEqual, 5)
				So(clone.identDelimiter, ShouldEqual, "-")
			})
		})
	})
}

func TestGraphJSON(t *testing.T) {
	Convey("Given a populated graph", t, func() {
		g := New("roundtrip")
		_, err := g.AddVertex("Person", buildProps(map[string]any{"ident": "ada", "name": "Ada"}))
		So(err, ShouldBeNil)
		_, err = g.AddVertex("Person", buildProps(map[string]any{"ident": "grace"}))
		So(err, ShouldBeNil)
		_, err = g.AddEdge("KNOWS", "ada", "grace", buildProps(map[string]any{"since": 1843}))
		So(err, ShouldBeNil)

		Convey("When marshalling and unmarshalling", func() {
			raw, err := json.Marshal(g)
			So(err, ShouldBeNil)

			var decoded Graph
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)

			Convey("The decoded graph should be equal", func() {
				So(decoded.Name(), ShouldEqual, "roundtrip")
				So(decoded.Equal(g), ShouldBeTrue)
			})
		})

		Convey("When a payload carries duplicate idents", func() {
			var decoded Graph
			err := json.Unmarshal([]byte(`{
				"name": "bad",
				"vertices": [
					{"label": "A", "properties": {"ident": "dup"}},
					{"label": "B", "properties": {"ident": "dup"}}
				],
				"edges": []
			}`), &decoded)

			Convey("Decoding should fail", func() {
				So(errors.Is(err, ErrDuplicateIdent), ShouldBeTrue)
			})
		})
	})
}

func TestSetIdentShape(t *testing.T) {
	Convey("Given a graph with a custom ident shape", t, func() {
		g := New("shaped")
		g.SetIdentShape(2, "-")

		Convey("When adding a vertex without an ident", func() {
			v, err := g.AddVertex("Node", nil)

			Convey("The generated ident should follow the shape", func() {
				So(err, ShouldBeNil)
				So(strings.Count(v.Ident(), "-"), ShouldEqual, 1)
			})
		})
	})
}
