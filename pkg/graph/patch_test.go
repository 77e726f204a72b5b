package graph

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func seedPatchGraph() *Graph {
	g := New("patch")

	for _, raw := range []map[string]any{
		{"ident": "ada", "name": "Ada", "born": 1815},
		{"ident": "grace", "name": "Grace"},
	} {
		if _, err := g.AddVertex("Person", buildProps(raw)); err != nil {
			panic(err)
		}
	}

	if _, err := g.AddEdge("KNOWS", "ada", "grace",
		buildProps(map[string]any{"ident": "ada_knows_grace", "since": 1843})); err != nil {
		panic(err)
	}

	return g
}

func TestDiffIdenticalGraphs(t *testing.T) {
	Convey("Given two identical snapshots", t, func() {
		source := seedPatchGraph()
		target := source.Clone()

		Convey("When diffing", func() {
			patch := Diff(source, target)

			Convey("The patch should be empty", func() {
				So(patch.Empty(), ShouldBeTrue)
			})
		})
	})
}

func TestDiffOrdering(t *testing.T) {
	Convey("Given a target that removes a connected vertex and its edge", t, func() {
		source := seedPatchGraph()

		target := source.Clone()
		So(target.RemoveEdge("ada_knows_grace"), ShouldBeTrue)
		So(target.RemoveVertex("grace"), ShouldBeTrue)

		Convey("When diffing", func() {
			patch := Diff(source, target)
			mutations := patch.Mutations()

			Convey("The edge removal should precede the vertex removal", func() {
				So(len(mutations), ShouldEqual, 2)
				So(mutations[0].Op, ShouldEqual, OpRemove)
				So(mutations[0].IsEdge(), ShouldBeTrue)
				So(mutations[1].Op, ShouldEqual, OpRemove)
				So(mutations[1].IsVertex(), ShouldBeTrue)
			})

			Convey("Applying to the source should reproduce the target", func() {
				So(patch.Apply(source), ShouldBeNil)
				So(source.Equal(target), ShouldBeTrue)
			})
		})
	})

	Convey("Given a target that adds a connected vertex and edge", t, func() {
		source := seedPatchGraph()

		target := source.Clone()
		_, err := target.AddVertex("Person", buildProps(map[string]any{"ident": "alan"}))
		So(err, ShouldBeNil)
		_, err = target.AddEdge("KNOWS", "grace", "alan", nil)
		So(err, ShouldBeNil)

		Convey("When diffing", func() {
			patch := Diff(source, target)
			mutations := patch.Mutations()

			Convey("The vertex addition should precede the edge addition", func() {
				So(len(mutations), ShouldEqual, 2)
				So(mutations[0].Op, ShouldEqual, OpAdd)
				So(mutations[0].IsVertex(), ShouldBeTrue)
				So(mutations[1].Op, ShouldEqual, OpAdd)
				So(mutations[1].IsEdge(), ShouldBeTrue)
			})

			Convey("The edge addition should carry resolved endpoint labels", func() {
				So(mutations[1].StartLabel, ShouldEqual, "Person")
				So(mutations[1].EndLabel, ShouldEqual, "Person")
			})
		})
	})
}

func TestDiffPropertyDelta(t *testing.T) {
	Convey("Given a target with changed, added and dropped properties", t, func() {
		source := seedPatchGraph()

		target := source.Clone()
		ada, ok := target.Vertices().ByIdent("ada")
		So(ok, ShouldBeTrue)
		ada.Properties().Set("born", Int(1816))
		ada.Properties().Set("field", String("mathematics"))
		ada.Properties().Delete("name")

		Convey("When diffing", func() {
			patch := Diff(source, target)
			mutations := patch.Mutations()

			So(len(mutations), ShouldEqual, 1)
			m := mutations[0]

			Convey("The update should carry only the delta", func() {
				So(m.Op, ShouldEqual, OpUpdate)
				So(m.Ident, ShouldEqual, "ada")
				So(len(m.Set), ShouldEqual, 2)
				So(m.Set["born"].Equal(Int(1816)), ShouldBeTrue)
				So(m.Set["field"].Equal(String("mathematics")), ShouldBeTrue)
				So(m.Removed, ShouldResemble, []string{"name"})
			})

			Convey("Unchanged keys should not appear in the delta", func() {
				_, ok := m.Set["ident"]
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestDiffLabelMismatch(t *testing.T) {
	Convey("Given two entities sharing an ident but not a label", t, func() {
		source := New("labels")
		_, err := source.AddVertex("Person", buildProps(map[string]any{"ident": "x", "a": 1}))
		So(err, ShouldBeNil)

		target := New("labels")
		_, err = target.AddVertex("Robot", buildProps(map[string]any{"ident": "x", "a": 2}))
		So(err, ShouldBeNil)

		Convey("When diffing", func() {
			patch := Diff(source, target)
			mutations := patch.Mutations()

			Convey("Only a property update should be emitted", func() {
				So(len(mutations), ShouldEqual, 1)
				So(mutations[0].Op, ShouldEqual, OpUpdate)
				So(mutations[0].Set["a"].Equal(Int(2)), ShouldBeTrue)
			})
		})
	})
}

func TestApplyIdempotence(t *testing.T) {
	Convey("Given a patch transforming source into target", t, func() {
		source := seedPatchGraph()

		target := source.Clone()
		_, err := target.AddVertex("Person", buildProps(map[string]any{"ident": "alan"}))
		So(err, ShouldBeNil)
		ada, _ := target.Vertices().ByIdent("ada")
		ada.Properties().Set("born", Int(1816))
		So(target.RemoveEdge("ada_knows_grace"), ShouldBeTrue)

		patch := Diff(source, target)

		Convey("When applying twice", func() {
			So(patch.Apply(source), ShouldBeNil)
			snapshot := source.Clone()

			So(patch.Apply(source), ShouldBeNil)

			Convey("The second application should change nothing", func() {
				So(source.Equal(snapshot), ShouldBeTrue)
				So(source.Equal(target), ShouldBeTrue)
			})
		})
	})
}

func TestApplyMissingUpdateTarget(t *testing.T) {
	Convey("Given an update whose target vertex is gone", t, func() {
		source := seedPatchGraph()

		target := source.Clone()
		ada, _ := target.Vertices().ByIdent("ada")
		ada.Properties().Set("born", Int(1900))

		patch := Diff(source, target)
		So(source.RemoveEdge("ada_knows_grace"), ShouldBeTrue)
		So(source.RemoveVertex("ada"), ShouldBeTrue)

		Convey("When applying", func() {
			err := patch.Apply(source)

			Convey("The apply should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
