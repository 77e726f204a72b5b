package dsn

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeQuery(t *testing.T) {
	Convey("Given a raw query string", t, func() {
		Convey("When decoding ordinary pairs", func() {
			pairs, err := DecodeQuery("a=1&b=two&a=3")

			Convey("Order and duplicates should be preserved", func() {
				So(err, ShouldBeNil)
				So(pairs, ShouldResemble, []Pair{
					{Key: "a", Value: "1"},
					{Key: "b", Value: "two"},
					{Key: "a", Value: "3"},
				})
			})

			Convey("QueryValue should return the first occurrence", func() {
				val, ok := QueryValue(pairs, "a")
				So(ok, ShouldBeTrue)
				So(val, ShouldEqual, "1")

				_, ok = QueryValue(pairs, "missing")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When decoding blank and valueless entries", func() {
			pairs, err := DecodeQuery("empty=&flag")

			So(err, ShouldBeNil)
			So(pairs, ShouldResemble, []Pair{
				{Key: "empty", Value: ""},
				{Key: "flag", Value: ""},
			})
		})

		Convey("When decoding percent-escapes", func() {
			pairs, err := DecodeQuery("name=hello%20world")

			So(err, ShouldBeNil)
			So(pairs[0].Value, ShouldEqual, "hello world")
		})

		Convey("When an escape is invalid", func() {
			_, err := DecodeQuery("bad=%zz")

			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrParse), ShouldBeTrue)
		})

		Convey("When the query is empty", func() {
			pairs, err := DecodeQuery("")

			So(err, ShouldBeNil)
			So(pairs, ShouldBeNil)
		})
	})
}

func TestEncodeQuery(t *testing.T) {
	Convey("Given decoded pairs", t, func() {
		raw := "a=1&b=hello+world&c="

		pairs, err := DecodeQuery(raw)
		So(err, ShouldBeNil)

		Convey("Encoding should reproduce the canonical form", func() {
			So(EncodeQuery(pairs), ShouldEqual, raw)
		})
	})
}
