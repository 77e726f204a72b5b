package cache

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewLRU(t *testing.T) {
	Convey("Given a requested capacity", t, func() {
		Convey("When creating a cache", func() {
			lru := NewLRU(3)

			Convey("It should start empty", func() {
				So(lru.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the capacity is not positive", func() {
			lru := NewLRU(0)
			lru.Put("a", 1)

			Convey("It should still hold at least one entry", func() {
				val, ok := lru.Get("a")
				So(ok, ShouldBeTrue)
				So(val, ShouldEqual, 1)
			})
		})
	})
}

func TestPutAndGet(t *testing.T) {
	Convey("Given a cache with capacity 2", t, func() {
		lru := NewLRU(2)

		Convey("When storing and retrieving entries", func() {
			lru.Put("a", 1)
			lru.Put("b", 2)

			val, ok := lru.Get("a")
			So(ok, ShouldBeTrue)
			So(val, ShouldEqual, 1)

			Convey("A miss should report not found", func() {
				_, ok := lru.Get("missing")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When overwriting an existing key", func() {
			lru.Put("a", 1)
			lru.Put("a", 10)

			Convey("The newest value should win without growing the cache", func() {
				val, ok := lru.Get("a")
				So(ok, ShouldBeTrue)
				So(val, ShouldEqual, 10)
				So(lru.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a full cache", t, func() {
		lru := NewLRU(2)
		lru.Put("a", 1)
		lru.Put("b", 2)

		Convey("When adding one more entry", func() {
			lru.Put("c", 3)

			Convey("The least recently used entry should be evicted", func() {
				_, ok := lru.Get("a")
				So(ok, ShouldBeFalse)
				So(lru.Len(), ShouldEqual, 2)
			})
		})

		Convey("When an old entry was read just before the overflow", func() {
			lru.Get("a")
			lru.Put("c", 3)

			Convey("The read should have refreshed it", func() {
				_, ok := lru.Get("a")
				So(ok, ShouldBeTrue)

				_, ok = lru.Get("b")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestClear(t *testing.T) {
	Convey("Given a populated cache", t, func() {
		lru := NewLRU(4)
		lru.Put("a", 1)
		lru.Put("b", 2)

		Convey("When clearing it", func() {
			lru.Clear()

			Convey("It should be empty and usable again", func() {
				So(lru.Len(), ShouldEqual, 0)

				_, ok := lru.Get("a")
				So(ok, ShouldBeFalse)

				lru.Put("c", 3)
				val, ok := lru.Get("c")
				So(ok, ShouldBeTrue)
				So(val, ShouldEqual, 3)
			})
		})
	})
}
