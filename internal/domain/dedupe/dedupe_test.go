package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/courtside/refassign/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording notification ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(context.Background(), "offer-asg-1-v1")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(context.Background(), "offer-asg-1-v1")
				seen := d.SeenAndRecord(context.Background(), "offer-asg-1-v1")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And a new version of the same offer arrives", func() {
				d.SeenAndRecord(context.Background(), "offer-asg-1-v1")
				seen := d.SeenAndRecord(context.Background(), "offer-asg-1-v2")

				Convey("Then the new id passes through", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 2)
				})
			})
		})

		Convey("When unrecording an id", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(context.Background(), "offer-asg-1-v1")

			d.Unrecord(context.Background(), "offer-asg-1-v1")

			Convey("Then the id can be dispatched again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(context.Background(), "offer-asg-1-v1"), ShouldBeFalse)
			})

			Convey("And unrecording an unknown id is harmless", func() {
				So(func() { d.Unrecord(context.Background(), "never-seen") }, ShouldNotPanic)
			})
		})

		Convey("When the deduper reaches its bound", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 3; i++ {
				d.SeenAndRecord(context.Background(), fmt.Sprintf("msg-%d", i))
			}

			Convey("And one more id arrives", func() {
				seen := d.SeenAndRecord(context.Background(), "msg-4")

				Convey("Then the oldest id is evicted first", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)
					// msg-1 was evicted, so it reads as unseen again.
					So(d.SeenAndRecord(context.Background(), "msg-1"), ShouldBeFalse)
				})
			})
		})

		Convey("When many goroutines record the same id", func() {
			d := dedupe.NewInMemoryDeduper()
			const workers = 16
			results := make([]bool, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = d.SeenAndRecord(context.Background(), "contested")
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one recording wins", func() {
				unseen := 0
				for _, seen := range results {
					if !seen {
						unseen++
					}
				}
				So(unseen, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
