package notify_test

import (
	"testing"
	"time"

	"github.com/courtside/refassign/internal/adapters/notify"
	"github.com/courtside/refassign/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func retryMessage(id string) model.Notification {
	return model.Notification{
		ID:        id,
		Kind:      model.NotifyOffer,
		RefereeID: "ref-1",
		Channel:   model.ChannelEmail,
	}
}

func TestRetryScheduler(t *testing.T) {
	Convey("Given a retry scheduler", t, func() {
		s := notify.NewRetryScheduler()
		now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

		Convey("A fresh scheduler has nothing pending", func() {
			So(s.Pending(), ShouldEqual, 0)
			So(s.Due(now), ShouldBeEmpty)
		})

		Convey("When messages are added with retry times", func() {
			s.Add(retryMessage("msg-late"), now.Add(10*time.Second))
			s.Add(retryMessage("msg-early"), now.Add(2*time.Second))
			s.Add(retryMessage("msg-mid"), now.Add(5*time.Second))

			So(s.Pending(), ShouldEqual, 3)

			Convey("Then nothing is due before the earliest retry time", func() {
				So(s.Due(now.Add(time.Second)), ShouldBeEmpty)
				So(s.Pending(), ShouldEqual, 3)
			})

			Convey("Then Due pops everything at or before the given instant", func() {
				due := s.Due(now.Add(5 * time.Second))

				So(due, ShouldHaveLength, 2)
				So(due[0].ID, ShouldEqual, "msg-early")
				So(due[1].ID, ShouldEqual, "msg-mid")
				So(s.Pending(), ShouldEqual, 1)

				Convey("And a later sweep pops the rest exactly once", func() {
					rest := s.Due(now.Add(time.Minute))
					So(rest, ShouldHaveLength, 1)
					So(rest[0].ID, ShouldEqual, "msg-late")
					So(s.Due(now.Add(time.Minute)), ShouldBeEmpty)
				})
			})

			Convey("Then the stamped NotBefore matches the requested instant", func() {
				due := s.Due(now.Add(2 * time.Second))
				So(due, ShouldHaveLength, 1)
				So(due[0].NotBefore.Equal(now.Add(2*time.Second)), ShouldBeTrue)
			})
		})

		Convey("When cancelling a pending retry", func() {
			s.Add(retryMessage("msg-keep"), now.Add(time.Second))
			s.Add(retryMessage("msg-drop"), now.Add(time.Second))

			Convey("Then Cancel removes it by id", func() {
				So(s.Cancel("msg-drop"), ShouldBeTrue)
				So(s.Pending(), ShouldEqual, 1)

				due := s.Due(now.Add(time.Minute))
				So(due, ShouldHaveLength, 1)
				So(due[0].ID, ShouldEqual, "msg-keep")
			})

			Convey("Then cancelling an unknown id reports false", func() {
				So(s.Cancel("msg-unknown"), ShouldBeFalse)
				So(s.Pending(), ShouldEqual, 2)
			})
		})
	})
}
