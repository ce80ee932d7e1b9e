package model_test

import (
	"testing"
	"time"

	model "github.com/courtside/refassign/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestAssignmentConstraintsCaps(t *testing.T) {
	convey.Convey("Given league defaults and per-referee limits", t, func() {
		league := model.AssignmentConstraints{
			MaxGamesPerDay:      4,
			MaxGamesPerWeek:     12,
			MaxConsecutiveGames: 3,
			MinRestBetweenGames: 30 * time.Minute,
		}

		convey.Convey("When the referee declares no limits", func() {
			ref := model.Referee{ID: "ref-1"}

			convey.Convey("Then the league defaults apply", func() {
				convey.So(league.MaxGamesPerDayFor(&ref), convey.ShouldEqual, 4)
				convey.So(league.MaxGamesPerWeekFor(&ref), convey.ShouldEqual, 12)
				convey.So(league.MaxConsecutiveFor(&ref), convey.ShouldEqual, 3)
				convey.So(league.MinRestFor(&ref), convey.ShouldEqual, 30*time.Minute)
			})
		})

		convey.Convey("When the referee is stricter than the league", func() {
			ref := model.Referee{
				ID: "ref-2",
				Limits: model.WorkloadLimits{
					MaxGamesPerDay:      2,
					MaxGamesPerWeek:     20,
					MinRestBetweenGames: time.Hour,
				},
			}

			convey.Convey("Then the stricter value wins per cap", func() {
				convey.So(league.MaxGamesPerDayFor(&ref), convey.ShouldEqual, 2)
				convey.So(league.MaxGamesPerWeekFor(&ref), convey.ShouldEqual, 12)
				convey.So(league.MinRestFor(&ref), convey.ShouldEqual, time.Hour)
			})
		})

		convey.Convey("When the league declares no caps", func() {
			open := model.AssignmentConstraints{}
			ref := model.Referee{
				ID:     "ref-3",
				Limits: model.WorkloadLimits{MaxGamesPerDay: 5},
			}

			convey.Convey("Then only the referee's cap applies", func() {
				convey.So(open.MaxGamesPerDayFor(&ref), convey.ShouldEqual, 5)
				convey.So(open.MaxGamesPerWeekFor(&ref), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestSchedulingContextLookups(t *testing.T) {
	convey.Convey("Given a populated scheduling context", t, func() {
		sc := model.SchedulingContext{
			Venues: []model.Venue{
				{ID: "venue-1", Name: "North Gym"},
				{ID: "venue-2", Name: "South Gym"},
			},
			Games: []model.Game{
				{ID: "game-1", VenueID: "venue-1"},
			},
			Referees: []model.Referee{
				{ID: "ref-1", Name: "Sam Ortega"},
			},
		}

		convey.Convey("When looking up known ids", func() {
			convey.So(sc.VenueByID("venue-2"), convey.ShouldNotBeNil)
			convey.So(sc.VenueByID("venue-2").Name, convey.ShouldEqual, "South Gym")
			convey.So(sc.GameByID("game-1"), convey.ShouldNotBeNil)
			convey.So(sc.RefereeByID("ref-1").Name, convey.ShouldEqual, "Sam Ortega")
		})

		convey.Convey("When looking up unknown ids", func() {
			convey.So(sc.VenueByID("venue-9"), convey.ShouldBeNil)
			convey.So(sc.GameByID("game-9"), convey.ShouldBeNil)
			convey.So(sc.RefereeByID("ref-9"), convey.ShouldBeNil)
		})

		convey.Convey("When mutating through a returned pointer", func() {
			sc.RefereeByID("ref-1").Name = "Sam O."

			convey.Convey("Then the context snapshot reflects the change", func() {
				convey.So(sc.Referees[0].Name, convey.ShouldEqual, "Sam O.")
			})
		})
	})
}
