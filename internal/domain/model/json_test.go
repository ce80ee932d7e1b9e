package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/courtside/refassign/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestExperienceLevelJSON(t *testing.T) {
	convey.Convey("Given experience levels on the wire", t, func() {
		convey.Convey("When marshaling", func() {
			data, err := json.Marshal(model.Experienced)

			convey.Convey("Then the level name is encoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, `"EXPERIENCED"`)
			})
		})

		convey.Convey("When unmarshaling a known name", func() {
			var level model.ExperienceLevel
			err := json.Unmarshal([]byte(`"CERTIFIED"`), &level)

			convey.So(err, convey.ShouldBeNil)
			convey.So(level, convey.ShouldEqual, model.Certified)
		})

		convey.Convey("When unmarshaling an unknown name", func() {
			var level model.ExperienceLevel
			err := json.Unmarshal([]byte(`"GRANDMASTER"`), &level)

			convey.Convey("Then the value is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When unmarshaling a non-string", func() {
			var level model.ExperienceLevel
			err := json.Unmarshal([]byte(`3`), &level)

			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestParseExperienceLevel(t *testing.T) {
	convey.Convey("Given level names", t, func() {
		convey.Convey("Then every known name parses to its value", func() {
			for want, name := range map[model.ExperienceLevel]string{
				model.Volunteer:    "VOLUNTEER",
				model.Beginner:     "BEGINNER",
				model.Intermediate: "INTERMEDIATE",
				model.Experienced:  "EXPERIENCED",
				model.Certified:    "CERTIFIED",
			} {
				got, err := model.ParseExperienceLevel(name)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Then lowercase and unknown names are rejected", func() {
			_, err := model.ParseExperienceLevel("certified")
			convey.So(err, convey.ShouldNotBeNil)

			_, err = model.ParseExperienceLevel("")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestEnumValidators(t *testing.T) {
	convey.Convey("Given the boundary enum validators", t, func() {
		convey.So(model.ValidRole(model.HeadReferee), convey.ShouldBeTrue)
		convey.So(model.ValidRole(model.ShotClockOperator), convey.ShouldBeTrue)
		convey.So(model.ValidRole(model.GameRole("UMPIRE")), convey.ShouldBeFalse)

		convey.So(model.ValidGameType(model.Friendly), convey.ShouldBeTrue)
		convey.So(model.ValidGameType(model.GameType("SCRIMMAGE")), convey.ShouldBeFalse)

		convey.So(model.ValidObjective(model.BalanceWorkload), convey.ShouldBeTrue)
		convey.So(model.ValidObjective(model.OptimizationObjective("MINIMIZE_CHAOS")), convey.ShouldBeFalse)

		convey.So(model.ValidChannel(model.ChannelSMS), convey.ShouldBeTrue)
		convey.So(model.ValidChannel(model.NotificationChannel("FAX")), convey.ShouldBeFalse)
	})
}

func TestSchedulingContextValidate(t *testing.T) {
	valid := func() model.SchedulingContext {
		return model.SchedulingContext{
			Venues: []model.Venue{{ID: "venue-1"}},
			Games: []model.Game{{
				ID:       "game-1",
				VenueID:  "venue-1",
				Start:    time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC),
				Duration: time.Hour,
				Type:     model.Regular,
				Required: []model.RequiredOfficial{
					{Role: model.HeadReferee, Quantity: 1},
				},
			}},
			Referees:  []model.Referee{{ID: "ref-1", Active: true}},
			Objective: model.MaximizeCoverage,
		}
	}

	convey.Convey("Given a well-formed context", t, func() {
		sc := valid()
		convey.So(sc.Validate(), convey.ShouldBeNil)
	})

	convey.Convey("Given an empty context", t, func() {
		sc := model.SchedulingContext{}
		convey.So(sc.Validate(), convey.ShouldBeNil)
	})

	convey.Convey("Given malformed games", t, func() {
		convey.Convey("When a game is missing its id", func() {
			sc := valid()
			sc.Games[0].ID = ""
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a game has an unknown type", func() {
			sc := valid()
			sc.Games[0].Type = "SCRIMMAGE"
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a game has no start time", func() {
			sc := valid()
			sc.Games[0].Start = time.Time{}
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a game has a non-positive duration", func() {
			sc := valid()
			sc.Games[0].Duration = 0
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a game references an unknown venue", func() {
			sc := valid()
			sc.Games[0].VenueID = "venue-9"
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a required role is unknown", func() {
			sc := valid()
			sc.Games[0].Required[0].Role = "UMPIRE"
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a required quantity is zero", func() {
			sc := valid()
			sc.Games[0].Required[0].Quantity = 0
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given malformed referees", t, func() {
		convey.Convey("When a referee is missing its id", func() {
			sc := valid()
			sc.Referees[0].ID = ""
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a specialization is unknown", func() {
			sc := valid()
			sc.Referees[0].Specializations = []model.GameRole{"UMPIRE"}
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a notification channel is unknown", func() {
			sc := valid()
			sc.Referees[0].Channels = []model.NotificationChannel{"FAX"}
			convey.So(sc.Validate(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an unknown objective", t, func() {
		sc := valid()
		sc.Objective = "MINIMIZE_CHAOS"
		convey.So(sc.Validate(), convey.ShouldNotBeNil)
	})
}
