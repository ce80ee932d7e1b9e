package candidate_test

import (
	"testing"
	"time"

	candidate "github.com/courtside/refassign/internal/domain/candidate"
	constraint "github.com/courtside/refassign/internal/domain/constraint"
	model "github.com/courtside/refassign/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeState is a canned optimizer state for generator tests.
type fakeState struct {
	bookings map[string][]constraint.Booking
	crew     map[string][]string
	loads    map[string]int
}

func (s *fakeState) BookingsFor(refereeID string) []constraint.Booking {
	return s.bookings[refereeID]
}

func (s *fakeState) CrewFor(gameID string) []string {
	return s.crew[gameID]
}

func (s *fakeState) RunLoadFor(refereeID string) int {
	return s.loads[refereeID]
}

func emptyState() *fakeState {
	return &fakeState{
		bookings: map[string][]constraint.Booking{},
		crew:     map[string][]string{},
		loads:    map[string]int{},
	}
}

func poolSnapshot(referees ...model.Referee) *model.SchedulingContext {
	return &model.SchedulingContext{
		Venues: []model.Venue{{
			ID:       "venue-1",
			Location: model.GeoPoint{Lat: 39.7684, Lon: -86.1581},
		}},
		Games: []model.Game{{
			ID:       "game-1",
			Division: model.Division{ID: "div-1", RequiredExperience: model.Intermediate},
			VenueID:  "venue-1",
			Start:    time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC),
			Duration: time.Hour,
			Type:     model.Regular,
			Required: []model.RequiredOfficial{{Role: model.HeadReferee, Quantity: 1}},
		}},
		Referees: referees,
	}
}

func official(id string, level model.ExperienceLevel) model.Referee {
	return model.Referee{
		ID:         id,
		Experience: level,
		Home:       model.GeoPoint{Lat: 39.7684, Lon: -86.1581},
		Active:     true,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a mixed referee pool", t, func() {
		fit := official("ref-fit", model.Intermediate)
		senior := official("ref-senior", model.Certified)
		junior := official("ref-junior", model.Beginner)
		inactive := official("ref-idle", model.Intermediate)
		inactive.Active = false

		sc := poolSnapshot(fit, senior, junior, inactive)
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		Convey("When generating candidates for the slot", func() {
			ranked, misses := gen.Generate(&sc.Games[0], model.HeadReferee, emptyState())

			Convey("Then admissible referees are ranked by penalty", func() {
				So(ranked, ShouldHaveLength, 2)
				// The exact match costs nothing; the senior carries an
				// over-qualification charge.
				So(ranked[0].Referee.ID, ShouldEqual, "ref-fit")
				So(ranked[0].SoftPenalty, ShouldEqual, 0.0)
				So(ranked[1].Referee.ID, ShouldEqual, "ref-senior")
				So(ranked[1].SoftPenalty, ShouldBeGreaterThan, 0.0)
			})

			Convey("Then the rejected referees are reported as near-misses", func() {
				So(misses, ShouldHaveLength, 2)
				ids := []string{misses[0].RefereeID, misses[1].RefereeID}
				So(ids, ShouldContain, "ref-junior")
				So(ids, ShouldContain, "ref-idle")
				for _, m := range misses {
					So(m.Violations, ShouldNotBeEmpty)
					So(m.Detail, ShouldNotBeEmpty)
				}
			})
		})
	})

	Convey("Given a role-specialized pool", t, func() {
		scorekeeper := official("ref-score", model.Intermediate)
		scorekeeper.Specializations = []model.GameRole{model.Scorekeeper}
		anyRole := official("ref-any", model.Intermediate)

		sc := poolSnapshot(scorekeeper, anyRole)
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		Convey("When the slot needs a head referee", func() {
			ranked, misses := gen.Generate(&sc.Games[0], model.HeadReferee, emptyState())

			Convey("Then mismatched specialists are skipped silently", func() {
				So(ranked, ShouldHaveLength, 1)
				So(ranked[0].Referee.ID, ShouldEqual, "ref-any")
				So(misses, ShouldBeEmpty)
			})
		})

		Convey("When the slot needs a scorekeeper", func() {
			ranked, _ := gen.Generate(&sc.Games[0], model.Scorekeeper, emptyState())

			So(ranked, ShouldHaveLength, 2)
		})
	})

	Convey("Given equally penalized referees", t, func() {
		a := official("ref-a", model.Intermediate)
		a.Reliability = 0.8
		b := official("ref-b", model.Intermediate)
		b.Reliability = 0.95
		c := official("ref-c", model.Intermediate)
		c.Reliability = 0.8

		sc := poolSnapshot(a, b, c)
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		Convey("When ranking with equal penalties", func() {
			ranked, _ := gen.Generate(&sc.Games[0], model.HeadReferee, emptyState())

			Convey("Then higher reliability leads, then id order", func() {
				So(ranked, ShouldHaveLength, 3)
				So(ranked[0].Referee.ID, ShouldEqual, "ref-b")
				So(ranked[1].Referee.ID, ShouldEqual, "ref-a")
				So(ranked[2].Referee.ID, ShouldEqual, "ref-c")
			})
		})

		Convey("When one referee already carries run load", func() {
			state := emptyState()
			state.loads["ref-a"] = 2
			ranked, _ := gen.Generate(&sc.Games[0], model.HeadReferee, state)

			Convey("Then the lighter-loaded referee wins the tie", func() {
				So(ranked[0].Referee.ID, ShouldEqual, "ref-b")
				So(ranked[1].Referee.ID, ShouldEqual, "ref-c")
				So(ranked[2].Referee.ID, ShouldEqual, "ref-a")
			})
		})
	})

	Convey("Given a referee with a conflicting booking", t, func() {
		free := official("ref-free", model.Intermediate)
		busy := official("ref-busy", model.Intermediate)

		sc := poolSnapshot(free, busy)
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		state := emptyState()
		state.bookings["ref-busy"] = []constraint.Booking{{
			GameID:  "game-other",
			VenueID: "venue-1",
			Start:   sc.Games[0].Start,
			End:     sc.Games[0].End(),
		}}

		Convey("When generating candidates", func() {
			ranked, misses := gen.Generate(&sc.Games[0], model.HeadReferee, state)

			Convey("Then the double-booked referee becomes a near-miss", func() {
				So(ranked, ShouldHaveLength, 1)
				So(ranked[0].Referee.ID, ShouldEqual, "ref-free")
				So(misses, ShouldHaveLength, 1)
				So(misses[0].RefereeID, ShouldEqual, "ref-busy")
				So(misses[0].Violations, ShouldContain, model.DoubleBooking)
			})
		})
	})

	Convey("Given an empty pool", t, func() {
		sc := poolSnapshot()
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		ranked, misses := gen.Generate(&sc.Games[0], model.HeadReferee, emptyState())

		So(ranked, ShouldBeEmpty)
		So(misses, ShouldBeEmpty)
	})

	Convey("Given near-misses with different violation counts", t, func() {
		// Inactive and under-qualified: two violations.
		worst := official("ref-a-worst", model.Beginner)
		worst.Active = false
		// Under-qualified only: one violation.
		mild := official("ref-z-mild", model.Beginner)

		sc := poolSnapshot(worst, mild)
		gen := candidate.New(constraint.NewEvaluator(sc), sc.Referees)

		_, misses := gen.Generate(&sc.Games[0], model.HeadReferee, emptyState())

		Convey("Then fewer violations sort first despite id order", func() {
			So(misses, ShouldHaveLength, 2)
			So(misses[0].RefereeID, ShouldEqual, "ref-z-mild")
			So(misses[1].RefereeID, ShouldEqual, "ref-a-worst")
		})
	})
}
