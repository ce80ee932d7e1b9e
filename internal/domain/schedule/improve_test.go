package schedule_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	conflict "github.com/courtside/refassign/internal/domain/conflict"
	model "github.com/courtside/refassign/internal/domain/model"
	schedule "github.com/courtside/refassign/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

// travelSnapshot sets up two same-day games where greedy construction seats
// the near referee on the close venue and strands the far one on the distant
// venue. Exchanging them lowers total travel, so the improvement phase has
// exactly one profitable swap to find.
func travelSnapshot() model.SchedulingContext {
	saturday := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	division := model.Division{ID: "div-1", RequiredExperience: model.Intermediate}
	return model.SchedulingContext{
		Venues: []model.Venue{
			{ID: "venue-south", Location: model.GeoPoint{Lat: 39.7684, Lon: -86.1581}},
			{ID: "venue-north", Location: model.GeoPoint{Lat: 40.6, Lon: -86.1581}},
		},
		Games: []model.Game{
			{
				ID:       "game-1",
				Division: division,
				VenueID:  "venue-south",
				Start:    saturday,
				Duration: time.Hour,
				Type:     model.Regular,
				Required: []model.RequiredOfficial{{Role: model.HeadReferee, Quantity: 1}},
			},
			{
				ID:       "game-2",
				Division: division,
				VenueID:  "venue-north",
				Start:    saturday.Add(4 * time.Hour),
				Duration: time.Hour,
				Type:     model.Regular,
				Required: []model.RequiredOfficial{{Role: model.HeadReferee, Quantity: 1}},
			},
		},
		Referees: []model.Referee{
			// ~20 miles west of the south venue, ~61 from the north one.
			{ID: "ref-west", Experience: model.Intermediate, Home: model.GeoPoint{Lat: 39.7684, Lon: -86.535}, PayRate: 40, Reliability: 0.9, Active: true},
			// ~10 miles north of the south venue, ~47 from the north one.
			{ID: "ref-near", Experience: model.Intermediate, Home: model.GeoPoint{Lat: 39.9133, Lon: -86.1581}, PayRate: 40, Reliability: 0.9, Active: true},
		},
		Constraints: model.AssignmentConstraints{
			MaxGamesPerDay:      1,
			MinRestBetweenGames: 30 * time.Minute,
			Soft:                model.SoftPreferences{PreferLocal: true},
		},
		Objective: model.MaximizeCoverage,
	}
}

func TestImproveSwapRebalancesTravel(t *testing.T) {
	Convey("Given a greedy seating that strands the far referee", t, func() {
		sc := travelSnapshot()
		opt := schedule.New(schedule.WithMaxIterations(50))

		Convey("When running the optimizer", func() {
			res, err := opt.Run(context.Background(), &sc)

			Convey("Then the swap lands each referee on their cheaper game", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 2)

				byGame := make(map[string]string, 2)
				for _, a := range res.Assignments {
					byGame[a.GameID] = a.RefereeID
				}
				So(byGame["game-1"], ShouldEqual, "ref-west")
				So(byGame["game-2"], ShouldEqual, "ref-near")
			})

			Convey("Then the search settles instead of cycling", func() {
				So(err, ShouldBeNil)
				So(res.Iterations, ShouldBeGreaterThanOrEqualTo, 1)
				So(res.Iterations, ShouldBeLessThan, 50)
			})
		})
	})
}

func TestImproveNeverRegresses(t *testing.T) {
	Convey("Given the same context under different iteration budgets", t, func() {
		short := travelSnapshot()
		long := travelSnapshot()

		resShort, errShort := schedule.New(schedule.WithMaxIterations(1)).Run(context.Background(), &short)
		resLong, errLong := schedule.New(schedule.WithMaxIterations(200)).Run(context.Background(), &long)

		Convey("Then extra iterations never worsen the objective", func() {
			So(errShort, ShouldBeNil)
			So(errLong, ShouldBeNil)
			So(resLong.Objective, ShouldBeLessThanOrEqualTo, resShort.Objective+1e-9)
		})
	})
}

// randomSnapshot builds a plausible weekend slate from a seeded source so
// failures reproduce.
func randomSnapshot(r *rand.Rand) model.SchedulingContext {
	weekend := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	division := model.Division{ID: "div-1", RequiredExperience: model.Beginner}
	venues := []model.Venue{
		{ID: "venue-1", Location: model.GeoPoint{Lat: 39.7684, Lon: -86.1581}},
		{ID: "venue-2", Location: model.GeoPoint{Lat: 39.9, Lon: -86.3}},
		{ID: "venue-3", Location: model.GeoPoint{Lat: 39.6, Lon: -86.0}},
	}
	levels := []model.ExperienceLevel{model.Beginner, model.Intermediate, model.Experienced, model.Certified}

	games := make([]model.Game, 0, 8)
	for i := 0; i < 4+r.Intn(4); i++ {
		required := []model.RequiredOfficial{{Role: model.HeadReferee, Quantity: 1}}
		if r.Intn(2) == 0 {
			required = append(required, model.RequiredOfficial{Role: model.AssistantReferee, Quantity: 1 + r.Intn(2)})
		}
		games = append(games, model.Game{
			ID:       fmt.Sprintf("game-%d", i+1),
			Division: division,
			VenueID:  venues[r.Intn(len(venues))].ID,
			Start:    weekend.Add(time.Duration(r.Intn(2))*24*time.Hour + time.Duration(r.Intn(10))*time.Hour),
			Duration: time.Hour,
			Type:     model.Regular,
			Required: required,
		})
	}

	refs := make([]model.Referee, 0, 9)
	for i := 0; i < 5+r.Intn(4); i++ {
		ref := model.Referee{
			ID:          fmt.Sprintf("ref-%d", i+1),
			Experience:  levels[r.Intn(len(levels))],
			Home:        model.GeoPoint{Lat: 39.55 + r.Float64()*0.4, Lon: -86.4 + r.Float64()*0.4},
			PayRate:     30 + float64(r.Intn(30)),
			Reliability: 0.7 + r.Float64()*0.3,
			Active:      true,
		}
		if r.Intn(4) == 0 {
			day := weekend.Add(time.Duration(r.Intn(2)) * 24 * time.Hour)
			ref.Blackouts = []model.BlackoutWindow{{Start: day, End: day.Add(time.Duration(2+r.Intn(6)) * time.Hour)}}
		}
		refs = append(refs, ref)
	}

	return model.SchedulingContext{
		Venues:   venues,
		Games:    games,
		Referees: refs,
		Constraints: model.AssignmentConstraints{
			MaxGamesPerDay:      2,
			MaxConsecutiveGames: 2,
			MinRestBetweenGames: 30 * time.Minute,
			Soft: model.SoftPreferences{
				PreferLocal:        true,
				BalanceAssignments: true,
			},
		},
		Objective: model.MaximizeCoverage,
	}
}

func TestRandomizedRunsStayConflictFree(t *testing.T) {
	Convey("Given a spread of seeded random slates", t, func() {
		for i := 0; i < 12; i++ {
			seed := int64(7000 + i)

			Convey(fmt.Sprintf("When optimizing the seed-%d slate", seed), func() {
				short := randomSnapshot(rand.New(rand.NewSource(seed)))
				long := randomSnapshot(rand.New(rand.NewSource(seed)))

				resShort, errShort := schedule.New(schedule.WithMaxIterations(1)).Run(context.Background(), &short)
				resLong, errLong := schedule.New(schedule.WithMaxIterations(100)).Run(context.Background(), &long)
				So(errShort, ShouldBeNil)
				So(errLong, ShouldBeNil)

				Convey("Then the output carries no critical conflicts", func() {
					conflicts := conflict.New().Detect(&long, resLong.Assignments)
					So(conflict.HasCritical(conflicts), ShouldBeFalse)
				})

				Convey("Then every slot is either filled or accounted for", func() {
					slots := 0
					for _, g := range long.Games {
						slots += g.SlotCount()
					}
					So(len(resLong.Assignments)+len(resLong.Unassigned), ShouldEqual, slots)
				})

				Convey("Then the longer budget never does worse", func() {
					So(resLong.Objective, ShouldBeLessThanOrEqualTo, resShort.Objective+1e-9)
					So(resLong.Iterations, ShouldBeLessThan, 100)
				})
			})
		}
	})
}
