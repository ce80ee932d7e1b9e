// Package constraint implements the pure admissibility and penalty evaluator
// for candidate (referee, game, role) assignments. The evaluator has no side
// effects: local-search moves can be scored freely and concurrently.
package constraint

import (
	"fmt"
	"time"

	"github.com/courtside/refassign/internal/domain/geo"
	"github.com/courtside/refassign/internal/domain/model"
)

// ConsecutiveBreak is the gap threshold under which two same-day games count
// as consecutive for the max-consecutive cap. The post-hoc detector applies
// the same threshold when it re-validates finished schedules.
const ConsecutiveBreak = 60 * time.Minute

// backToBackWindow is how close another game must be for the avoid-back-to-back
// preference to charge a penalty.
const backToBackWindow = 2 * time.Hour

// Booking is a resolved time commitment a referee already holds, either an
// existing assignment or one made provisionally earlier in the current run.
type Booking struct {
	GameID  string
	VenueID string
	Start   time.Time
	End     time.Time
}

// Evaluation is the outcome of scoring one candidate.
type Evaluation struct {
	Admissible     bool
	HardViolations []model.ConflictType
	SoftPenalty    float64
	Detail         string // human-readable reason for the first violation
}

// Candidate bundles the inputs for one evaluation.
type Candidate struct {
	Referee  *model.Referee
	Game     *model.Game
	Role     model.GameRole
	Bookings []Booking // existing + provisional, any order
	Crew     []string  // referee ids already slotted on the same game
}

// Evaluator checks hard constraints and scores soft preferences for one run.
// It is built once per run from the context snapshot and is safe for
// concurrent use.
type Evaluator struct {
	venues      map[string]*model.Venue
	referees    map[string]*model.Referee
	constraints model.AssignmentConstraints
	weights     Weights
	windowStart time.Time
	meanPayRate float64
}

// NewEvaluator builds an evaluator over a context snapshot.
func NewEvaluator(sc *model.SchedulingContext, opts ...Option) *Evaluator {
	e := &Evaluator{
		venues:      make(map[string]*model.Venue, len(sc.Venues)),
		referees:    make(map[string]*model.Referee, len(sc.Referees)),
		constraints: sc.Constraints,
		weights:     DefaultWeights(),
		windowStart: sc.Window.Start,
	}
	for i := range sc.Venues {
		e.venues[sc.Venues[i].ID] = &sc.Venues[i]
	}
	var totalRate float64
	for i := range sc.Referees {
		e.referees[sc.Referees[i].ID] = &sc.Referees[i]
		totalRate += sc.Referees[i].PayRate
	}
	if len(sc.Referees) > 0 {
		e.meanPayRate = totalRate / float64(len(sc.Referees))
	}
	for _, opt := range opts {
		opt(e)
	}
	e.weights = e.weights.scaledFor(sc.Objective)
	return e
}

// Evaluate runs all hard checks and, when the candidate is admissible,
// computes the weighted soft penalty.
func (e *Evaluator) Evaluate(c Candidate) Evaluation {
	ev := Evaluation{Admissible: true}

	fail := func(t model.ConflictType, detail string) {
		ev.Admissible = false
		ev.HardViolations = append(ev.HardViolations, t)
		if ev.Detail == "" {
			ev.Detail = detail
		}
	}

	ref, game := c.Referee, c.Game
	venue := e.venues[game.VenueID]
	start, end := game.Start, game.End()

	if !ref.Active {
		fail(model.AvailabilityConflict, fmt.Sprintf("%s is inactive", ref.ID))
	}

	// One referee fills at most one slot per game.
	for _, id := range c.Crew {
		if id == ref.ID {
			fail(model.DoubleBooking,
				fmt.Sprintf("%s already fills another slot on game %s", ref.ID, game.ID))
			break
		}
	}

	if e.constraints.AssignmentLeadTime > 0 && !e.windowStart.IsZero() && !e.constraints.AllowEmergency {
		if game.Start.Sub(e.windowStart) < e.constraints.AssignmentLeadTime {
			fail(model.AvailabilityConflict,
				fmt.Sprintf("game %s starts within the %s assignment lead time", game.ID, e.constraints.AssignmentLeadTime))
		}
	}

	required := e.requiredExperience(game, c.Role)
	if !ref.Experience.Meets(required) {
		fail(model.ExperienceMismatch,
			fmt.Sprintf("%s is %s, game requires %s", ref.ID, ref.Experience, required))
	}

	if len(ref.Availability) > 0 && !e.availabilityCovers(ref, start, end) {
		fail(model.AvailabilityConflict,
			fmt.Sprintf("%s has no availability window covering %s", ref.ID, start.Format(time.RFC3339)))
	}

	for _, b := range ref.Blackouts {
		if b.Overlaps(start, end) {
			fail(model.BlackoutDate,
				fmt.Sprintf("%s has a blackout overlapping the game", ref.ID))
			break
		}
	}

	if venue != nil && ref.TravelRadiusMi > 0 {
		if d := geo.DistanceMi(ref.Home, venue.Location); d > ref.TravelRadiusMi {
			fail(model.TravelTime,
				fmt.Sprintf("%s is %.0fmi from venue, radius %.0fmi", ref.ID, d, ref.TravelRadiusMi))
		}
	}
	if venue != nil && e.constraints.MaxTravelDistanceMi > 0 {
		if d := geo.DistanceMi(ref.Home, venue.Location); d > e.constraints.MaxTravelDistanceMi {
			fail(model.TravelTime,
				fmt.Sprintf("%s exceeds league travel limit of %.0fmi", ref.ID, e.constraints.MaxTravelDistanceMi))
		}
	}

	e.checkBookings(fail, c, venue, start, end)
	e.checkWorkload(fail, c, start, end)
	e.checkPartners(fail, c)

	if !ev.Admissible {
		return ev
	}
	ev.SoftPenalty = e.softPenalty(c, venue)
	return ev
}

// requiredExperience resolves the role requirement: the role's own minimum,
// the division default, or the run-constraint override, whichever is highest.
func (e *Evaluator) requiredExperience(game *model.Game, role model.GameRole) model.ExperienceLevel {
	required := game.RequiredExperienceFor(role)
	if override, ok := e.constraints.RequiredExperience[game.Division.ID]; ok && override > required {
		required = override
	}
	return required
}

func (e *Evaluator) availabilityCovers(ref *model.Referee, start, end time.Time) bool {
	for _, rule := range ref.Availability {
		if rule.Covers(start, end) {
			return true
		}
	}
	return false
}

// checkBookings enforces the overlap, travel-time and rest invariants against
// every commitment the referee already holds.
func (e *Evaluator) checkBookings(fail func(model.ConflictType, string), c Candidate, venue *model.Venue, start, end time.Time) {
	minRest := e.constraints.MinRestFor(c.Referee)
	for _, b := range c.Bookings {
		if b.GameID == c.Game.ID {
			continue
		}
		other := e.venues[b.VenueID]
		travel := geo.TravelTime(other, venue)

		if start.Before(b.End) && b.Start.Before(end) {
			fail(model.DoubleBooking,
				fmt.Sprintf("%s already booked on game %s at the same time", c.Referee.ID, b.GameID))
			continue
		}

		var gap time.Duration
		if start.After(b.End) || start.Equal(b.End) {
			gap = start.Sub(b.End)
		} else if b.Start.After(end) || b.Start.Equal(end) {
			gap = b.Start.Sub(end)
		} else {
			continue // overlap already reported
		}

		switch {
		case gap < travel:
			fail(model.TravelTime,
				fmt.Sprintf("%s needs %s travel from game %s but has only %s",
					c.Referee.ID, travel.Round(time.Minute), b.GameID, gap.Round(time.Minute)))
		case gap < minRest+travel:
			fail(model.InsufficientRest,
				fmt.Sprintf("%s has %s between games, needs %s rest plus %s travel",
					c.Referee.ID, gap.Round(time.Minute), minRest, travel.Round(time.Minute)))
		}
	}
}

// checkWorkload enforces the per-day, per-ISO-week and consecutive caps,
// counting the candidate game itself.
func (e *Evaluator) checkWorkload(fail func(model.ConflictType, string), c Candidate, start, end time.Time) {
	ref := c.Referee
	maxDay := e.constraints.MaxGamesPerDayFor(ref)
	maxWeek := e.constraints.MaxGamesPerWeekFor(ref)
	maxConsec := e.constraints.MaxConsecutiveFor(ref)

	day := start.Format("2006-01-02")
	year, week := start.ISOWeek()

	dayCount, weekCount := 1, 1
	var sameDay []Booking
	for _, b := range c.Bookings {
		if b.GameID == c.Game.ID {
			continue
		}
		if b.Start.Format("2006-01-02") == day {
			dayCount++
			sameDay = append(sameDay, b)
		}
		if y, w := b.Start.ISOWeek(); y == year && w == week {
			weekCount++
		}
	}
	if maxDay > 0 && dayCount > maxDay {
		fail(model.MaxGamesExceeded,
			fmt.Sprintf("%s would exceed %d games per day", ref.ID, maxDay))
	}
	if maxWeek > 0 && weekCount > maxWeek {
		fail(model.MaxGamesExceeded,
			fmt.Sprintf("%s would exceed %d games per week", ref.ID, maxWeek))
	}
	if maxConsec > 0 && consecutiveRun(sameDay, start, end) > maxConsec {
		fail(model.MaxGamesExceeded,
			fmt.Sprintf("%s would exceed %d consecutive games", ref.ID, maxConsec))
	}
}

// consecutiveRun returns the longest chain of same-day games, candidate
// included, where each gap is shorter than consecutiveBreak.
func consecutiveRun(sameDay []Booking, start, end time.Time) int {
	all := append([]Booking{{Start: start, End: end}}, sameDay...)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[j].Start.Before(all[i].Start) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	longest, run := 1, 1
	for i := 1; i < len(all); i++ {
		if all[i].Start.Sub(all[i-1].End) < ConsecutiveBreak {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}

func (e *Evaluator) checkPartners(fail func(model.ConflictType, string), c Candidate) {
	for _, id := range c.Crew {
		if id == c.Referee.ID {
			continue
		}
		if c.Referee.Avoids(id) {
			fail(model.PartnerConflict,
				fmt.Sprintf("%s avoids partner %s", c.Referee.ID, id))
			return
		}
		if other, ok := e.referees[id]; ok && other.Avoids(c.Referee.ID) {
			fail(model.PartnerConflict,
				fmt.Sprintf("%s is avoided by partner %s", c.Referee.ID, id))
			return
		}
	}
}
