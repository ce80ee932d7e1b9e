// Package conflict re-validates a finished schedule independently of the
// optimizer's incremental bookkeeping, and computes run metrics and
// remediation suggestions. A hard-constraint violation surfacing here means
// an optimizer defect, so those conflicts are always CRITICAL.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/geo"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/metrics"
)

// Detector validates final assignment sets against every invariant.
type Detector struct {
	coverageTarget float64
	balanceFloor   float64
	costBudget     float64
}

// New creates a detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		coverageTarget: defaultCoverageTarget,
		balanceFloor:   defaultBalanceFloor,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect checks every invariant over the full assignment set: pre-existing,
// pinned and newly created alike. Only active assignments occupy time.
func (d *Detector) Detect(sc *model.SchedulingContext, assignments []model.Assignment) []model.Conflict {
	var conflicts []model.Conflict
	add := func(t model.ConflictType, sev model.ConflictSeverity, desc string, entities ...string) {
		conflicts = append(conflicts, model.Conflict{
			Type:             t,
			Severity:         sev,
			Description:      desc,
			AffectedEntities: entities,
		})
		metrics.RecordConflict(string(t), string(sev))
	}

	byReferee := make(map[string][]model.Assignment)
	byGame := make(map[string][]model.Assignment)
	for _, a := range assignments {
		if !a.Status.Active() {
			continue
		}
		byReferee[a.RefereeID] = append(byReferee[a.RefereeID], a)
		byGame[a.GameID] = append(byGame[a.GameID], a)
	}

	refIDs := make([]string, 0, len(byReferee))
	for id := range byReferee {
		refIDs = append(refIDs, id)
	}
	sort.Strings(refIDs)

	for _, refID := range refIDs {
		ref := sc.RefereeByID(refID)
		if ref == nil {
			continue
		}
		d.checkReferee(sc, ref, byReferee[refID], add)
	}
	d.checkCrews(sc, byGame, add)
	return conflicts
}

// checkReferee validates one referee's full slate.
func (d *Detector) checkReferee(sc *model.SchedulingContext, ref *model.Referee, list []model.Assignment, add addFunc) {
	sort.Slice(list, func(i, j int) bool {
		gi, gj := sc.GameByID(list[i].GameID), sc.GameByID(list[j].GameID)
		if gi == nil || gj == nil {
			return list[i].GameID < list[j].GameID
		}
		return gi.Start.Before(gj.Start)
	})

	// One referee never fills two slots of the same game.
	perGame := make(map[string]int)
	for _, a := range list {
		perGame[a.GameID]++
	}
	dupGames := make([]string, 0, len(perGame))
	for gameID, n := range perGame {
		if n > 1 {
			dupGames = append(dupGames, gameID)
		}
	}
	sort.Strings(dupGames)
	for _, gameID := range dupGames {
		add(model.DoubleBooking, model.SeverityCritical,
			fmt.Sprintf("%s fills %d slots on game %s", ref.ID, perGame[gameID], gameID),
			ref.ID, gameID)
	}

	minRest := sc.Constraints.MinRestFor(ref)
	for i, a := range list {
		game := sc.GameByID(a.GameID)
		if game == nil {
			continue
		}
		venue := sc.VenueByID(game.VenueID)

		required := game.RequiredExperienceFor(a.Role)
		if override, ok := sc.Constraints.RequiredExperience[game.Division.ID]; ok && override > required {
			required = override
		}
		if !ref.Experience.Meets(required) {
			add(model.ExperienceMismatch, model.SeverityCritical,
				fmt.Sprintf("%s (%s) assigned to game %s requiring %s", ref.ID, ref.Experience, game.ID, required),
				ref.ID, game.ID)
		}

		if len(ref.Availability) > 0 && !covered(ref, game.Start, game.End()) {
			add(model.AvailabilityConflict, model.SeverityCritical,
				fmt.Sprintf("%s has no availability window for game %s", ref.ID, game.ID),
				ref.ID, game.ID)
		}

		for _, b := range ref.Blackouts {
			if b.Overlaps(game.Start, game.End()) {
				add(model.BlackoutDate, model.SeverityCritical,
					fmt.Sprintf("%s assigned to game %s during a blackout", ref.ID, game.ID),
					ref.ID, game.ID)
				break
			}
		}

		// Pairwise checks against every later assignment on the slate.
		for _, other := range list[i+1:] {
			og := sc.GameByID(other.GameID)
			if og == nil || og.ID == game.ID {
				continue
			}
			ov := sc.VenueByID(og.VenueID)
			d.checkPair(ref, game, venue, og, ov, minRest, add)
		}

		// Advisory over-qualification note for routine games.
		if !game.Type.HighStakes() && int(ref.Experience)-int(required) >= 2 {
			add(model.ExperienceMismatch, model.SeverityLow,
				fmt.Sprintf("%s (%s) is over-qualified for game %s", ref.ID, ref.Experience, game.ID),
				ref.ID, game.ID)
		}
	}

	d.checkWorkloadCaps(sc, ref, list, add)
}

type addFunc func(t model.ConflictType, sev model.ConflictSeverity, desc string, entities ...string)

func (d *Detector) checkPair(ref *model.Referee, g1 *model.Game, v1 *model.Venue, g2 *model.Game, v2 *model.Venue, minRest time.Duration, add addFunc) {
	if g1.Start.Before(g2.End()) && g2.Start.Before(g1.End()) {
		add(model.DoubleBooking, model.SeverityCritical,
			fmt.Sprintf("%s double-booked on games %s and %s", ref.ID, g1.ID, g2.ID),
			ref.ID, g1.ID, g2.ID)
		return
	}
	earlier, later := g1, g2
	ve, vl := v1, v2
	if g2.Start.Before(g1.Start) {
		earlier, later = g2, g1
		ve, vl = v2, v1
	}
	gap := later.Start.Sub(earlier.End())
	travel := geo.TravelTime(ve, vl)
	switch {
	case gap < travel:
		add(model.TravelTime, model.SeverityCritical,
			fmt.Sprintf("%s has %s between games %s and %s but needs %s travel",
				ref.ID, gap.Round(time.Minute), earlier.ID, later.ID, travel.Round(time.Minute)),
			ref.ID, earlier.ID, later.ID)
	case gap < minRest+travel:
		add(model.InsufficientRest, model.SeverityCritical,
			fmt.Sprintf("%s has %s between games %s and %s, needs %s rest plus %s travel",
				ref.ID, gap.Round(time.Minute), earlier.ID, later.ID, minRest, travel.Round(time.Minute)),
			ref.ID, earlier.ID, later.ID)
	}
}

func (d *Detector) checkWorkloadCaps(sc *model.SchedulingContext, ref *model.Referee, list []model.Assignment, add addFunc) {
	maxDay := sc.Constraints.MaxGamesPerDayFor(ref)
	maxWeek := sc.Constraints.MaxGamesPerWeekFor(ref)
	maxConsec := sc.Constraints.MaxConsecutiveFor(ref)

	perDay := make(map[string]int)
	perWeek := make(map[string]int)
	dayGames := make(map[string][]*model.Game)
	for _, a := range list {
		game := sc.GameByID(a.GameID)
		if game == nil {
			continue
		}
		day := game.Start.Format("2006-01-02")
		perDay[day]++
		dayGames[day] = append(dayGames[day], game)
		y, w := game.Start.ISOWeek()
		perWeek[fmt.Sprintf("%d-W%02d", y, w)]++
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		if maxDay > 0 && perDay[day] > maxDay {
			add(model.MaxGamesExceeded, model.SeverityCritical,
				fmt.Sprintf("%s has %d games on %s, cap is %d", ref.ID, perDay[day], day, maxDay),
				ref.ID)
		}
		if run := longestConsecutiveRun(dayGames[day]); maxConsec > 0 && run > maxConsec {
			add(model.MaxGamesExceeded, model.SeverityCritical,
				fmt.Sprintf("%s has %d consecutive games on %s, cap is %d", ref.ID, run, day, maxConsec),
				ref.ID)
		}
	}

	weeks := make([]string, 0, len(perWeek))
	for week := range perWeek {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)
	for _, week := range weeks {
		if maxWeek > 0 && perWeek[week] > maxWeek {
			add(model.MaxGamesExceeded, model.SeverityCritical,
				fmt.Sprintf("%s has %d games in %s, cap is %d", ref.ID, perWeek[week], week, maxWeek),
				ref.ID)
		}
	}
}

// longestConsecutiveRun finds the longest chain of one day's games where each
// gap stays under the evaluator's consecutive-break threshold.
func longestConsecutiveRun(games []*model.Game) int {
	if len(games) == 0 {
		return 0
	}
	sorted := append([]*model.Game(nil), games...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start.Sub(sorted[i-1].End()) < constraint.ConsecutiveBreak {
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

// checkCrews validates partner-avoidance lists within each game's crew.
func (d *Detector) checkCrews(sc *model.SchedulingContext, byGame map[string][]model.Assignment, add addFunc) {
	gameIDs := make([]string, 0, len(byGame))
	for id := range byGame {
		gameIDs = append(gameIDs, id)
	}
	sort.Strings(gameIDs)

	for _, gameID := range gameIDs {
		crew := byGame[gameID]
		for i := range crew {
			ri := sc.RefereeByID(crew[i].RefereeID)
			if ri == nil {
				continue
			}
			for j := i + 1; j < len(crew); j++ {
				rj := sc.RefereeByID(crew[j].RefereeID)
				if rj == nil {
					continue
				}
				if ri.Avoids(rj.ID) || rj.Avoids(ri.ID) {
					add(model.PartnerConflict, model.SeverityCritical,
						fmt.Sprintf("%s and %s are crewed together on game %s despite an avoid-partner rule",
							ri.ID, rj.ID, gameID),
						ri.ID, rj.ID, gameID)
				}
			}
		}
	}
}

func covered(ref *model.Referee, start, end time.Time) bool {
	for _, rule := range ref.Availability {
		if rule.Covers(start, end) {
			return true
		}
	}
	return false
}

// HasCritical reports whether any conflict is CRITICAL, which marks the run
// as failed regardless of coverage.
func HasCritical(conflicts []model.Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == model.SeverityCritical {
			return true
		}
	}
	return false
}
