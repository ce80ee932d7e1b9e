package constraint

import (
	"math"

	"github.com/courtside/refassign/internal/domain/geo"
	"github.com/courtside/refassign/internal/domain/model"
)

// softPenalty computes the weighted soft-constraint penalty for an admissible
// candidate. Terms whose preference flag is unset contribute nothing.
func (e *Evaluator) softPenalty(c Candidate, venue *model.Venue) float64 {
	soft := e.constraints.Soft
	ref := c.Referee
	var penalty float64

	if soft.PreferLocal && venue != nil {
		miles := geo.DistanceMi(ref.Home, venue.Location)
		penalty += miles * e.weights.TravelPerMile
	}

	required := e.requiredExperience(c.Game, c.Role)
	if gap := int(ref.Experience) - int(required); gap > 0 {
		// Over-qualification wastes scarce senior officials on routine games.
		if !c.Game.Type.HighStakes() {
			penalty += float64(gap) * e.weights.ExperienceGap
		}
	}
	if soft.PreferExperiencedForTournaments && c.Game.Type.HighStakes() {
		if gap := int(model.Experienced) - int(ref.Experience); gap > 0 {
			penalty += float64(gap) * e.weights.ExperienceGap
		}
	}

	if soft.RespectPreferences {
		if venue != nil && len(ref.Preferences.PreferredVenues) > 0 && !contains(ref.Preferences.PreferredVenues, venue.ID) {
			penalty += e.weights.PreferenceMiss
		}
		if len(ref.Preferences.PreferredDivisions) > 0 && !contains(ref.Preferences.PreferredDivisions, c.Game.Division.ID) {
			penalty += e.weights.PreferenceMiss
		}
	}

	if soft.PreferConsistentCrews {
		for _, id := range c.Crew {
			if contains(ref.Preferences.PreferredPartners, id) {
				penalty -= e.weights.PartnerBonus
				break
			}
		}
	}

	if soft.AvoidBackToBack {
		for _, b := range c.Bookings {
			if b.GameID == c.Game.ID {
				continue
			}
			gap := c.Game.Start.Sub(b.End)
			if gap < 0 {
				gap = b.Start.Sub(c.Game.End())
			}
			if gap >= 0 && gap < backToBackWindow {
				penalty += e.weights.PreferenceMiss
				break
			}
		}
	}

	if soft.BalanceAssignments {
		penalty += e.utilizationPenalty(c)
	}

	if soft.BalanceEarnings {
		penalty += e.earningsPenalty(c)
	}

	if e.weights.CostPerDollar > 0 {
		penalty += ref.PayRate * e.weights.CostPerDollar
	}

	if penalty < 0 {
		penalty = 0
	}
	return penalty
}

// utilizationPenalty charges deviation from the target share of work. The
// target is expressed against the effective weekly cap so busier leagues
// scale naturally.
func (e *Evaluator) utilizationPenalty(c Candidate) float64 {
	target := e.constraints.TargetUtilization
	if target <= 0 {
		return 0
	}
	maxWeek := e.constraints.MaxGamesPerWeekFor(c.Referee)
	if maxWeek <= 0 {
		maxWeek = 4
	}
	targetGames := target * float64(maxWeek)
	if targetGames <= 0 {
		return 0
	}
	util := float64(len(c.Bookings)+1) / targetGames
	dev := math.Min(1, math.Abs(util-1))
	return dev * e.weights.UtilizationDev
}

// earningsPenalty charges projected accumulated pay above what the pool
// average rate would earn at the same load, steering paid work toward
// referees who are behind.
func (e *Evaluator) earningsPenalty(c Candidate) float64 {
	if e.meanPayRate <= 0 {
		return 0
	}
	load := float64(len(c.Bookings) + 1)
	projected := c.Referee.PayRate * load
	fair := e.meanPayRate * load
	excess := (projected - fair) / fair
	if excess <= 0 {
		return 0
	}
	return math.Min(1, excess) * e.weights.UtilizationDev
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
