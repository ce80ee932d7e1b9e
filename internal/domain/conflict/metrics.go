package conflict

import (
	"fmt"
	"math"

	"github.com/courtside/refassign/internal/domain/geo"
	"github.com/courtside/refassign/internal/domain/model"
)

// fallbackWeeklyGames sizes utilization when no weekly cap is configured.
const fallbackWeeklyGames = 4

// ComputeMetrics summarizes a run: exact coverage accounting, cost totals,
// per-referee utilization and travel, fairness and satisfaction scores.
func (d *Detector) ComputeMetrics(sc *model.SchedulingContext, assignments []model.Assignment, unassigned []model.UnassignedGame, objective float64, iterations int) model.SchedulingMetrics {
	m := model.SchedulingMetrics{
		Utilization:    make(map[string]float64),
		TravelMiles:    make(map[string]float64),
		ObjectiveValue: objective,
		Iterations:     iterations,
	}

	for i := range sc.Games {
		m.TotalSlots += sc.Games[i].SlotCount()
	}

	counts := make(map[string]int)
	gamesWithCost := make(map[string]bool)
	totalPenalty := 0.0
	for _, a := range assignments {
		if !a.Status.Active() {
			continue
		}
		m.AssignedSlots++
		m.TotalCost += a.Pay.Total()
		gamesWithCost[a.GameID] = true
		counts[a.RefereeID]++
		totalPenalty += a.ConflictScore

		ref := sc.RefereeByID(a.RefereeID)
		game := sc.GameByID(a.GameID)
		if ref != nil && game != nil {
			if venue := sc.VenueByID(game.VenueID); venue != nil {
				m.TravelMiles[ref.ID] += geo.DistanceMi(ref.Home, venue.Location)
			}
		}
	}

	// Coverage is defined as 1.0 over zero slots.
	if m.TotalSlots == 0 {
		m.CoverageRate = 1.0
	} else {
		m.CoverageRate = float64(m.AssignedSlots) / float64(m.TotalSlots)
	}

	if len(gamesWithCost) > 0 {
		m.AverageCostPerGame = m.TotalCost / float64(len(gamesWithCost))
	}

	for i := range sc.Referees {
		ref := &sc.Referees[i]
		maxWeek := sc.Constraints.MaxGamesPerWeekFor(ref)
		if maxWeek <= 0 {
			maxWeek = fallbackWeeklyGames
		}
		m.Utilization[ref.ID] = float64(counts[ref.ID]) / float64(maxWeek)
	}

	m.WorkloadBalance = workloadBalance(sc, counts)

	if m.AssignedSlots > 0 {
		avg := totalPenalty / float64(m.AssignedSlots)
		m.SatisfactionScore = math.Max(0, 100-math.Min(100, avg))
	} else {
		m.SatisfactionScore = 100
	}
	return m
}

// workloadBalance is 1 minus the normalized variance of per-referee
// assignment counts: 1.0 means perfectly even, 0 means maximally skewed.
func workloadBalance(sc *model.SchedulingContext, counts map[string]int) float64 {
	n := len(sc.Referees)
	if n == 0 {
		return 1.0
	}
	mean := 0.0
	for i := range sc.Referees {
		mean += float64(counts[sc.Referees[i].ID])
	}
	mean /= float64(n)
	if mean == 0 {
		return 1.0
	}
	variance := 0.0
	for i := range sc.Referees {
		delta := float64(counts[sc.Referees[i].ID]) - mean
		variance += delta * delta
	}
	variance /= float64(n)
	return math.Max(0, 1-math.Min(1, variance/(mean*mean)))
}

// Suggest produces threshold-triggered remediation suggestions from the
// computed metrics. Priority tracks how far each metric sits from target.
func (d *Detector) Suggest(m model.SchedulingMetrics, unassigned []model.UnassignedGame) []model.Suggestion {
	var out []model.Suggestion

	if m.CoverageRate < d.coverageTarget {
		out = append(out, model.Suggestion{
			Type:     model.AddReferees,
			Priority: distancePriority(d.coverageTarget - m.CoverageRate),
			Description: fmt.Sprintf("coverage is %.0f%% against a %.0f%% target; %d slots are unfilled",
				m.CoverageRate*100, d.coverageTarget*100, len(unassigned)),
		})
		if m.CoverageRate < d.coverageTarget/2 {
			out = append(out, model.Suggestion{
				Type:        model.RescheduleGames,
				Priority:    model.PriorityHigh,
				Description: "coverage is below half the target; consider rescheduling low-importance games",
			})
		}
	}

	if m.WorkloadBalance < d.balanceFloor {
		out = append(out, model.Suggestion{
			Type:     model.AdjustConstraints,
			Priority: distancePriority(d.balanceFloor - m.WorkloadBalance),
			Description: fmt.Sprintf("workload balance is %.2f against a %.2f floor; loosen caps or preferences to spread assignments",
				m.WorkloadBalance, d.balanceFloor),
		})
	}

	if d.costBudget > 0 {
		switch {
		case m.AverageCostPerGame > d.costBudget:
			out = append(out, model.Suggestion{
				Type:     model.AdjustConstraints,
				Priority: distancePriority((m.AverageCostPerGame - d.costBudget) / d.costBudget),
				Description: fmt.Sprintf("average cost per game %.2f exceeds the %.2f budget",
					m.AverageCostPerGame, d.costBudget),
			})
		case m.CoverageRate < d.coverageTarget:
			out = append(out, model.Suggestion{
				Type:        model.IncreaseRates,
				Priority:    model.PriorityMedium,
				Description: "cost is under budget while coverage misses target; higher rates may attract more officials",
			})
		}
	}
	return out
}

// distancePriority maps how far a metric is from its target onto a priority.
func distancePriority(gap float64) model.SuggestionPriority {
	switch {
	case gap >= 0.3:
		return model.PriorityHigh
	case gap >= 0.1:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
