package loadtest

import (
	"fmt"
	"log"
	"sort"

	"github.com/courtside/refassign/internal/domain/model"
)

// Verification constants.
const (
	spotCheckCount = 10
	topWorkloads   = 10
)

// verifyResults cross-checks the run result against the generated season and
// spot-checks lifecycle state through the read API.
func verifyResults(config *Config, sc *model.SchedulingContext, result *model.SchedulingResult, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(result.Assignments) == 0 && stats.SlotsRequested > 0 {
		return fmt.Errorf("run produced no assignments for %d requested slots", stats.SlotsRequested)
	}

	if err := verifyNoDoubleBooking(sc, result.Assignments); err != nil {
		return fmt.Errorf("double-booking check failed: %w", err)
	}
	log.Println("✅ No referee is double-booked")

	if err := verifyCoverageMetrics(result); err != nil {
		log.Printf("⚠️  Coverage metric warning: %v", err)
	} else {
		log.Println("✅ Coverage metrics are consistent")
	}

	if err := spotCheckStatuses(config, result); err != nil {
		return fmt.Errorf("status spot check failed: %w", err)
	}
	log.Println("✅ Lifecycle statuses verified")

	displayWorkloads(sc, result, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyNoDoubleBooking checks that no referee holds two overlapping games.
func verifyNoDoubleBooking(sc *model.SchedulingContext, assignments []model.Assignment) error {
	byReferee := make(map[string][]model.Assignment)
	for _, a := range assignments {
		byReferee[a.RefereeID] = append(byReferee[a.RefereeID], a)
	}

	for refID, list := range byReferee {
		for i := 0; i < len(list); i++ {
			gi := sc.GameByID(list[i].GameID)
			if gi == nil {
				return fmt.Errorf("assignment %s references unknown game %s", list[i].ID, list[i].GameID)
			}
			for j := i + 1; j < len(list); j++ {
				gj := sc.GameByID(list[j].GameID)
				if gj == nil {
					continue
				}
				if gi.Start.Before(gj.End()) && gj.Start.Before(gi.End()) {
					return fmt.Errorf("referee %s assigned to overlapping games %s and %s",
						refID, gi.ID, gj.ID)
				}
			}
		}
	}
	return nil
}

// verifyCoverageMetrics checks the reported rates against the raw counts.
func verifyCoverageMetrics(result *model.SchedulingResult) error {
	m := result.Metrics
	if m.TotalSlots != m.AssignedSlots+len(result.UnassignedGames) {
		return fmt.Errorf("slot accounting mismatch: %d total != %d assigned + %d unassigned",
			m.TotalSlots, m.AssignedSlots, len(result.UnassignedGames))
	}
	if m.TotalSlots > 0 {
		expected := float64(m.AssignedSlots) / float64(m.TotalSlots)
		if diff := m.CoverageRate - expected; diff > 0.001 || diff < -0.001 {
			return fmt.Errorf("coverage rate %.3f does not match %d/%d",
				m.CoverageRate, m.AssignedSlots, m.TotalSlots)
		}
	}
	return nil
}

// spotCheckStatuses reads a handful of assignments back and confirms the
// lifecycle drive left them in a terminal-or-confirmed state.
func spotCheckStatuses(config *Config, result *model.SchedulingResult) error {
	client := newHTTPClient(config.Timeout)

	checked := 0
	for _, a := range result.Assignments {
		if checked >= spotCheckCount {
			break
		}
		fetched, err := fetchAssignment(client, config.BaseURL, a.ID)
		if err != nil {
			return err
		}
		switch fetched.Status {
		case model.StatusConfirmed, model.StatusDeclined, model.StatusCancelled, model.StatusOffered:
			// Declines free the slot; offered means the response raced the check.
		default:
			return fmt.Errorf("assignment %s in unexpected status %s after lifecycle drive",
				fetched.ID, fetched.Status)
		}
		checked++
	}
	return nil
}

// displayWorkloads shows the busiest referees from the run.
func displayWorkloads(sc *model.SchedulingContext, result *model.SchedulingResult, verbose bool) {
	counts := make(map[string]int)
	for _, a := range result.Assignments {
		counts[a.RefereeID]++
	}

	type workload struct {
		refereeID string
		games     int
	}
	loads := make([]workload, 0, len(counts))
	for id, n := range counts {
		loads = append(loads, workload{refereeID: id, games: n})
	}
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].games != loads[j].games {
			return loads[i].games > loads[j].games
		}
		return loads[i].refereeID < loads[j].refereeID
	})

	topN := topWorkloads
	if len(loads) < topN {
		topN = len(loads)
	}

	log.Printf("🏆 Top %d workloads:", topN)
	for i := 0; i < topN; i++ {
		name := loads[i].refereeID
		if ref := sc.RefereeByID(loads[i].refereeID); ref != nil {
			name = ref.Name
		}
		log.Printf("   %d. %s - %d games", i+1, name, loads[i].games)
	}

	if verbose && len(loads) > 0 {
		total := 0
		for _, l := range loads {
			total += l.games
		}
		log.Printf(`📊 Workload statistics:
   Working referees: %d
   Average games: %.2f
   Maximum games: %d
`, len(loads), float64(total)/float64(len(loads)), loads[0].games)
	}
}
