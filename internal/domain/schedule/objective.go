package schedule

import "github.com/courtside/refassign/internal/domain/model"

// Objective weights. The global objective is the sum of soft penalties over
// run-created assignments, a penalty per unfilled slot scaled by game
// importance, and a fairness term on workload variance. Lower is better.
const (
	unassignedBasePenalty = 1000.0
	varianceWeight        = 50.0
)

// unassignedPenalty prices leaving a slot unfilled. High-importance games
// cost more to leave open; a coverage-driven run triples the price.
func (o *Optimizer) unassignedPenalty(game *model.Game) float64 {
	if game == nil {
		return unassignedBasePenalty
	}
	p := unassignedBasePenalty * float64(max(1, game.Importance))
	if game.Optional {
		p /= 2
	}
	if o.objective == model.MaximizeCoverage {
		p *= 3
	}
	return p
}

// objectiveValue computes the current global objective over the state.
func (o *Optimizer) objectiveValue(st *runState) float64 {
	total := 0.0
	for _, p := range st.penalties {
		total += p
	}
	for _, key := range st.open {
		total += o.unassignedPenalty(st.sc.GameByID(key.gameID))
	}
	return total + varianceWeight*loadVariance(st.loadCounts())
}

// loadVariance is the population variance of per-referee commitment counts.
func loadVariance(counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= float64(len(counts))
	v := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		v += d * d
	}
	return v / float64(len(counts))
}
