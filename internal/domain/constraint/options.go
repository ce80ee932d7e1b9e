package constraint

import "github.com/courtside/refassign/internal/domain/model"

// Weights are the soft-penalty term weights. The run objective scales its
// dominant term, so two runs with different objectives rank candidates
// differently over the same pool.
type Weights struct {
	TravelPerMile  float64
	ExperienceGap  float64
	PreferenceMiss float64
	PartnerBonus   float64
	UtilizationDev float64
	CostPerDollar  float64
}

// Default term weights; overridable per run via options or config.
const (
	defaultTravelPerMile  = 1.0
	defaultExperienceGap  = 10.0
	defaultPreferenceMiss = 15.0
	defaultPartnerBonus   = 10.0
	defaultUtilizationDev = 20.0

	// objectiveBoost is applied to the dominant term of the run objective.
	objectiveBoost = 3.0

	// minimizeCostWeight turns pay rate into penalty only when the run is
	// cost-driven.
	minimizeCostWeight = 0.2
)

// DefaultWeights returns the baseline weights.
func DefaultWeights() Weights {
	return Weights{
		TravelPerMile:  defaultTravelPerMile,
		ExperienceGap:  defaultExperienceGap,
		PreferenceMiss: defaultPreferenceMiss,
		PartnerBonus:   defaultPartnerBonus,
		UtilizationDev: defaultUtilizationDev,
	}
}

// scaledFor boosts the term the objective cares most about.
func (w Weights) scaledFor(obj model.OptimizationObjective) Weights {
	switch obj {
	case model.MinimizeTravel:
		w.TravelPerMile *= objectiveBoost
	case model.BalanceWorkload:
		w.UtilizationDev *= objectiveBoost
	case model.MaximizeSatisfaction:
		w.PreferenceMiss *= objectiveBoost
		w.PartnerBonus *= objectiveBoost
	case model.MinimizeCost:
		w.CostPerDollar = minimizeCostWeight * objectiveBoost
	case model.MaximizeCoverage:
		// Coverage dominance lives in the optimizer's unassigned-slot
		// penalty, not in per-candidate terms.
	}
	return w
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithWeights replaces the baseline soft-penalty weights.
func WithWeights(w Weights) Option {
	return func(e *Evaluator) {
		e.weights = w
	}
}
