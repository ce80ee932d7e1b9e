package conflict

// Default suggestion thresholds.
const (
	defaultCoverageTarget = 0.95
	defaultBalanceFloor   = 0.6
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithCoverageTarget sets the coverage rate below which suggestions fire.
func WithCoverageTarget(target float64) Option {
	return func(d *Detector) {
		if target > 0 && target <= 1 {
			d.coverageTarget = target
		}
	}
}

// WithBalanceFloor sets the workload-balance floor below which an
// ADJUST_CONSTRAINTS suggestion fires.
func WithBalanceFloor(floor float64) Option {
	return func(d *Detector) {
		if floor > 0 && floor <= 1 {
			d.balanceFloor = floor
		}
	}
}

// WithCostBudget sets the average-cost-per-game budget. Zero disables the
// cost suggestions.
func WithCostBudget(budget float64) Option {
	return func(d *Detector) {
		if budget >= 0 {
			d.costBudget = budget
		}
	}
}
