// Package schedule implements the two-phase scheduling optimizer: greedy
// construction in priority order followed by bounded local-search
// improvement. Exact solving is intractable at production scale; the
// optimizer targets high-quality heuristic solutions inside a budget.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/courtside/refassign/internal/domain/candidate"
	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// Default optimizer configuration constants.
const (
	defaultMaxIterations = 300
	defaultTimeBudget    = 10 * time.Second

	// Pay bonus multiplier for playoff/championship/tournament games.
	highStakesBonus = 0.25

	// How many closest-but-inadmissible referees to surface per unfilled slot.
	nearMissLimit = 3
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithMaxIterations bounds the improvement phase's iteration count.
func WithMaxIterations(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithTimeBudget bounds the improvement phase's wall-clock time.
func WithTimeBudget(d time.Duration) Option {
	return func(o *Optimizer) {
		if d > 0 {
			o.timeBudget = d
		}
	}
}

// WithWeights overrides the evaluator's soft-penalty weights.
func WithWeights(w constraint.Weights) Option {
	return func(o *Optimizer) {
		o.weights = &w
	}
}

// WithLogger sets a custom logger for the optimizer.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// Result is the optimizer's raw output before post-hoc validation: the
// run-created assignments, the slots it could not fill, and objective
// bookkeeping for the metrics pass.
type Result struct {
	Assignments []model.Assignment
	Unassigned  []model.UnassignedGame
	Objective   float64
	Iterations  int
}

// Optimizer runs construction and improvement over one context snapshot.
type Optimizer struct {
	maxIterations int
	timeBudget    time.Duration
	weights       *constraint.Weights
	objective     model.OptimizationObjective
	logger        logger.Logger
}

// New creates an optimizer with the given options.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		maxIterations: defaultMaxIterations,
		timeBudget:    defaultTimeBudget,
		logger:        logger.Get().Named("optimizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes both phases. Cancellation is cooperative: between improvement
// iterations the context is checked and the best result found so far is
// returned, never a half-applied move.
func (o *Optimizer) Run(ctx context.Context, sc *model.SchedulingContext) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid scheduling context: %w", err)
	}
	o.objective = sc.Objective

	evalOpts := []constraint.Option{}
	if o.weights != nil {
		evalOpts = append(evalOpts, constraint.WithWeights(*o.weights))
	}
	eval := constraint.NewEvaluator(sc, evalOpts...)
	gen := candidate.New(eval, sc.Referees)
	st := newRunState(sc)

	start := time.Now()
	misses := o.construct(st, gen)
	iterations := o.improve(ctx, st, gen, misses)

	res := o.collect(st, misses)
	res.Objective = o.objectiveValue(st)
	res.Iterations = iterations

	metrics.RecordRunDuration(time.Since(start).Seconds())
	metrics.UpdateObjectiveValue(res.Objective)
	o.logger.Info(ctx, "scheduling run finished",
		logger.Int("assignments", len(res.Assignments)),
		logger.Int("unassigned", len(res.Unassigned)),
		logger.Int("iterations", iterations),
		logger.Float64("objective", res.Objective),
	)
	return res, nil
}

// construct fills slots greedily in priority order. Each commit updates the
// referee's provisional load before the next slot is considered; there is no
// backtracking. Returns the recorded near-misses per slot for diagnostics.
func (o *Optimizer) construct(st *runState, gen *candidate.Generator) map[slotKey][]candidate.NearMiss {
	sortSlots(st.open, st.sc)
	misses := make(map[slotKey][]candidate.NearMiss)

	queue := append([]slotKey(nil), st.open...)
	for _, key := range queue {
		game := st.sc.GameByID(key.gameID)
		ranked, slotMisses := gen.Generate(game, key.role, st)
		if len(ranked) == 0 {
			misses[key] = slotMisses
			continue
		}
		best := ranked[0]
		st.assign(key, o.newAssignment(key, game, best), best.SoftPenalty)
		metrics.RecordSlotFilled()
	}
	return misses
}

// newAssignment creates a PENDING, auto-assigned record for a slot. IDs are
// derived from the slot so identical runs emit identical output.
func (o *Optimizer) newAssignment(key slotKey, game *model.Game, c candidate.Ranked) *model.Assignment {
	pay := model.Pay{Rate: c.Referee.PayRate}
	if game.Type.HighStakes() {
		pay.Bonuses = c.Referee.PayRate * highStakesBonus
	}
	return &model.Assignment{
		ID:            fmt.Sprintf("asg-%s-%s-%d", key.gameID, strings.ToLower(string(key.role)), key.index),
		GameID:        key.gameID,
		RefereeID:     c.Referee.ID,
		Role:          key.role,
		Status:        model.StatusPending,
		Pay:           pay,
		ConflictScore: c.SoftPenalty,
		AutoAssigned:  true,
	}
}

// collect turns the final state into the optimizer result.
func (o *Optimizer) collect(st *runState, misses map[slotKey][]candidate.NearMiss) Result {
	var res Result

	keys := st.mutableSlots()
	for _, key := range keys {
		a := st.filled[key]
		a.ConflictScore = st.penalties[key]
		res.Assignments = append(res.Assignments, *a)
	}

	open := append([]slotKey(nil), st.open...)
	sortSlots(open, st.sc)
	for _, key := range open {
		res.Unassigned = append(res.Unassigned, o.unassignedRecord(st, key, misses[key]))
		metrics.RecordSlotUnfilled()
	}
	return res
}

// unassignedRecord explains why a slot stayed open, naming the closest
// inadmissible referees so an operator can remediate.
func (o *Optimizer) unassignedRecord(st *runState, key slotKey, slotMisses []candidate.NearMiss) model.UnassignedGame {
	game := st.sc.GameByID(key.gameID)
	reason := "no admissible referee for the slot"
	if game != nil {
		required := game.RequiredExperienceFor(key.role)
		reason = fmt.Sprintf("no referee meets the %s requirement for %s within travel and availability limits",
			required, key.role)
	}
	if len(slotMisses) > 0 && slotMisses[0].Detail != "" {
		reason += "; closest: " + slotMisses[0].Detail
	}

	limit := nearMissLimit
	if len(slotMisses) < limit {
		limit = len(slotMisses)
	}
	near := make([]string, 0, limit)
	for _, m := range slotMisses[:limit] {
		near = append(near, m.RefereeID)
	}
	sort.Strings(near)

	return model.UnassignedGame{
		Slot:     model.Slot{GameID: key.gameID, Role: key.role, Index: key.index},
		Reason:   reason,
		NearMiss: near,
	}
}
