package schedule

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/courtside/refassign/internal/domain/candidate"
	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// proposal is one candidate local-search move. delta is the change to the
// global objective if applied; strictly negative deltas improve the result.
type proposal struct {
	kind       string
	delta      float64
	varImprove float64
	orderKey   string
	valid      bool
	apply      func(st *runState)
}

// improve runs bounded local search: per iteration all swap/move/fill
// proposals are scored read-only (swap scoring in parallel), then the single
// best strictly-improving move is committed. The objective never regresses,
// which also rules out cycling. Cancellation between iterations returns the
// best state found so far.
func (o *Optimizer) improve(ctx context.Context, st *runState, gen *candidate.Generator, misses map[slotKey][]candidate.NearMiss) int {
	eval := o.freshEvaluator(st.sc)
	deadline := time.Now().Add(o.timeBudget)

	applied := 0
	for iter := 0; iter < o.maxIterations; iter++ {
		select {
		case <-ctx.Done():
			o.logger.Warn(ctx, "run cancelled; returning best result so far",
				logger.Int("iterations", applied))
			return applied
		default:
		}
		if time.Now().After(deadline) {
			o.logger.Info(ctx, "time budget exhausted", logger.Int("iterations", applied))
			return applied
		}

		proposals := o.scoreProposals(ctx, st, gen, eval)
		best := pickBest(proposals)
		if best == nil {
			return applied
		}

		// Single-threaded commit of one atomic move.
		best.apply(st)
		if best.kind == "fill" || best.kind == "move" {
			// A previously-open slot is now filled or a new slot opened;
			// stale near-miss diagnostics would mislead operators.
			refreshMisses(st, gen, misses)
		}
		applied++
		metrics.RecordImprovementMove(best.kind)
	}
	return applied
}

// freshEvaluator rebuilds the evaluator with the optimizer's weights so
// improvement scoring matches construction scoring exactly.
func (o *Optimizer) freshEvaluator(sc *model.SchedulingContext) *constraint.Evaluator {
	if o.weights != nil {
		return constraint.NewEvaluator(sc, constraint.WithWeights(*o.weights))
	}
	return constraint.NewEvaluator(sc)
}

// scoreProposals produces every legal move with its objective delta. Swap
// scoring is independent per pair and runs concurrently; results land in
// pre-sized slots so ordering stays deterministic.
func (o *Optimizer) scoreProposals(ctx context.Context, st *runState, gen *candidate.Generator, eval *constraint.Evaluator) []proposal {
	var proposals []proposal

	proposals = append(proposals, o.fillProposals(st, gen)...)
	proposals = append(proposals, o.moveProposals(st, eval)...)
	proposals = append(proposals, o.swapProposals(ctx, st, eval)...)
	return proposals
}

// fillProposals tries to place a referee into each still-open slot.
func (o *Optimizer) fillProposals(st *runState, gen *candidate.Generator) []proposal {
	var out []proposal
	for _, key := range append([]slotKey(nil), st.open...) {
		key := key
		game := st.sc.GameByID(key.gameID)
		ranked, _ := gen.Generate(game, key.role, st)
		if len(ranked) == 0 {
			continue
		}
		best := ranked[0]
		varDelta := varianceDelta(st.loadCounts(), best.Referee.ID, +1)
		delta := best.SoftPenalty - o.unassignedPenalty(game) + varianceWeight*varDelta
		out = append(out, proposal{
			kind:       "fill",
			delta:      delta,
			varImprove: -varDelta,
			orderKey:   "fill|" + key.gameID + "|" + string(key.role) + "|" + best.Referee.ID,
			valid:      delta < 0,
			apply: func(s *runState) {
				s.assign(key, o.newAssignment(key, game, best), best.SoftPenalty)
			},
		})
	}
	return out
}

// moveProposals reassign a referee from a filled lower-priority slot to an
// open higher-priority one.
func (o *Optimizer) moveProposals(st *runState, eval *constraint.Evaluator) []proposal {
	var out []proposal
	mutable := st.mutableSlots()
	for _, openKey := range append([]slotKey(nil), st.open...) {
		openKey := openKey
		openGame := st.sc.GameByID(openKey.gameID)
		for _, fromKey := range mutable {
			fromKey := fromKey
			fromGame := st.sc.GameByID(fromKey.gameID)
			if fromGame == nil || openGame == nil || fromGame.Importance >= openGame.Importance {
				continue
			}
			a := st.filled[fromKey]
			ref := st.sc.RefereeByID(a.RefereeID)
			if ref == nil || !ref.CanFill(openKey.role) {
				continue
			}
			ev := eval.Evaluate(constraint.Candidate{
				Referee:  ref,
				Game:     openGame,
				Role:     openKey.role,
				Bookings: bookingsExcluding(st, ref.ID, fromKey.gameID),
				Crew:     st.CrewFor(openKey.gameID),
			})
			if !ev.Admissible {
				continue
			}
			delta := ev.SoftPenalty - st.penalties[fromKey] +
				o.unassignedPenalty(fromGame) - o.unassignedPenalty(openGame)
			out = append(out, proposal{
				kind:     "move",
				delta:    delta,
				orderKey: "move|" + fromKey.gameID + "|" + openKey.gameID + "|" + ref.ID,
				valid:    delta < 0,
				apply: func(s *runState) {
					s.unassign(fromKey)
					s.assign(openKey, o.newAssignment(openKey, openGame, candidate.Ranked{
						Referee:     ref,
						SoftPenalty: ev.SoftPenalty,
					}), ev.SoftPenalty)
				},
			})
		}
	}
	return out
}

// swapProposals exchange the referees of two filled slots when both remain
// admissible and the combined penalty strictly drops. Pair scoring is
// read-only and embarrassingly parallel.
func (o *Optimizer) swapProposals(ctx context.Context, st *runState, eval *constraint.Evaluator) []proposal {
	mutable := st.mutableSlots()
	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < len(mutable); i++ {
		for j := i + 1; j < len(mutable); j++ {
			if mutable[i].gameID != mutable[j].gameID {
				pairs = append(pairs, pair{i, j})
			}
		}
	}

	results := make([]proposal, len(pairs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for idx, p := range pairs {
		idx, p := idx, p
		g.Go(func() error {
			results[idx] = o.scoreSwap(st, eval, mutable[p.i], mutable[p.j])
			return nil
		})
	}
	_ = g.Wait()

	var out []proposal
	for _, pr := range results {
		if pr.apply != nil {
			out = append(out, pr)
		}
	}
	return out
}

func (o *Optimizer) scoreSwap(st *runState, eval *constraint.Evaluator, k1, k2 slotKey) proposal {
	a1, a2 := st.filled[k1], st.filled[k2]
	r1 := st.sc.RefereeByID(a1.RefereeID)
	r2 := st.sc.RefereeByID(a2.RefereeID)
	if r1 == nil || r2 == nil || r1.ID == r2.ID {
		return proposal{}
	}
	g1 := st.sc.GameByID(k1.gameID)
	g2 := st.sc.GameByID(k2.gameID)
	if !r2.CanFill(k1.role) || !r1.CanFill(k2.role) {
		return proposal{}
	}

	e1 := eval.Evaluate(constraint.Candidate{
		Referee:  r2,
		Game:     g1,
		Role:     k1.role,
		Bookings: bookingsExcluding(st, r2.ID, k2.gameID),
		Crew:     crewExcluding(st, k1.gameID, r1.ID),
	})
	if !e1.Admissible {
		return proposal{}
	}
	e2 := eval.Evaluate(constraint.Candidate{
		Referee:  r1,
		Game:     g2,
		Role:     k2.role,
		Bookings: bookingsExcluding(st, r1.ID, k1.gameID),
		Crew:     crewExcluding(st, k2.gameID, r2.ID),
	})
	if !e2.Admissible {
		return proposal{}
	}

	delta := (e1.SoftPenalty + e2.SoftPenalty) - (st.penalties[k1] + st.penalties[k2])
	return proposal{
		kind:     "swap",
		delta:    delta,
		orderKey: "swap|" + k1.gameID + "|" + k2.gameID + "|" + r1.ID + "|" + r2.ID,
		valid:    delta < 0,
		apply: func(s *runState) {
			s.unassign(k1)
			s.unassign(k2)
			s.assign(k1, o.newAssignment(k1, g1, candidate.Ranked{Referee: r2, SoftPenalty: e1.SoftPenalty}), e1.SoftPenalty)
			s.assign(k2, o.newAssignment(k2, g2, candidate.Ranked{Referee: r1, SoftPenalty: e2.SoftPenalty}), e2.SoftPenalty)
		},
	}
}

// pickBest selects the strictly-improving proposal with the lowest delta;
// ties favor the move that most improves workload balance, then the
// lexicographically smallest order key for determinism.
func pickBest(proposals []proposal) *proposal {
	var best *proposal
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].orderKey < proposals[j].orderKey
	})
	for i := range proposals {
		p := &proposals[i]
		if !p.valid {
			continue
		}
		switch {
		case best == nil:
			best = p
		case p.delta < best.delta:
			best = p
		case p.delta == best.delta && p.varImprove > best.varImprove:
			best = p
		}
	}
	return best
}

// refreshMisses re-derives near-miss diagnostics for the slots that remain
// open after a structural move.
func refreshMisses(st *runState, gen *candidate.Generator, misses map[slotKey][]candidate.NearMiss) {
	for _, key := range st.open {
		game := st.sc.GameByID(key.gameID)
		if _, slotMisses := gen.Generate(game, key.role, st); len(slotMisses) > 0 {
			misses[key] = slotMisses
		}
	}
}

func bookingsExcluding(st *runState, refereeID, gameID string) []constraint.Booking {
	src := st.bookings[refereeID]
	out := make([]constraint.Booking, 0, len(src))
	for _, b := range src {
		if b.GameID != gameID {
			out = append(out, b)
		}
	}
	return out
}

func crewExcluding(st *runState, gameID, refereeID string) []string {
	var crew []string
	for _, id := range st.CrewFor(gameID) {
		if id != refereeID {
			crew = append(crew, id)
		}
	}
	return crew
}

// varianceDelta computes the workload-variance change from adjusting one
// referee's commitment count.
func varianceDelta(counts map[string]int, refereeID string, by int) float64 {
	before := loadVariance(counts)
	counts[refereeID] += by
	after := loadVariance(counts)
	counts[refereeID] -= by
	return after - before
}
