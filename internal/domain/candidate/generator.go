// Package candidate produces the ranked set of admissible referees for one
// unfilled (game, role) slot. An empty result is not an error; it is what
// marks the slot unassignable.
package candidate

import (
	"sort"

	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/model"
)

// Ranked is one admissible referee with its soft penalty.
type Ranked struct {
	Referee     *model.Referee
	SoftPenalty float64
}

// NearMiss records an inadmissible referee and why, for operator diagnostics
// on unfilled slots.
type NearMiss struct {
	RefereeID  string
	Violations []model.ConflictType
	Detail     string
}

// State exposes the optimizer's provisional bookkeeping the generator needs.
// Reads must observe a consistent snapshot for the slot being filled.
type State interface {
	// BookingsFor returns existing plus provisional commitments for a referee.
	BookingsFor(refereeID string) []constraint.Booking
	// CrewFor returns referee ids already slotted on a game.
	CrewFor(gameID string) []string
	// RunLoadFor returns how many assignments the referee has picked up in
	// the current run, for the load-balancing tie-break.
	RunLoadFor(refereeID string) int
}

// Generator ranks admissible referees for slots using a shared evaluator.
type Generator struct {
	eval *constraint.Evaluator
	pool []model.Referee
}

// New builds a generator over a referee pool.
func New(eval *constraint.Evaluator, pool []model.Referee) *Generator {
	return &Generator{eval: eval, pool: pool}
}

// Generate filters the pool by role specialization, evaluates each remaining
// referee, and returns admissible candidates sorted ascending by penalty.
// Ties break on higher reliability, then fewer run assignments, then id, so
// two runs over identical input rank identically.
func (g *Generator) Generate(game *model.Game, role model.GameRole, state State) ([]Ranked, []NearMiss) {
	var ranked []Ranked
	var misses []NearMiss

	crew := state.CrewFor(game.ID)
	for i := range g.pool {
		ref := &g.pool[i]
		if !ref.CanFill(role) {
			continue
		}
		ev := g.eval.Evaluate(constraint.Candidate{
			Referee:  ref,
			Game:     game,
			Role:     role,
			Bookings: state.BookingsFor(ref.ID),
			Crew:     crew,
		})
		if !ev.Admissible {
			misses = append(misses, NearMiss{
				RefereeID:  ref.ID,
				Violations: ev.HardViolations,
				Detail:     ev.Detail,
			})
			continue
		}
		ranked = append(ranked, Ranked{Referee: ref, SoftPenalty: ev.SoftPenalty})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SoftPenalty != b.SoftPenalty {
			return a.SoftPenalty < b.SoftPenalty
		}
		if a.Referee.Reliability != b.Referee.Reliability {
			return a.Referee.Reliability > b.Referee.Reliability
		}
		la, lb := state.RunLoadFor(a.Referee.ID), state.RunLoadFor(b.Referee.ID)
		if la != lb {
			return la < lb
		}
		return a.Referee.ID < b.Referee.ID
	})

	// Fewest-violations first so the most actionable near-misses lead the
	// diagnostic list.
	sort.SliceStable(misses, func(i, j int) bool {
		if len(misses[i].Violations) != len(misses[j].Violations) {
			return len(misses[i].Violations) < len(misses[j].Violations)
		}
		return misses[i].RefereeID < misses[j].RefereeID
	})

	return ranked, misses
}
