package schedule

import (
	"sort"

	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/model"
)

// slotKey identifies one (game, role, index) unit of coverage.
type slotKey struct {
	gameID string
	role   model.GameRole
	index  int
}

// runState is the optimizer's provisional bookkeeping for one run: which
// slot holds which assignment, and what each referee is committed to. The
// construction loop is the single writer; read-only proposal scoring may run
// concurrently against it between commits.
type runState struct {
	sc *model.SchedulingContext

	// Slot occupancy. fixed slots hold pre-existing or pinned assignments
	// the optimizer must not touch.
	filled map[slotKey]*model.Assignment
	fixed  map[slotKey]bool
	open   []slotKey

	// Per-referee commitments: pre-existing bookings plus provisional ones
	// created this run.
	bookings map[string][]constraint.Booking
	runLoad  map[string]int

	// penalties tracks the soft penalty of each run-created assignment for
	// objective accounting.
	penalties map[slotKey]float64
}

// newRunState expands every game into its required slots and seats the
// pre-existing active assignments into them.
func newRunState(sc *model.SchedulingContext) *runState {
	st := &runState{
		sc:        sc,
		filled:    make(map[slotKey]*model.Assignment),
		fixed:     make(map[slotKey]bool),
		bookings:  make(map[string][]constraint.Booking),
		runLoad:   make(map[string]int),
		penalties: make(map[slotKey]float64),
	}

	// Seat existing active assignments first: they occupy slots and count
	// toward every constraint, but this run never modifies them.
	byGameRole := make(map[string]map[model.GameRole][]*model.Assignment)
	for i := range sc.ExistingAssignments {
		a := &sc.ExistingAssignments[i]
		if !a.Status.Active() {
			continue
		}
		if byGameRole[a.GameID] == nil {
			byGameRole[a.GameID] = make(map[model.GameRole][]*model.Assignment)
		}
		byGameRole[a.GameID][a.Role] = append(byGameRole[a.GameID][a.Role], a)
		st.addBooking(a.RefereeID, sc.GameByID(a.GameID))
	}

	for gi := range sc.Games {
		g := &sc.Games[gi]
		for _, req := range g.Required {
			seated := byGameRole[g.ID][req.Role]
			for idx := 0; idx < req.Quantity; idx++ {
				key := slotKey{gameID: g.ID, role: req.Role, index: idx}
				if idx < len(seated) {
					st.filled[key] = seated[idx]
					st.fixed[key] = true
					continue
				}
				st.open = append(st.open, key)
			}
		}
	}
	return st
}

func (st *runState) addBooking(refereeID string, game *model.Game) {
	if game == nil {
		return
	}
	st.bookings[refereeID] = append(st.bookings[refereeID], constraint.Booking{
		GameID:  game.ID,
		VenueID: game.VenueID,
		Start:   game.Start,
		End:     game.End(),
	})
}

func (st *runState) dropBooking(refereeID, gameID string) {
	list := st.bookings[refereeID]
	for i := range list {
		if list[i].GameID == gameID {
			st.bookings[refereeID] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// assign seats a run-created assignment into an open slot.
func (st *runState) assign(key slotKey, a *model.Assignment, penalty float64) {
	st.filled[key] = a
	st.penalties[key] = penalty
	st.runLoad[a.RefereeID]++
	st.addBooking(a.RefereeID, st.sc.GameByID(key.gameID))
	for i, k := range st.open {
		if k == key {
			st.open = append(st.open[:i:i], st.open[i+1:]...)
			break
		}
	}
}

// unassign frees a run-created slot, returning it to the open list.
func (st *runState) unassign(key slotKey) {
	a := st.filled[key]
	if a == nil || st.fixed[key] {
		return
	}
	delete(st.filled, key)
	delete(st.penalties, key)
	st.runLoad[a.RefereeID]--
	st.dropBooking(a.RefereeID, key.gameID)
	st.open = append(st.open, key)
	sortSlots(st.open, st.sc)
}

// BookingsFor implements candidate.State.
func (st *runState) BookingsFor(refereeID string) []constraint.Booking {
	return st.bookings[refereeID]
}

// CrewFor implements candidate.State.
func (st *runState) CrewFor(gameID string) []string {
	var crew []string
	for key, a := range st.filled {
		if key.gameID == gameID {
			crew = append(crew, a.RefereeID)
		}
	}
	sort.Strings(crew)
	return crew
}

// RunLoadFor implements candidate.State.
func (st *runState) RunLoadFor(refereeID string) int {
	return st.runLoad[refereeID]
}

// mutableSlots returns the run-created slots the improvement phase may touch,
// in deterministic order.
func (st *runState) mutableSlots() []slotKey {
	var keys []slotKey
	for key := range st.filled {
		if !st.fixed[key] {
			keys = append(keys, key)
		}
	}
	sortSlots(keys, st.sc)
	return keys
}

// loadCounts returns active commitments per referee, the fairness signal.
func (st *runState) loadCounts() map[string]int {
	counts := make(map[string]int, len(st.sc.Referees))
	for i := range st.sc.Referees {
		counts[st.sc.Referees[i].ID] = len(st.bookings[st.sc.Referees[i].ID])
	}
	return counts
}

// sortSlots orders slots by the construction priority key: importance desc,
// start asc, slot count desc, then ids for determinism.
func sortSlots(keys []slotKey, sc *model.SchedulingContext) {
	pri := make(map[string]*model.Game, len(sc.Games))
	for i := range sc.Games {
		pri[sc.Games[i].ID] = &sc.Games[i]
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := pri[keys[i].gameID], pri[keys[j].gameID]
		if a == nil || b == nil {
			return keys[i].gameID < keys[j].gameID
		}
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.SlotCount() != b.SlotCount() {
			return a.SlotCount() > b.SlotCount()
		}
		if keys[i].gameID != keys[j].gameID {
			return keys[i].gameID < keys[j].gameID
		}
		if keys[i].role != keys[j].role {
			return keys[i].role < keys[j].role
		}
		return keys[i].index < keys[j].index
	})
}
