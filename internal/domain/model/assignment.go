package model

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "PENDING"
	StatusOffered   AssignmentStatus = "OFFERED"
	StatusConfirmed AssignmentStatus = "CONFIRMED"
	StatusDeclined  AssignmentStatus = "DECLINED"
	StatusCancelled AssignmentStatus = "CANCELLED"
	StatusNoShow    AssignmentStatus = "NO_SHOW"
	StatusCompleted AssignmentStatus = "COMPLETED"
	StatusPaid      AssignmentStatus = "PAID"
)

// Terminal reports whether no further transition leaves the status.
func (s AssignmentStatus) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusNoShow, StatusPaid:
		return true
	default:
		return false
	}
}

// Active reports whether the assignment still occupies its slot and counts
// toward the referee's workload.
func (s AssignmentStatus) Active() bool {
	switch s {
	case StatusPending, StatusOffered, StatusConfirmed:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the legal transition table:
// PENDING→OFFERED→{CONFIRMED,DECLINED}; CONFIRMED→{CANCELLED,NO_SHOW,COMPLETED};
// COMPLETED→PAID; CANCELLED is reachable from any pre-COMPLETED state.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	if next == StatusCancelled {
		return s == StatusPending || s == StatusOffered || s == StatusConfirmed
	}
	switch s {
	case StatusPending:
		return next == StatusOffered
	case StatusOffered:
		return next == StatusConfirmed || next == StatusDeclined
	case StatusConfirmed:
		return next == StatusNoShow || next == StatusCompleted
	case StatusCompleted:
		return next == StatusPaid
	default:
		return false
	}
}

// Pay captures the money attached to an assignment. Payment processing is
// external; the engine only totals rate and bonuses for cost metrics.
type Pay struct {
	Rate    float64 `json:"rate"`
	Bonuses float64 `json:"bonuses,omitempty"`
}

// Total returns rate plus bonuses.
func (p Pay) Total() float64 { return p.Rate + p.Bonuses }

// Assignment binds a referee to one (game, role) slot.
//
// Version implements optimistic concurrency: every mutation by the lifecycle
// manager increments it, and callers supplying a stale version are rejected.
type Assignment struct {
	ID            string           `json:"id"`
	GameID        string           `json:"game_id"`
	RefereeID     string           `json:"referee_id"`
	Role          GameRole         `json:"role"`
	Status        AssignmentStatus `json:"status"`
	Pay           Pay              `json:"pay"`
	ConflictScore float64          `json:"conflict_score"`
	AutoAssigned  bool             `json:"auto_assigned"`
	Version       int64            `json:"version"`

	OfferedAt    time.Time `json:"offered_at,omitempty"`
	OfferExpires time.Time `json:"offer_expires,omitempty"`
	RespondedAt  time.Time `json:"responded_at,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Pinned reports whether the assignment is a manual override the optimizer
// must not touch.
func (a *Assignment) Pinned() bool { return !a.AutoAssigned }

// Slot identifies one (game, role) unit of required coverage.
type Slot struct {
	GameID string   `json:"game_id"`
	Role   GameRole `json:"role"`
	Index  int      `json:"index"` // distinguishes multiple slots of the same role
}
