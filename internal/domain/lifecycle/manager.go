// Package lifecycle owns the assignment state machine:
// PENDING→OFFERED→{CONFIRMED,DECLINED}; CONFIRMED→{CANCELLED,NO_SHOW,COMPLETED};
// COMPLETED→PAID. Concurrent confirm/decline responses racing with re-runs
// are mediated with optimistic concurrency on each assignment's version.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/courtside/refassign/internal/adapters/repository"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/clock"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// Response is a referee's answer to an offer.
type Response string

const (
	ResponseAccepted Response = "ACCEPTED"
	ResponseDeclined Response = "DECLINED"
)

// ExpiryPolicy decides what happens to an OFFERED assignment whose
// confirmation deadline passed without a response.
type ExpiryPolicy string

const (
	// ExpiryRelease treats the expiry as an implicit decline and frees the
	// slot for re-scheduling.
	ExpiryRelease ExpiryPolicy = "release"

	// ExpiryHold keeps the offer open and surfaces the overdue state for
	// manual admin action.
	ExpiryHold ExpiryPolicy = "hold"
)

// Notifier is the outbound boundary the manager drives. Dispatch is
// fire-and-forget; delivery failures never roll back a transition.
type Notifier interface {
	NotifyOffer(ctx context.Context, a model.Assignment)
	NotifyCancellation(ctx context.Context, a model.Assignment, reason string)
	NotifyPayment(ctx context.Context, a model.Assignment)
}

// nopNotifier is used until a real dispatcher is wired.
type nopNotifier struct{}

func (nopNotifier) NotifyOffer(context.Context, model.Assignment)                {}
func (nopNotifier) NotifyCancellation(context.Context, model.Assignment, string) {}
func (nopNotifier) NotifyPayment(context.Context, model.Assignment)              {}

// Manager mediates every assignment mutation after the optimizer hands off.
type Manager struct {
	store    repository.Store
	notifier Notifier
	clk      clock.Clock
	policy   ExpiryPolicy
	deadline model.AssignmentConstraints
	logger   logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNotifier sets the outbound notification boundary.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock sets the clock used for deadlines.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clk = c
		}
	}
}

// WithExpiryPolicy selects the behavior for overdue offers.
func WithExpiryPolicy(p ExpiryPolicy) Option {
	return func(m *Manager) {
		if p == ExpiryRelease || p == ExpiryHold {
			m.policy = p
		}
	}
}

// WithConstraints supplies the run constraints the manager needs, notably
// the confirmation deadline.
func WithConstraints(c model.AssignmentConstraints) Option {
	return func(m *Manager) {
		m.deadline = c
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a lifecycle manager over a store.
func NewManager(store repository.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		notifier: nopNotifier{},
		clk:      clock.Real{},
		policy:   ExpiryRelease,
		logger:   logger.Get().Named("lifecycle"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register seeds optimizer output into the store so transitions can be
// applied to it. Existing records with the same id are replaced only when
// still PENDING.
func (m *Manager) Register(ctx context.Context, assignments []model.Assignment) error {
	for _, a := range assignments {
		if current, err := m.store.GetAssignment(ctx, a.ID); err == nil && current.Status != model.StatusPending {
			continue
		}
		a.UpdatedAt = m.clk.Now()
		if err := m.store.PutAssignment(ctx, a); err != nil {
			return fmt.Errorf("register assignment %s: %w", a.ID, err)
		}
	}
	return nil
}

// Offer transitions PENDING→OFFERED, stamps the confirmation deadline and
// dispatches the offer notification.
func (m *Manager) Offer(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.transition(ctx, id, -1, model.StatusOffered, func(a *model.Assignment) {
		now := m.clk.Now()
		a.OfferedAt = now
		if m.deadline.ConfirmationDeadline > 0 {
			a.OfferExpires = now.Add(m.deadline.ConfirmationDeadline)
		}
	})
	if err != nil {
		return model.Assignment{}, err
	}
	m.notifier.NotifyOffer(ctx, a)
	metrics.RecordAssignmentTransition(string(model.StatusOffered))
	return a, nil
}

// Respond applies a referee's answer under optimistic concurrency: a stale
// version is rejected with a StaleAssignmentError so the caller can refetch
// and retry, never silently dropped.
func (m *Manager) Respond(ctx context.Context, id string, version int64, response Response) (model.Assignment, error) {
	next := model.StatusConfirmed
	if response == ResponseDeclined {
		next = model.StatusDeclined
	} else if response != ResponseAccepted {
		return model.Assignment{}, fmt.Errorf("unknown response %q: %w", response, ErrInvalidTransition)
	}
	a, err := m.transition(ctx, id, version, next, func(a *model.Assignment) {
		a.RespondedAt = m.clk.Now()
	})
	if err != nil {
		return model.Assignment{}, err
	}
	metrics.RecordAssignmentTransition(string(next))
	return a, nil
}

// Cancel transitions any pre-COMPLETED assignment to CANCELLED and
// dispatches a cancellation notification. The slot becomes eligible for
// re-assignment in a subsequent run.
func (m *Manager) Cancel(ctx context.Context, id, reason string) (model.Assignment, error) {
	a, err := m.transition(ctx, id, -1, model.StatusCancelled, func(a *model.Assignment) {
		a.CancelReason = reason
	})
	if err != nil {
		return model.Assignment{}, err
	}
	m.notifier.NotifyCancellation(ctx, a, reason)
	metrics.RecordAssignmentTransition(string(model.StatusCancelled))
	return a, nil
}

// Complete transitions CONFIRMED→COMPLETED after the game.
func (m *Manager) Complete(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.transition(ctx, id, -1, model.StatusCompleted, nil)
	if err == nil {
		metrics.RecordAssignmentTransition(string(model.StatusCompleted))
	}
	return a, err
}

// MarkNoShow transitions CONFIRMED→NO_SHOW.
func (m *Manager) MarkNoShow(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.transition(ctx, id, -1, model.StatusNoShow, nil)
	if err == nil {
		metrics.RecordAssignmentTransition(string(model.StatusNoShow))
	}
	return a, err
}

// MarkPaid transitions COMPLETED→PAID and dispatches the payment
// notification. Payment amounts themselves are owned by the external payment
// processor.
func (m *Manager) MarkPaid(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.transition(ctx, id, -1, model.StatusPaid, nil)
	if err != nil {
		return model.Assignment{}, err
	}
	m.notifier.NotifyPayment(ctx, a)
	metrics.RecordAssignmentTransition(string(model.StatusPaid))
	return a, nil
}

// ExpireOverdue applies the configured expiry policy to every OFFERED
// assignment whose deadline has passed, returning the affected records.
// Under the release policy an expiry is an implicit decline that frees the
// slot; under hold the offer stays open for manual action.
func (m *Manager) ExpireOverdue(ctx context.Context) ([]model.Assignment, error) {
	all, err := m.store.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	now := m.clk.Now()

	var overdue []model.Assignment
	for _, a := range all {
		if a.Status != model.StatusOffered || a.OfferExpires.IsZero() || now.Before(a.OfferExpires) {
			continue
		}
		if m.policy == ExpiryHold {
			overdue = append(overdue, a)
			continue
		}
		expired, err := m.transition(ctx, a.ID, a.Version, model.StatusDeclined, func(a *model.Assignment) {
			a.RespondedAt = now
		})
		if err != nil {
			// A concurrent response won the race; that outcome stands.
			if errors.Is(err, ErrStaleAssignment) {
				continue
			}
			return overdue, err
		}
		m.logger.Info(ctx, "offer expired, slot released",
			logger.String("assignment", expired.ID),
			logger.String("referee", expired.RefereeID),
		)
		metrics.RecordOfferExpired()
		overdue = append(overdue, expired)
	}
	return overdue, nil
}

// FreedSlots lists (game, role) slots whose assignment was declined or
// cancelled and that no newer active assignment covers; these are the slots
// a re-run should fill.
func (m *Manager) FreedSlots(ctx context.Context) ([]model.Slot, error) {
	all, err := m.store.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	type roleKey struct {
		gameID string
		role   model.GameRole
	}
	active := make(map[roleKey]int)
	freed := make(map[roleKey]int)
	for _, a := range all {
		key := roleKey{gameID: a.GameID, role: a.Role}
		switch {
		case a.Status.Active():
			active[key]++
		case a.Status == model.StatusDeclined || a.Status == model.StatusCancelled:
			freed[key]++
		}
	}

	var slots []model.Slot
	for key, n := range freed {
		for i := 0; i < n-active[key]; i++ {
			slots = append(slots, model.Slot{GameID: key.gameID, Role: key.role, Index: active[key] + i})
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].GameID != slots[j].GameID {
			return slots[i].GameID < slots[j].GameID
		}
		if slots[i].Role != slots[j].Role {
			return slots[i].Role < slots[j].Role
		}
		return slots[i].Index < slots[j].Index
	})
	return slots, nil
}

// transition applies one state change under optimistic concurrency. A
// negative expectedVersion means "current version", used for admin-driven
// transitions that do not race with referee responses.
func (m *Manager) transition(ctx context.Context, id string, expectedVersion int64, next model.AssignmentStatus, mutate func(*model.Assignment)) (model.Assignment, error) {
	current, err := m.store.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	if expectedVersion >= 0 && current.Version != expectedVersion {
		return model.Assignment{}, &StaleAssignmentError{
			AssignmentID: id,
			Expected:     expectedVersion,
			Actual:       current.Version,
		}
	}
	if !current.Status.CanTransitionTo(next) {
		return model.Assignment{}, fmt.Errorf("assignment %s: %s -> %s: %w",
			id, current.Status, next, ErrInvalidTransition)
	}

	updated := current
	updated.Status = next
	updated.UpdatedAt = m.clk.Now()
	if mutate != nil {
		mutate(&updated)
	}

	stored, err := m.store.UpdateAssignment(ctx, updated, current.Version)
	if err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			// Lost the read-modify-write race; report it as stale so the
			// caller refetches.
			latest, gerr := m.store.GetAssignment(ctx, id)
			actual := int64(-1)
			if gerr == nil {
				actual = latest.Version
			}
			return model.Assignment{}, &StaleAssignmentError{
				AssignmentID: id,
				Expected:     current.Version,
				Actual:       actual,
			}
		}
		return model.Assignment{}, err
	}
	return stored, nil
}
