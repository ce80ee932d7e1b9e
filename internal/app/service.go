// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/refassign/internal/adapters/notify"
	"github.com/courtside/refassign/internal/adapters/repository"
	"github.com/courtside/refassign/internal/domain/conflict"
	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/lifecycle"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/internal/domain/schedule"
	"github.com/courtside/refassign/pkg/clock"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// notifierAdapter adapts the dispatcher's composition API to the
// lifecycle.Notifier interface, resolving entity snapshots from the latest
// scheduling context.
type notifierAdapter struct {
	svc *Service
}

func (n *notifierAdapter) NotifyOffer(ctx context.Context, a model.Assignment) {
	ref, game, venue := n.svc.resolve(a)
	if ref == nil {
		return
	}
	n.svc.dispatcher.SendAssignmentNotification(ctx, ref, &a, game, venue)
}

func (n *notifierAdapter) NotifyCancellation(ctx context.Context, a model.Assignment, reason string) {
	ref, _, _ := n.svc.resolve(a)
	if ref == nil {
		return
	}
	n.svc.dispatcher.SendCancellationNotification(ctx, ref, &a, reason)
}

func (n *notifierAdapter) NotifyPayment(ctx context.Context, a model.Assignment) {
	ref, _, _ := n.svc.resolve(a)
	if ref == nil {
		return
	}
	n.svc.dispatcher.SendPaymentNotification(ctx, ref, a.Pay.Total(), a.GameID, "direct deposit")
}

// Service implements the API dependencies for the scheduling system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	manager    *lifecycle.Manager
	detector   *conflict.Detector
	dispatcher *notify.Dispatcher
	clk        clock.Clock

	// Latest run's context snapshot, used to resolve entities for
	// notifications and expiry sweeps.
	lastContext *model.SchedulingContext

	// Configuration
	maxIterations        int
	timeBudget           time.Duration
	maxResults           int
	confirmationDeadline time.Duration
	expiryPolicy         lifecycle.ExpiryPolicy
	notifyWorkerCount    int
	notifyQueueSize      int
	notifyMaxAttempts    int
	dedupeSize           int
	coverageTarget       float64
	balanceFloor         float64
	costBudget           float64
	weights              *constraint.Weights

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxIterations bounds the optimizer's improvement loop.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithTimeBudget caps each scheduling run's wall time.
func WithTimeBudget(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeBudget = d
		}
	}
}

// WithMaxResults bounds how many run results the store retains.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithConfirmationDeadline sets how long referees have to answer offers.
func WithConfirmationDeadline(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.confirmationDeadline = d
		}
	}
}

// WithExpiryPolicy selects the overdue-offer policy.
func WithExpiryPolicy(p lifecycle.ExpiryPolicy) Option {
	return func(s *Service) {
		if p == lifecycle.ExpiryRelease || p == lifecycle.ExpiryHold {
			s.expiryPolicy = p
		}
	}
}

// WithNotifyWorkerCount sets the number of notification delivery workers.
func WithNotifyWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.notifyWorkerCount = count
		}
	}
}

// WithNotifyQueueSize sets the notification queue capacity.
func WithNotifyQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.notifyQueueSize = size
		}
	}
}

// WithNotifyMaxAttempts caps delivery attempts per notification.
func WithNotifyMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyMaxAttempts = n
		}
	}
}

// WithDedupeSize bounds the dispatched-notification dedupe memory.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithDetectorThresholds sets the conflict detector's suggestion thresholds.
func WithDetectorThresholds(coverageTarget, balanceFloor, costBudget float64) Option {
	return func(s *Service) {
		if coverageTarget > 0 {
			s.coverageTarget = coverageTarget
		}
		if balanceFloor > 0 {
			s.balanceFloor = balanceFloor
		}
		if costBudget > 0 {
			s.costBudget = costBudget
		}
	}
}

// WithWeights overrides the soft-penalty weights for every run.
func WithWeights(w constraint.Weights) Option {
	return func(s *Service) {
		s.weights = &w
	}
}

// WithClock sets the clock used for deadlines and retries.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clk = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxIterations:        1000,
		timeBudget:           30 * time.Second,
		maxResults:           1000,
		confirmationDeadline: 48 * time.Hour,
		expiryPolicy:         lifecycle.ExpiryRelease,
		notifyWorkerCount:    runtime.NumCPU(),
		notifyQueueSize:      10000,
		notifyMaxAttempts:    3,
		dedupeSize:           10000,
		coverageTarget:       0.95,
		balanceFloor:         0.6,
		clk:                  clock.Real{},
		logger:               nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scheduling service...")

	// Initialize components
	s.store = repository.NewMemStore(repository.WithMaxResults(s.maxResults))
	s.detector = conflict.New(
		conflict.WithCoverageTarget(s.coverageTarget),
		conflict.WithBalanceFloor(s.balanceFloor),
		conflict.WithCostBudget(s.costBudget),
	)
	s.dispatcher = notify.NewDispatcher(s,
		notify.WithWorkerCount(s.notifyWorkerCount),
		notify.WithQueueSize(s.notifyQueueSize),
		notify.WithMaxAttempts(s.notifyMaxAttempts),
		notify.WithDedupeSize(s.dedupeSize),
		notify.WithClock(s.clk),
	)
	s.manager = lifecycle.NewManager(s.store,
		lifecycle.WithNotifier(&notifierAdapter{svc: s}),
		lifecycle.WithClock(s.clk),
		lifecycle.WithExpiryPolicy(s.expiryPolicy),
		lifecycle.WithConstraints(model.AssignmentConstraints{
			ConfirmationDeadline: s.confirmationDeadline,
		}),
	)

	s.dispatcher.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scheduling service started",
		logger.Int("maxIterations", s.maxIterations),
		logger.Int("notifyWorkers", s.notifyWorkerCount),
		logger.String("expiryPolicy", string(s.expiryPolicy)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scheduling service...")

	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "scheduling service stopped")
}

// RunSchedule executes one scheduling run over a context snapshot and stores
// the validated result. Success requires every non-optional slot filled and
// no critical conflicts.
func (s *Service) RunSchedule(ctx context.Context, sc model.SchedulingContext) (model.SchedulingResult, error) {
	runCtx := ctx
	if s.timeBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeBudget)
		defer cancel()
	}

	optOpts := []schedule.Option{
		schedule.WithMaxIterations(s.maxIterations),
		schedule.WithTimeBudget(s.timeBudget),
		schedule.WithLogger(s.logger),
	}
	if s.weights != nil {
		optOpts = append(optOpts, schedule.WithWeights(*s.weights))
	}
	opt := schedule.New(optOpts...)

	res, err := opt.Run(runCtx, &sc)
	if err != nil {
		return model.SchedulingResult{}, fmt.Errorf("scheduling run: %w", err)
	}

	s.mu.Lock()
	s.lastContext = &sc
	s.mu.Unlock()

	// Validate the full assignment set: pre-existing and new alike.
	full := append(append([]model.Assignment(nil), sc.ExistingAssignments...), res.Assignments...)
	conflicts := s.detector.Detect(&sc, full)
	conflicts = append(conflicts, s.dispatcher.PermanentFailures()...)

	runMetrics := s.detector.ComputeMetrics(&sc, full, res.Unassigned, res.Objective, res.Iterations)
	suggestions := s.detector.Suggest(runMetrics, res.Unassigned)

	result := model.SchedulingResult{
		RunID:           uuid.NewString(),
		Success:         s.runSucceeded(&sc, res.Unassigned, conflicts),
		Assignments:     res.Assignments,
		UnassignedGames: res.Unassigned,
		Conflicts:       conflicts,
		Metrics:         runMetrics,
		Suggestions:     suggestions,
	}

	if err := s.manager.Register(ctx, res.Assignments); err != nil {
		return model.SchedulingResult{}, fmt.Errorf("register run output: %w", err)
	}
	if err := s.store.PutResult(ctx, result); err != nil {
		return model.SchedulingResult{}, fmt.Errorf("store run result: %w", err)
	}

	s.logger.Info(ctx, "scheduling run stored",
		logger.String("runID", result.RunID),
		logger.Any("success", result.Success),
		logger.Int("assignments", len(result.Assignments)),
		logger.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// runSucceeded applies the success criteria: every unfilled slot belongs to
// an optional game, and no conflict is critical.
func (s *Service) runSucceeded(sc *model.SchedulingContext, unassigned []model.UnassignedGame, conflicts []model.Conflict) bool {
	for _, u := range unassigned {
		game := sc.GameByID(u.Slot.GameID)
		if game == nil || !game.Optional {
			return false
		}
	}
	return !conflict.HasCritical(conflicts)
}

// GetResult returns a stored run result by run id.
func (s *Service) GetResult(ctx context.Context, runID string) (model.SchedulingResult, error) {
	return s.store.GetResult(ctx, runID)
}

// GetAssignment returns an assignment by id.
func (s *Service) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	return s.store.GetAssignment(ctx, id)
}

// ListAssignments returns every tracked assignment.
func (s *Service) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	return s.store.ListAssignments(ctx)
}

// Offer transitions an assignment to OFFERED and dispatches the offer.
func (s *Service) Offer(ctx context.Context, id string) (model.Assignment, error) {
	return s.manager.Offer(ctx, id)
}

// Respond applies a referee's confirm/decline under optimistic concurrency.
func (s *Service) Respond(ctx context.Context, id string, version int64, response lifecycle.Response) (model.Assignment, error) {
	return s.manager.Respond(ctx, id, version, response)
}

// Cancel cancels an assignment with an optional reason.
func (s *Service) Cancel(ctx context.Context, id, reason string) (model.Assignment, error) {
	return s.manager.Cancel(ctx, id, reason)
}

// Complete marks a confirmed assignment as worked.
func (s *Service) Complete(ctx context.Context, id string) (model.Assignment, error) {
	return s.manager.Complete(ctx, id)
}

// MarkNoShow marks a confirmed assignment as a no-show.
func (s *Service) MarkNoShow(ctx context.Context, id string) (model.Assignment, error) {
	return s.manager.MarkNoShow(ctx, id)
}

// MarkPaid marks a completed assignment as paid.
func (s *Service) MarkPaid(ctx context.Context, id string) (model.Assignment, error) {
	return s.manager.MarkPaid(ctx, id)
}

// ExpireOverdue applies the expiry policy to overdue offers.
func (s *Service) ExpireOverdue(ctx context.Context) ([]model.Assignment, error) {
	return s.manager.ExpireOverdue(ctx)
}

// FreedSlots lists slots a re-run should fill.
func (s *Service) FreedSlots(ctx context.Context) ([]model.Slot, error) {
	return s.manager.FreedSlots(ctx)
}

// RefereeByID resolves a referee from the latest run context. Implements
// notify.RefereeDirectory.
func (s *Service) RefereeByID(id string) *model.Referee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastContext == nil {
		return nil
	}
	return s.lastContext.RefereeByID(id)
}

// resolve looks up the entity snapshots behind an assignment.
func (s *Service) resolve(a model.Assignment) (*model.Referee, *model.Game, *model.Venue) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastContext == nil {
		return nil, nil, nil
	}
	ref := s.lastContext.RefereeByID(a.RefereeID)
	game := s.lastContext.GameByID(a.GameID)
	var venue *model.Venue
	if game != nil {
		venue = s.lastContext.VenueByID(game.VenueID)
	}
	return ref, game, venue
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":           s.started,
		"maxIterations":     s.maxIterations,
		"notifyWorkerCount": s.notifyWorkerCount,
		"expiryPolicy":      string(s.expiryPolicy),
	}

	if s.started {
		assignments := s.store.Count(ctx)
		stats["assignments"] = assignments
		stats["retriesPending"] = s.dispatcher.RetriesPending()
		stats["permanentFailures"] = len(s.dispatcher.PermanentFailures())

		metrics.UpdateStoredAssignments(assignments)
	}

	return stats
}
