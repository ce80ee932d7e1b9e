package notify

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/courtside/refassign/internal/adapters/mq/queue"
	"github.com/courtside/refassign/internal/adapters/mq/worker"
	"github.com/courtside/refassign/internal/domain/dedupe"
	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/clock"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultMaxAttempts = 3
	defaultWorkerCount = 4
	defaultQueueSize   = 10000
	defaultDedupeSize  = 10000
	pumpInterval       = time.Second
)

// Dispatcher is the explicitly constructed notification service: it owns its
// queue, worker pool, retry scheduler and dedupe state, with no process-wide
// singletons. Dispatch is fire-and-forget beyond queue admission; a
// scheduling result is never held up or rolled back by delivery failures.
type Dispatcher struct {
	channels map[model.NotificationChannel]Channel
	refs     RefereeDirectory
	queue    queue.Queue
	pool     *worker.Pool
	retries  *RetryScheduler
	deduper  dedupe.Deduper
	clk      clock.Clock
	logger   logger.Logger

	maxAttempts int
	workerCount int
	queueSize   int
	dedupeSize  int

	mu        sync.Mutex
	started   bool
	stop      chan struct{}
	permanent []model.Notification
}

// RefereeDirectory resolves referee ids to profile snapshots so the
// dispatcher knows which channels a referee has enabled.
type RefereeDirectory interface {
	RefereeByID(id string) *model.Referee
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithChannels replaces the default channel implementations.
func WithChannels(channels ...Channel) Option {
	return func(d *Dispatcher) {
		d.channels = make(map[model.NotificationChannel]Channel, len(channels))
		for _, c := range channels {
			d.channels[c.Name()] = c
		}
	}
}

// WithClock sets the clock used for backoff scheduling.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clk = c
		}
	}
}

// WithMaxAttempts caps per-channel delivery attempts.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workerCount = n
		}
	}
}

// WithQueueSize bounds the outbound queue.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithDedupeSize bounds how many dispatched notification ids are remembered.
func WithDedupeSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.dedupeSize = n
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher over a referee directory.
func NewDispatcher(refs RefereeDirectory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		refs:        refs,
		retries:     NewRetryScheduler(),
		clk:         clock.Real{},
		logger:      logger.Get().Named("dispatcher"),
		maxAttempts: defaultMaxAttempts,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(d.dedupeSize))
	if d.channels == nil {
		d.channels = make(map[model.NotificationChannel]Channel)
		for _, c := range DefaultChannels() {
			d.channels[c.Name()] = c
		}
	}
	return d
}

// Start launches the delivery workers and the retry pump.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.queue = queue.NewInMemoryQueue(queue.WithCapacity(d.queueSize))
	d.pool = worker.NewPool(d.workerCount, d.queue, d)
	d.pool.Start(ctx)
	go d.pumpLoop(ctx)
	d.started = true
}

// Stop shuts down the queue and workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	close(d.stop)
	if q, ok := d.queue.(*queue.InMemoryQueue); ok {
		_ = q.Close()
	}
	d.pool.Stop()
	d.started = false
}

// pumpLoop periodically moves due retries back onto the delivery queue.
func (d *Dispatcher) pumpLoop(ctx context.Context) {
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			d.Pump(ctx)
		}
	}
}

// Pump requeues every due retry. Exposed so tests can drive retries
// synchronously with a fake clock.
func (d *Dispatcher) Pump(ctx context.Context) {
	for _, msg := range d.retries.Due(d.clk.Now()) {
		if !d.queue.Enqueue(ctx, msg) {
			d.recordPermanent(ctx, msg, fmt.Errorf("queue rejected retry"))
		}
	}
}

// Deliver implements worker.Deliverer: one per-channel delivery attempt with
// exponential backoff on failure (2^attempt seconds, capped attempts).
func (d *Dispatcher) Deliver(ctx context.Context, msg queue.Message) error {
	ch, ok := d.channels[msg.Channel]
	if !ok {
		err := fmt.Errorf("no implementation for channel %s", msg.Channel)
		d.recordPermanent(ctx, msg, err)
		return err
	}
	ref := d.refs.RefereeByID(msg.RefereeID)
	if ref == nil {
		err := fmt.Errorf("unknown referee %s", msg.RefereeID)
		d.recordPermanent(ctx, msg, err)
		return err
	}

	err := ch.Send(ctx, ref, msg)
	if err == nil {
		metrics.RecordNotifyDelivered(string(msg.Channel))
		return nil
	}

	msg.Attempt++
	if msg.Attempt >= d.maxAttempts {
		d.recordPermanent(ctx, msg, err)
		return fmt.Errorf("delivery failed permanently after %d attempts: %w", msg.Attempt, err)
	}
	backoff := time.Duration(math.Pow(2, float64(msg.Attempt))) * time.Second
	d.retries.Add(msg, d.clk.Now().Add(backoff))
	metrics.RecordNotifyRetry(string(msg.Channel))
	return fmt.Errorf("delivery attempt %d failed, retrying in %s: %w", msg.Attempt, backoff, err)
}

// recordPermanent logs an exhausted delivery. The assignment stays valid;
// the unnotified state is surfaced to admins as a LOW-severity conflict.
func (d *Dispatcher) recordPermanent(ctx context.Context, msg model.Notification, err error) {
	d.mu.Lock()
	d.permanent = append(d.permanent, msg)
	d.mu.Unlock()
	metrics.RecordNotifyPermanentFailure(string(msg.Channel))
	d.logger.Error(ctx, "notification permanently failed",
		logger.String("notification", msg.ID),
		logger.String("channel", string(msg.Channel)),
		logger.Error(err),
	)
}

// PermanentFailures returns deliveries that exhausted their retries, as
// LOW-severity operational conflicts for manual follow-up.
func (d *Dispatcher) PermanentFailures() []model.Conflict {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Conflict, 0, len(d.permanent))
	for _, msg := range d.permanent {
		out = append(out, model.Conflict{
			Type:     model.NotificationFailed,
			Severity: model.SeverityLow,
			Description: fmt.Sprintf("%s notification %s to %s was never delivered",
				msg.Kind, msg.ID, msg.RefereeID),
			AffectedEntities: []string{msg.RefereeID, msg.AssignmentID},
		})
	}
	return out
}

// RetriesPending exposes the retry backlog for stats.
func (d *Dispatcher) RetriesPending() int { return d.retries.Pending() }
