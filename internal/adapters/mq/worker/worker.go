// Package worker defines the delivery worker pool that drains the
// notification queue and hands each message to the dispatcher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/courtside/refassign/internal/adapters/mq/queue"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
)

// Deliverer attempts delivery of one message. Retry bookkeeping lives behind
// this interface; the worker just reports the error for logging.
type Deliverer interface {
	Deliver(ctx context.Context, msg queue.Message) error
}

// Source defines how workers receive messages.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Message
}

// Worker drains messages until its context or shutdown signal fires.
type Worker struct {
	source    Source
	deliverer Deliverer
	name      string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// signalStop closes the shutdown channel exactly once, so Pool.Stop and
// Worker.Shutdown can be combined or repeated safely.
func (w *Worker) signalStop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a delivery worker.
func NewWorker(source Source, deliverer Deliverer, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		deliverer: deliverer,
		name:      "delivery-worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("delivery-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := w.deliverer.Deliver(ctx, msg); err != nil {
				w.logger.Error(ctx, "notification delivery failed",
					logger.String("notification", msg.ID),
					logger.String("channel", string(msg.Channel)),
					logger.Error(err),
				)
				metrics.RecordNotifyDeliveryError(string(msg.Channel))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.signalStop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple delivery workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool with workerCount workers.
func NewPool(workerCount int, source Source, deliverer Deliverer) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("delivery-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(source, deliverer, WithName("delivery-worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateNotifyWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each to finish.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.signalStop()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}
