package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/courtside/refassign/internal/adapters/mq/queue"
	worker "github.com/courtside/refassign/internal/adapters/mq/worker"
	model "github.com/courtside/refassign/internal/domain/model"
	logging "github.com/courtside/refassign/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockSource struct {
	msgChan chan queue.Message
}

func newMockSource() *mockSource {
	return &mockSource{
		msgChan: make(chan queue.Message, 256),
	}
}

func (ms *mockSource) Dequeue(ctx context.Context) <-chan queue.Message {
	return ms.msgChan
}

func (ms *mockSource) addMessage(msg queue.Message) {
	ms.msgChan <- msg
}

func (ms *mockSource) close() {
	close(ms.msgChan)
}

type mockDeliverer struct {
	delivered map[string]int
	errors    map[string]error
	mu        sync.RWMutex
}

func newMockDeliverer() *mockDeliverer {
	return &mockDeliverer{
		delivered: make(map[string]int),
		errors:    make(map[string]error),
	}
}

func (md *mockDeliverer) Deliver(ctx context.Context, msg queue.Message) error {
	md.mu.Lock()
	defer md.mu.Unlock()

	md.delivered[msg.ID]++
	if err, exists := md.errors[msg.ID]; exists {
		return err
	}
	return nil
}

func (md *mockDeliverer) setError(id string, err error) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.errors[id] = err
}

func (md *mockDeliverer) attempts(id string) int {
	md.mu.RLock()
	defer md.mu.RUnlock()
	return md.delivered[id]
}

func offerMessage(id string) queue.Message {
	return model.Notification{
		ID:        id,
		Kind:      model.NotifyOffer,
		RefereeID: "ref-1",
		Channel:   model.ChannelEmail,
		Subject:   "New assignment offer",
	}
}

func TestDeliveryWorker(t *testing.T) {
	convey.Convey("Given a delivery worker", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		source := newMockSource()
		deliverer := newMockDeliverer()

		convey.Convey("When creating a worker with default options", func() {
			w := worker.NewWorker(source, deliverer)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewWorker(source, deliverer, worker.WithName("test-worker"))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewWorker(source, deliverer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Start worker in goroutine
			go w.Run(ctx)

			// Give worker time to start
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when a message arrives", func() {
				source.addMessage(offerMessage("msg-1"))

				// Give worker time to process
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should hand the message to the deliverer", func() {
					convey.So(deliverer.attempts("msg-1"), convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And when delivery fails", func() {
				deliverer.setError("msg-bad", errors.New("smtp unreachable"))
				source.addMessage(offerMessage("msg-bad"))
				source.addMessage(offerMessage("msg-good"))

				// Give worker time to process
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the worker keeps draining later messages", func() {
					convey.So(deliverer.attempts("msg-bad"), convey.ShouldEqual, 1)
					convey.So(deliverer.attempts("msg-good"), convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})

				convey.Convey("Then a repeated shutdown does not panic", func() {
					convey.So(func() { _ = w.Shutdown(shutdownCtx) }, convey.ShouldNotPanic)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewWorker(source, deliverer)
			ctx, cancel := context.WithCancel(context.Background())

			go w.Run(ctx)

			// Give worker time to start
			time.Sleep(10 * time.Millisecond)

			cancel()

			// Give worker time to stop
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then messages added afterwards stay undelivered", func() {
				source.addMessage(offerMessage("msg-late"))
				time.Sleep(50 * time.Millisecond)
				convey.So(deliverer.attempts("msg-late"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the source channel is closed", func() {
			w := worker.NewWorker(source, deliverer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			source.close()
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then a later shutdown returns immediately", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a delivery worker pool", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		source := newMockSource()
		deliverer := newMockDeliverer()

		convey.Convey("When creating a pool with a non-positive count", func() {
			pool := worker.NewPool(0, source, deliverer)

			convey.Convey("Then it should fall back to the default count", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a pool with a custom count", func() {
			pool := worker.NewPool(3, source, deliverer)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When starting a pool", func() {
			pool := worker.NewPool(2, source, deliverer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			// Give workers time to start
			time.Sleep(20 * time.Millisecond)

			convey.Convey("And when processing multiple messages", func() {
				ids := []string{"msg-1", "msg-2", "msg-3"}
				for _, id := range ids {
					source.addMessage(offerMessage(id))
				}

				// Give workers time to process
				time.Sleep(100 * time.Millisecond)

				convey.Convey("Then every message should be delivered exactly once", func() {
					for _, id := range ids {
						convey.So(deliverer.attempts(id), convey.ShouldEqual, 1)
					}
				})
			})

			convey.Convey("And when stopping the pool", func() {
				pool.Stop()

				convey.Convey("Then messages added afterwards stay undelivered", func() {
					source.addMessage(offerMessage("msg-after-stop"))
					time.Sleep(50 * time.Millisecond)
					convey.So(deliverer.attempts("msg-after-stop"), convey.ShouldEqual, 0)
				})

				convey.Convey("Then stopping again does not panic", func() {
					convey.So(pool.Stop, convey.ShouldNotPanic)
				})
			})
		})
	})
}

func TestWorkerPoolConcurrency(t *testing.T) {
	convey.Convey("Given a pool with several workers", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		source := newMockSource()
		deliverer := newMockDeliverer()

		pool := worker.NewPool(4, source, deliverer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool.Start(ctx)

		// Give workers time to start
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When many producers enqueue concurrently", func() {
			const messageCount = 100
			var wg sync.WaitGroup

			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producerID int) {
					defer wg.Done()
					for j := 0; j < messageCount/5; j++ {
						source.addMessage(offerMessage(fmt.Sprintf("msg-%d-%d", producerID, j)))
					}
				}(i)
			}

			wg.Wait()

			// Give workers time to process
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then every message should be delivered", func() {
				delivered := 0
				for i := 0; i < 5; i++ {
					for j := 0; j < messageCount/5; j++ {
						if deliverer.attempts(fmt.Sprintf("msg-%d-%d", i, j)) == 1 {
							delivered++
						}
					}
				}
				convey.So(delivered, convey.ShouldEqual, messageCount)
			})
		})
	})
}
