package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/courtside/refassign/internal/domain/model"
)

// RetryScheduler holds failed deliveries until their backoff delay elapses.
// It is a plain inspectable structure: tests drive it synchronously through
// Due with a fake clock, and operators can cancel a pending retry.
type RetryScheduler struct {
	mu      sync.Mutex
	pending []model.Notification
}

// NewRetryScheduler creates an empty scheduler.
func NewRetryScheduler() *RetryScheduler {
	return &RetryScheduler{}
}

// Add schedules a message for redelivery at the given instant.
func (s *RetryScheduler) Add(msg model.Notification, at time.Time) {
	msg.NotBefore = at
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].NotBefore.Before(s.pending[j].NotBefore)
	})
}

// Due pops every message whose retry time has arrived.
func (s *RetryScheduler) Due(now time.Time) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := 0
	for idx < len(s.pending) && !s.pending[idx].NotBefore.After(now) {
		idx++
	}
	due := append([]model.Notification(nil), s.pending[:idx]...)
	s.pending = s.pending[idx:]
	return due
}

// Cancel removes a pending retry by notification id.
func (s *RetryScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.pending {
		if msg.ID == id {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns how many retries are waiting.
func (s *RetryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
