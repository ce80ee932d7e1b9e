package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel kinds for lifecycle errors.
var (
	// ErrInvalidTransition rejects a transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid assignment transition")

	// ErrStaleAssignment marks an optimistic-concurrency failure; callers
	// must refetch and retry rather than drop the response.
	ErrStaleAssignment = errors.New("stale assignment")
)

// StaleAssignmentError reports a version mismatch on a transition attempt.
type StaleAssignmentError struct {
	AssignmentID string
	Expected     int64
	Actual       int64
}

func (e *StaleAssignmentError) Error() string {
	return fmt.Sprintf("assignment %s: expected version %d, have %d",
		e.AssignmentID, e.Expected, e.Actual)
}

// Is lets errors.Is match the ErrStaleAssignment sentinel.
func (e *StaleAssignmentError) Is(target error) bool {
	return target == ErrStaleAssignment
}
