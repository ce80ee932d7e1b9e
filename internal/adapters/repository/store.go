// Package repository defines the assignment and run store interface and
// errors. Long-term persistence belongs to an external service; this store
// holds the engine's working set.
package repository

import (
	"context"

	"github.com/courtside/refassign/internal/domain/model"
)

// Store provides read/write access to assignments and stored run results.
type Store interface {
	// PutAssignment inserts or replaces an assignment record.
	PutAssignment(ctx context.Context, a model.Assignment) error

	// GetAssignment returns an assignment by id.
	// Returns ErrNotFound if the id is unknown.
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)

	// UpdateAssignment replaces an assignment iff the stored version matches
	// expectedVersion. Returns ErrVersionMismatch on a stale update.
	UpdateAssignment(ctx context.Context, a model.Assignment, expectedVersion int64) (model.Assignment, error)

	// ListAssignments returns every stored assignment, ordered by id.
	ListAssignments(ctx context.Context) ([]model.Assignment, error)

	// PutResult stores a finished run result.
	PutResult(ctx context.Context, result model.SchedulingResult) error

	// GetResult returns a stored run result by run id.
	// Returns ErrNotFound if the run is unknown.
	GetResult(ctx context.Context, runID string) (model.SchedulingResult, error)

	// Count returns the number of assignments tracked.
	Count(ctx context.Context) int
}
