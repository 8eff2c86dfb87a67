package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/jakechorley/volts/pkg/db"
)

// GetAssignment retrieves an assignment by id
func (q *queries) GetAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	a, ok := q.st.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, db.ErrNotFound)
	}
	return &a, nil
}

// LockAssignment retrieves an assignment; transactions already hold the store mutex
func (q *queries) LockAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	return q.GetAssignment(ctx, id)
}

// GetAssignmentForUser retrieves the user's assignment on a slot, in any status
func (q *queries) GetAssignmentForUser(ctx context.Context, userID, shiftPositionID string) (*db.Assignment, error) {
	for _, a := range q.st.assignments {
		if a.UserID == userID && a.ShiftPositionID == shiftPositionID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("assignment of %s on %s: %w", userID, shiftPositionID, db.ErrNotFound)
}

// ListAssignments returns the slot's assignments in application order
func (q *queries) ListAssignments(ctx context.Context, shiftPositionID string) ([]db.Assignment, error) {
	return sortedValues(q.st.assignments,
		func(a db.Assignment) bool { return a.ShiftPositionID == shiftPositionID },
		func(a db.Assignment) (int64, string) { return a.AppliedAt.UnixNano(), a.ID },
	), nil
}

// CountAssignments counts the slot's assignments in any of statuses, or all of them
func (q *queries) CountAssignments(ctx context.Context, shiftPositionID string, statuses ...db.AssignmentStatus) (int, error) {
	count := 0
	for _, a := range q.st.assignments {
		if a.ShiftPositionID != shiftPositionID {
			continue
		}
		if len(statuses) == 0 || slices.Contains(statuses, a.Status) {
			count++
		}
	}
	return count, nil
}

// InsertAssignment inserts an assignment, enforcing (user, slot) uniqueness
func (q *queries) InsertAssignment(ctx context.Context, assignment *db.Assignment) error {
	if _, ok := q.st.shiftPositions[assignment.ShiftPositionID]; !ok {
		return fmt.Errorf("shift position %s: %w", assignment.ShiftPositionID, db.ErrNotFound)
	}
	for _, a := range q.st.assignments {
		if a.ID == assignment.ID || (a.UserID == assignment.UserID && a.ShiftPositionID == assignment.ShiftPositionID) {
			return fmt.Errorf("assignment of %s on %s: %w", assignment.UserID, assignment.ShiftPositionID, db.ErrDuplicate)
		}
	}
	q.st.assignments[assignment.ID] = *assignment
	return nil
}

// UpdateAssignment overwrites an existing assignment
func (q *queries) UpdateAssignment(ctx context.Context, assignment *db.Assignment) error {
	if _, ok := q.st.assignments[assignment.ID]; !ok {
		return fmt.Errorf("assignment %s: %w", assignment.ID, db.ErrNotFound)
	}
	q.st.assignments[assignment.ID] = *assignment
	return nil
}

// DeleteAssignment removes an assignment
func (q *queries) DeleteAssignment(ctx context.Context, id string) error {
	if _, ok := q.st.assignments[id]; !ok {
		return fmt.Errorf("assignment %s: %w", id, db.ErrNotFound)
	}
	delete(q.st.assignments, id)
	return nil
}
