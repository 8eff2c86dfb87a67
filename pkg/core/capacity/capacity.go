// Package capacity decides whether a shift position can take another
// applicant or another confirmed volunteer.
//
// Counts are always taken from the live assignment set while the slot row is
// locked; ShiftPosition.VolunteersCount is never consulted.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

// Transition is the assignment change a capacity decision is made for
type Transition int

const (
	Apply Transition = iota
	Confirm
)

func (t Transition) String() string {
	if t == Confirm {
		return "confirm"
	}
	return "apply"
}

// Counted returns the assignment statuses that occupy the slot for t.
// Applying is bounded by everyone still in the queue; confirming only by
// those already locked in.
func (t Transition) Counted() []db.AssignmentStatus {
	if t == Confirm {
		return []db.AssignmentStatus{db.AssignmentConfirmed}
	}
	return []db.AssignmentStatus{db.AssignmentPending, db.AssignmentConfirmed}
}

// Store is the access the tracker needs
type Store interface {
	LockShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error)
	CountAssignments(ctx context.Context, shiftPositionID string, statuses ...db.AssignmentStatus) (int, error)
}

// Usage is a slot's occupancy at the moment of a decision
type Usage struct {
	Required int
	Occupied int
}

// Full reports whether no headroom is left
func (u Usage) Full() bool {
	return u.Occupied >= u.Required
}

// Measure locks the slot and counts the assignments occupying it for t
func Measure(ctx context.Context, q Store, shiftPositionID string, t Transition) (Usage, error) {
	sp, err := q.LockShiftPosition(ctx, shiftPositionID)
	if errors.Is(err, db.ErrNotFound) {
		return Usage{}, apperr.NotFound("shift position %s not found", shiftPositionID)
	}
	if err != nil {
		return Usage{}, fmt.Errorf("failed to lock shift position: %w", err)
	}

	n, err := q.CountAssignments(ctx, shiftPositionID, t.Counted()...)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to count assignments: %w", err)
	}
	return Usage{Required: sp.RequiredCount, Occupied: n}, nil
}

// Admissible reports whether t can proceed on the slot
func Admissible(ctx context.Context, q Store, shiftPositionID string, t Transition) (bool, error) {
	u, err := Measure(ctx, q, shiftPositionID, t)
	if err != nil {
		return false, err
	}
	return !u.Full(), nil
}

// Check fails with CapacityExceeded when t is not admissible
func Check(ctx context.Context, q Store, shiftPositionID string, t Transition) error {
	u, err := Measure(ctx, q, shiftPositionID, t)
	if err != nil {
		return err
	}
	if u.Full() {
		return apperr.CapacityExceeded("shift position %s is full for %s (%d of %d)", shiftPositionID, t, u.Occupied, u.Required)
	}
	return nil
}

// ProjectionStore is the access needed to refresh the read model
type ProjectionStore interface {
	GetShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error)
	CountAssignments(ctx context.Context, shiftPositionID string, statuses ...db.AssignmentStatus) (int, error)
	UpdateShiftPosition(ctx context.Context, sp *db.ShiftPosition) error
}

// SyncVolunteersCount rewrites the slot's VolunteersCount to its live
// CONFIRMED count. Call it in the same transaction as the assignment change.
func SyncVolunteersCount(ctx context.Context, q ProjectionStore, shiftPositionID string, now time.Time) error {
	sp, err := q.GetShiftPosition(ctx, shiftPositionID)
	if err != nil {
		return fmt.Errorf("failed to load shift position: %w", err)
	}
	confirmed, err := q.CountAssignments(ctx, shiftPositionID, db.AssignmentConfirmed)
	if err != nil {
		return fmt.Errorf("failed to count confirmed assignments: %w", err)
	}
	if sp.VolunteersCount == confirmed {
		return nil
	}
	sp.VolunteersCount = confirmed
	sp.UpdatedAt = now
	if err := q.UpdateShiftPosition(ctx, sp); err != nil {
		return fmt.Errorf("failed to update volunteers count: %w", err)
	}
	return nil
}
