package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/core/capacity"
	"github.com/jakechorley/volts/pkg/core/lifecycle"
	"github.com/jakechorley/volts/pkg/db"
)

// ApplyInput is a volunteer's application for a slot
type ApplyInput struct {
	ShiftPositionID string `validate:"required"`
	UserID          string `validate:"required"`
	Notes           string `validate:"max=1000"`
}

// ApplyForShift creates a PENDING assignment for the user on the slot.
// The user must be a member of the organization owning the shift, the shift
// must be OPEN, the user must not already hold an assignment on the slot in
// any state, and the slot's queue (PENDING + CONFIRMED) must have room.
func ApplyForShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, input ApplyInput) (*db.Assignment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	logger.Debug("Applying for shift position",
		zap.String("shift_position_id", input.ShiftPositionID),
		zap.String("user_id", input.UserID))

	var assignment *db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		// Step 1: Resolve the chain and require membership
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, input.UserID, authz.ShiftPosition(input.ShiftPositionID), authz.AllOrgRoles...)
		if err != nil {
			return err
		}

		if !lifecycle.AcceptsApplications(chain.Shift.Status) {
			return apperr.InvalidState("shift %s is %s and not accepting applications", chain.Shift.ID, chain.Shift.Status)
		}

		// Step 2: One assignment per (user, slot), whatever its state
		_, err = q.GetAssignmentForUser(ctx, input.UserID, input.ShiftPositionID)
		if err == nil {
			return apperr.Conflict("user %s already has an assignment on shift position %s", input.UserID, input.ShiftPositionID)
		}
		if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to check existing assignment: %w", err)
		}

		// Step 3: Capacity, counted under the slot lock
		if err := capacity.Check(ctx, q, input.ShiftPositionID, capacity.Apply); err != nil {
			return err
		}

		t := now()
		assignment = &db.Assignment{
			ID:              newID(),
			UserID:          input.UserID,
			ShiftPositionID: input.ShiftPositionID,
			Status:          db.AssignmentPending,
			Notes:           input.Notes,
			AppliedAt:       t,
			CreatedAt:       t,
			UpdatedAt:       t,
		}
		if err := q.InsertAssignment(ctx, assignment); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("user %s already has an assignment on shift position %s", input.UserID, input.ShiftPositionID)
			}
			return fmt.Errorf("failed to insert assignment: %w", err)
		}

		return capacity.SyncVolunteersCount(ctx, q, input.ShiftPositionID, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Applied for shift position",
		zap.String("assignment_id", assignment.ID),
		zap.String("shift_position_id", assignment.ShiftPositionID),
		zap.String("user_id", assignment.UserID))

	return assignment, nil
}

// ConfirmAssignment moves a PENDING assignment to CONFIRMED.
// Only an ADMIN or LEADER of the owning organization may confirm, never the
// applicant themself, and the slot must have confirmed headroom.
func ConfirmAssignment(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, assignmentID, actingUserID string) (*db.Assignment, error) {
	logger.Debug("Confirming assignment",
		zap.String("assignment_id", assignmentID),
		zap.String("acting_user_id", actingUserID))

	var assignment *db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Assignment(assignmentID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}
		if chain.Assignment.UserID == actingUserID {
			return apperr.PermissionDenied("user %s cannot confirm their own assignment", actingUserID)
		}

		// Re-read under the row lock so a concurrent cancel is seen before the transition
		assignment, err = authz.Lookup(ctx, q.LockAssignment, "assignment", assignmentID)
		if err != nil {
			return err
		}

		if err := lifecycle.AssignmentTransition(assignment.Status, db.AssignmentConfirmed); err != nil {
			return err
		}

		if err := capacity.Check(ctx, q, assignment.ShiftPositionID, capacity.Confirm); err != nil {
			return err
		}

		t := now()
		assignment.Status = db.AssignmentConfirmed
		assignment.ConfirmedAt = &t
		assignment.UpdatedAt = t
		if err := q.UpdateAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}

		return capacity.SyncVolunteersCount(ctx, q, assignment.ShiftPositionID, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Assignment confirmed",
		zap.String("assignment_id", assignment.ID),
		zap.String("user_id", assignment.UserID),
		zap.String("confirmed_by", actingUserID))

	return assignment, nil
}

// CancelAssignment moves a PENDING or CONFIRMED assignment to CANCELLED.
// The applicant may always cancel; otherwise ADMIN or LEADER is required.
func CancelAssignment(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, assignmentID, actingUserID string) (*db.Assignment, error) {
	logger.Debug("Cancelling assignment",
		zap.String("assignment_id", assignmentID),
		zap.String("acting_user_id", actingUserID))

	var assignment *db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireApplicantOrRole(ctx, q, actingUserID, assignmentID, db.ElevatedOrgRoles...); err != nil {
			return err
		}

		var err error
		assignment, err = authz.Lookup(ctx, q.LockAssignment, "assignment", assignmentID)
		if err != nil {
			return err
		}

		if err := lifecycle.AssignmentTransition(assignment.Status, db.AssignmentCancelled); err != nil {
			return err
		}

		t := now()
		assignment.Status = db.AssignmentCancelled
		assignment.RejectedAt = &t
		assignment.UpdatedAt = t
		if err := q.UpdateAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}

		return capacity.SyncVolunteersCount(ctx, q, assignment.ShiftPositionID, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Assignment cancelled",
		zap.String("assignment_id", assignment.ID),
		zap.String("user_id", assignment.UserID),
		zap.String("cancelled_by", actingUserID))

	return assignment, nil
}

// DeleteAssignment physically removes an assignment in any state.
// Permitted to the applicant or an ADMIN or LEADER.
func DeleteAssignment(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, assignmentID, actingUserID string) error {
	logger.Debug("Deleting assignment",
		zap.String("assignment_id", assignmentID),
		zap.String("acting_user_id", actingUserID))

	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireApplicantOrRole(ctx, q, actingUserID, assignmentID, db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		if err := q.DeleteAssignment(ctx, assignmentID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}

		return capacity.SyncVolunteersCount(ctx, q, chain.ShiftPosition.ID, now())
	})
	if err != nil {
		return err
	}

	logger.Info("Assignment deleted",
		zap.String("assignment_id", assignmentID),
		zap.String("deleted_by", actingUserID))

	return nil
}

// GetAssignment returns an assignment visible to its applicant or any member
// of the owning organization
func GetAssignment(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, assignmentID, actingUserID string) (*db.Assignment, error) {
	var assignment *db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireApplicantOrRole(ctx, q, actingUserID, assignmentID, authz.AllOrgRoles...)
		if err != nil {
			return err
		}
		assignment = chain.Assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// ListAssignmentsByShiftPosition returns the slot's assignments in application order
func ListAssignmentsByShiftPosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftPositionID, actingUserID string) ([]db.Assignment, error) {
	var assignments []db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.ShiftPosition(shiftPositionID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		assignments, err = q.ListAssignments(ctx, shiftPositionID)
		if err != nil {
			return fmt.Errorf("failed to list assignments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListAssignmentsByShift returns every assignment across the shift's slots
func ListAssignmentsByShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) ([]db.Assignment, error) {
	var assignments []db.Assignment
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), authz.AllOrgRoles...); err != nil {
			return err
		}

		slots, err := q.ListShiftPositions(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to list shift positions: %w", err)
		}
		for _, sp := range slots {
			batch, err := q.ListAssignments(ctx, sp.ID)
			if err != nil {
				return fmt.Errorf("failed to list assignments: %w", err)
			}
			assignments = append(assignments, batch...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
