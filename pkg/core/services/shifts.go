package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/core/capacity"
	"github.com/jakechorley/volts/pkg/core/lifecycle"
	"github.com/jakechorley/volts/pkg/db"
)

// ShiftInput holds the editable shift fields
type ShiftInput struct {
	Title     string    `validate:"required,max=200"`
	Notes     string    `validate:"max=2000"`
	StartTime time.Time `validate:"required"`
	EndTime   time.Time `validate:"required"`
}

func (in ShiftInput) check() error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.EndTime.After(in.StartTime) {
		return apperr.Validation("shift must end after it starts (%s to %s)",
			in.StartTime.Format(time.RFC3339), in.EndTime.Format(time.RFC3339))
	}
	return nil
}

// CreateShift adds an OPEN shift to the group. Requires ADMIN or LEADER.
func CreateShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID string, input ShiftInput, actingUserID string) (*db.Shift, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	var shift *db.Shift
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		shift = newShift(groupID, input.Title, input.Notes, input.StartTime, input.EndTime)
		if err := q.InsertShift(ctx, shift); err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift created",
		zap.String("shift_id", shift.ID),
		zap.String("group_id", groupID),
		zap.Time("start", shift.StartTime))

	return shift, nil
}

func newShift(groupID, title, notes string, start, end time.Time) *db.Shift {
	t := now()
	return &db.Shift{
		ID:        newID(),
		GroupID:   groupID,
		Title:     title,
		Notes:     notes,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    db.ShiftOpen,
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// GetShift returns a shift to any member of the owning organization
func GetShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) (*db.Shift, error) {
	var shift *db.Shift
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), authz.AllOrgRoles...)
		if err != nil {
			return err
		}
		shift = chain.Shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// UpdateShift rewrites the shift's title, notes and times
func UpdateShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID string, input ShiftInput, actingUserID string) (*db.Shift, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	var shift *db.Shift
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		shift = chain.Shift
		shift.Title = input.Title
		shift.Notes = input.Notes
		shift.StartTime = input.StartTime.UTC()
		shift.EndTime = input.EndTime.UTC()
		shift.UpdatedAt = now()
		if err := q.UpdateShift(ctx, shift); err != nil {
			return fmt.Errorf("failed to update shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift updated", zap.String("shift_id", shiftID))
	return shift, nil
}

// DeleteShift removes the shift with its slots and assignments
func DeleteShift(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) error {
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), db.ElevatedOrgRoles...); err != nil {
			return err
		}
		if err := q.DeleteShift(ctx, shiftID); err != nil {
			return fmt.Errorf("failed to delete shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Shift deleted",
		zap.String("shift_id", shiftID),
		zap.String("deleted_by", actingUserID))
	return nil
}

// ListShifts returns the group's shifts ordered by start time
func ListShifts(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID, actingUserID string) ([]db.Shift, error) {
	var shifts []db.Shift
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		shifts, err = q.ListShifts(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to list shifts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

// SetShiftStatus moves the shift to a new status.
// OPEN may close or cancel; CLOSED may reopen, complete or cancel; COMPLETED and CANCELLED are final.
func SetShiftStatus(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, statusStr, actingUserID string) (*db.Shift, error) {
	status, err := db.ParseShiftStatus(statusStr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid shift status")
	}

	var (
		shift *db.Shift
		from  db.ShiftStatus
	)
	err = database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		shift = chain.Shift
		from = shift.Status
		if err := lifecycle.ShiftTransition(from, status); err != nil {
			return err
		}

		shift.Status = status
		shift.UpdatedAt = now()
		if err := q.UpdateShift(ctx, shift); err != nil {
			return fmt.Errorf("failed to update shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift status changed",
		zap.String("shift_id", shiftID),
		zap.String("from", string(from)),
		zap.String("to", string(status)))

	return shift, nil
}

// RecurringShiftInput describes a series of shifts generated from an RRULE
type RecurringShiftInput struct {
	// RRule is an RFC 5545 recurrence rule, bounded by COUNT or UNTIL
	RRule string `validate:"required"`
	// Start is the first occurrence. Optional when RRule carries DTSTART.
	Start    time.Time
	Duration time.Duration `validate:"gt=0"`
	Title    string        `validate:"required,max=200"`
	Notes    string        `validate:"max=2000"`
	// PositionIDs get a slot on every generated shift with the default required count
	PositionIDs []string
}

// CreateRecurringShifts expands the recurrence into OPEN shifts, all created
// in one transaction. The number of occurrences is capped by
// shifts.maxRecurringOccurrences.
func CreateRecurringShifts(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID string, input RecurringShiftInput, actingUserID string) ([]db.Shift, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	starts, err := expandRRule(input.RRule, input.Start, cfg.Shifts.MaxRecurringOccurrences)
	if err != nil {
		return nil, err
	}

	logger.Debug("Creating recurring shifts",
		zap.String("group_id", groupID),
		zap.String("rrule", input.RRule),
		zap.Int("occurrences", len(starts)))

	var shifts []db.Shift
	err = database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		// Step 1: Check every position belongs to the group
		for _, positionID := range input.PositionIDs {
			position, err := authz.Lookup(ctx, q.GetPosition, "position", positionID)
			if err != nil {
				return err
			}
			if position.GroupID != groupID {
				return apperr.Validation("position %s does not belong to group %s", positionID, groupID)
			}
		}

		// Step 2: Create the shifts and their slots
		for _, start := range starts {
			shift := newShift(groupID, input.Title, input.Notes, start, start.Add(input.Duration))
			if err := q.InsertShift(ctx, shift); err != nil {
				return fmt.Errorf("failed to insert shift: %w", err)
			}
			for _, positionID := range input.PositionIDs {
				sp := newShiftPosition(shift.ID, positionID, cfg.Shifts.DefaultRequiredCount)
				if err := q.InsertShiftPosition(ctx, sp); err != nil {
					if errors.Is(err, db.ErrDuplicate) {
						return apperr.Validation("position %s is listed more than once", positionID)
					}
					return fmt.Errorf("failed to insert shift position: %w", err)
				}
			}
			shifts = append(shifts, *shift)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Recurring shifts created",
		zap.String("group_id", groupID),
		zap.Int("count", len(shifts)))

	return shifts, nil
}

// CreateShiftsFromTemplate expands a configured shift template starting at start
func CreateShiftsFromTemplate(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID, templateName string, start time.Time, positionIDs []string, actingUserID string) ([]db.Shift, error) {
	tmpl, ok := cfg.Template(templateName)
	if !ok {
		return nil, apperr.NotFound("shift template %s not found", templateName)
	}
	d, err := tmpl.ParsedDuration()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid template duration")
	}

	return CreateRecurringShifts(ctx, database, cfg, logger, groupID, RecurringShiftInput{
		RRule:       tmpl.RRule,
		Start:       start,
		Duration:    d,
		Title:       tmpl.Title,
		PositionIDs: positionIDs,
	}, actingUserID)
}

// expandRRule returns the occurrences of the rule, failing when it is
// unbounded or yields more than max occurrences
func expandRRule(rule string, start time.Time, max int) ([]time.Time, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid rrule")
	}
	if !start.IsZero() {
		opt.Dtstart = start.UTC()
	}
	if opt.Dtstart.IsZero() {
		return nil, apperr.Validation("rrule needs a start time or DTSTART")
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, apperr.Validation("rrule must be bounded by COUNT or UNTIL")
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid rrule")
	}

	var starts []time.Time
	next := r.Iterator()
	for t, ok := next(); ok; t, ok = next() {
		if len(starts) == max {
			return nil, apperr.Validation("rrule yields more than %d occurrences", max)
		}
		starts = append(starts, t)
	}
	if len(starts) == 0 {
		return nil, apperr.Validation("rrule yields no occurrences")
	}
	return starts, nil
}

func newShiftPosition(shiftID, positionID string, requiredCount int) *db.ShiftPosition {
	t := now()
	return &db.ShiftPosition{
		ID:            newID(),
		ShiftID:       shiftID,
		PositionID:    positionID,
		RequiredCount: requiredCount,
		CreatedAt:     t,
		UpdatedAt:     t,
	}
}

// AddShiftPosition opens a slot for the position on the shift.
// A requiredCount of 0 takes shifts.defaultRequiredCount.
func AddShiftPosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, positionID string, requiredCount int, actingUserID string) (*db.ShiftPosition, error) {
	if requiredCount == 0 {
		requiredCount = cfg.Shifts.DefaultRequiredCount
	}
	if requiredCount < 1 {
		return nil, apperr.Validation("required count must be at least 1, got %d", requiredCount)
	}

	var sp *db.ShiftPosition
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		position, err := authz.Lookup(ctx, q.GetPosition, "position", positionID)
		if err != nil {
			return err
		}
		if position.GroupID != chain.Shift.GroupID {
			return apperr.Validation("position %s does not belong to the group of shift %s", positionID, shiftID)
		}

		sp = newShiftPosition(shiftID, positionID, requiredCount)
		if err := q.InsertShiftPosition(ctx, sp); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("shift %s already has a slot for position %s", shiftID, positionID)
			}
			return fmt.Errorf("failed to insert shift position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift position added",
		zap.String("shift_position_id", sp.ID),
		zap.String("shift_id", shiftID),
		zap.String("position_id", positionID),
		zap.Int("required_count", sp.RequiredCount))

	return sp, nil
}

// UpdateRequiredCount resizes a slot. It cannot shrink below the number of
// volunteers already confirmed.
func UpdateRequiredCount(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftPositionID string, requiredCount int, actingUserID string) (*db.ShiftPosition, error) {
	if requiredCount < 1 {
		return nil, apperr.Validation("required count must be at least 1, got %d", requiredCount)
	}

	var sp *db.ShiftPosition
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.ShiftPosition(shiftPositionID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		usage, err := capacity.Measure(ctx, q, shiftPositionID, capacity.Confirm)
		if err != nil {
			return err
		}
		if requiredCount < usage.Occupied {
			return apperr.InvalidState("shift position %s already has %d confirmed volunteers", shiftPositionID, usage.Occupied)
		}

		sp, err = q.GetShiftPosition(ctx, shiftPositionID)
		if err != nil {
			return fmt.Errorf("failed to load shift position: %w", err)
		}
		sp.RequiredCount = requiredCount
		sp.UpdatedAt = now()
		if err := q.UpdateShiftPosition(ctx, sp); err != nil {
			return fmt.Errorf("failed to update shift position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Required count updated",
		zap.String("shift_position_id", shiftPositionID),
		zap.Int("required_count", requiredCount))

	return sp, nil
}

// RemoveShiftPosition deletes the slot with all its assignments
func RemoveShiftPosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftPositionID, actingUserID string) error {
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.ShiftPosition(shiftPositionID), db.ElevatedOrgRoles...); err != nil {
			return err
		}
		if err := q.DeleteShiftPosition(ctx, shiftPositionID); err != nil {
			return fmt.Errorf("failed to delete shift position: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Shift position removed",
		zap.String("shift_position_id", shiftPositionID),
		zap.String("removed_by", actingUserID))
	return nil
}

// ListShiftPositions returns the shift's slots to any organization member
func ListShiftPositions(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) ([]db.ShiftPosition, error) {
	var slots []db.ShiftPosition
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		slots, err = q.ListShiftPositions(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to list shift positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slots, nil
}
