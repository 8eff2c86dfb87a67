package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/db"
)

// PositionInput holds the editable position fields
type PositionInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
}

// CreatePosition adds a position to the group. Requires ADMIN or LEADER in the owning organization.
func CreatePosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID string, input PositionInput, actingUserID string) (*db.Position, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var position *db.Position
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		t := now()
		position = &db.Position{
			ID:          newID(),
			GroupID:     groupID,
			Name:        input.Name,
			Description: input.Description,
			CreatedAt:   t,
			UpdatedAt:   t,
		}
		if err := q.InsertPosition(ctx, position); err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Position created",
		zap.String("position_id", position.ID),
		zap.String("group_id", groupID),
		zap.String("name", position.Name))

	return position, nil
}

// UpdatePosition rewrites the position's details
func UpdatePosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, positionID string, input PositionInput, actingUserID string) (*db.Position, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var position *db.Position
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Position(positionID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		position = chain.Position
		position.Name = input.Name
		position.Description = input.Description
		position.UpdatedAt = now()
		if err := q.UpdatePosition(ctx, position); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Position updated", zap.String("position_id", positionID))
	return position, nil
}

// DeletePosition removes a position that no shift uses any more.
// A position still attached to a shift fails with Conflict.
func DeletePosition(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, positionID, actingUserID string) error {
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Position(positionID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		shiftID, err := shiftUsingPosition(ctx, q, chain.Group.ID, positionID)
		if err != nil {
			return err
		}
		if shiftID != "" {
			return apperr.Conflict("position %s is still used by shift %s", positionID, shiftID)
		}

		if err := q.DeletePosition(ctx, positionID); err != nil {
			return fmt.Errorf("failed to delete position: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Position deleted",
		zap.String("position_id", positionID),
		zap.String("deleted_by", actingUserID))
	return nil
}

// shiftUsingPosition returns the id of a shift in the group with a slot for
// the position, or "" if there is none
func shiftUsingPosition(ctx context.Context, q db.Queries, groupID, positionID string) (string, error) {
	shifts, err := q.ListShifts(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("failed to list shifts: %w", err)
	}
	for _, shift := range shifts {
		slots, err := q.ListShiftPositions(ctx, shift.ID)
		if err != nil {
			return "", fmt.Errorf("failed to list shift positions: %w", err)
		}
		for _, sp := range slots {
			if sp.PositionID == positionID {
				return shift.ID, nil
			}
		}
	}
	return "", nil
}

// ListPositions returns the group's positions to any organization member
func ListPositions(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID, actingUserID string) ([]db.Position, error) {
	var positions []db.Position
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		positions, err = q.ListPositions(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to list positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}
