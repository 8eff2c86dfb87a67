package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/db"
)

// GroupInput holds the editable group fields
type GroupInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
}

// CreateGroup adds a group to the organization. Requires ADMIN or LEADER.
func CreateGroup(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID string, input GroupInput, actingUserID string) (*db.Group, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var group *db.Group
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		t := now()
		group = &db.Group{
			ID:             newID(),
			OrganizationID: orgID,
			Name:           input.Name,
			Description:    input.Description,
			CreatedByID:    actingUserID,
			CreatedAt:      t,
			UpdatedAt:      t,
		}
		if err := q.InsertGroup(ctx, group); err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Group created",
		zap.String("group_id", group.ID),
		zap.String("organization_id", orgID),
		zap.String("name", group.Name))

	return group, nil
}

// UpdateGroup rewrites the group's details. Requires ADMIN or LEADER.
func UpdateGroup(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID string, input GroupInput, actingUserID string) (*db.Group, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var group *db.Group
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		group = chain.Group
		group.Name = input.Name
		group.Description = input.Description
		group.UpdatedAt = now()
		if err := q.UpdateGroup(ctx, group); err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Group updated", zap.String("group_id", groupID))
	return group, nil
}

// DeleteGroup removes the group with its positions, shifts and assignments.
// Requires ADMIN or LEADER.
func DeleteGroup(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID, actingUserID string) error {
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...); err != nil {
			return err
		}
		if err := q.DeleteGroup(ctx, groupID); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Group deleted",
		zap.String("group_id", groupID),
		zap.String("deleted_by", actingUserID))
	return nil
}

// ListGroups returns the organization's groups to any member
func ListGroups(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, actingUserID string) ([]db.Group, error) {
	var groups []db.Group
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		groups, err = q.ListGroups(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// AddGroupMember records a legacy group role for an organization member.
// Group roles only grant access when the legacy group-role path is enabled.
func AddGroupMember(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, groupID, userID, roleStr, actingUserID string) (*db.GroupMember, error) {
	role, err := db.ParseGroupRole(roleStr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid group role")
	}

	var member *db.GroupMember
	err = database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Group(groupID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		if _, ok, err := authz.MembershipRole(ctx, q, userID, chain.Organization.ID); err != nil {
			return err
		} else if !ok {
			return apperr.Validation("user %s is not a member of organization %s", userID, chain.Organization.ID)
		}

		t := now()
		member = &db.GroupMember{
			ID:        newID(),
			UserID:    userID,
			GroupID:   groupID,
			Role:      role,
			JoinedAt:  t,
			AddedByID: actingUserID,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := q.InsertGroupMember(ctx, member); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("user %s is already a member of group %s", userID, groupID)
			}
			return fmt.Errorf("failed to insert group member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Authorization.LegacyGroupRoles {
		logger.Warn("Group role recorded but legacy group roles are disabled",
			zap.String("group_id", groupID),
			zap.String("user_id", userID))
	}
	logger.Info("Group member added",
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("role", string(role)))

	return member, nil
}
