package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/db"
)

// OrganizationInput holds the editable organization fields
type OrganizationInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	Email       string `validate:"omitempty,email"`
	Phone       string `validate:"max=50"`
	Address     string `validate:"max=500"`
}

// CreateOrganization creates an organization with the creator as its first ADMIN
func CreateOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, input OrganizationInput, creatorID string) (*db.Organization, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	logger.Debug("Creating organization",
		zap.String("name", input.Name),
		zap.String("creator_id", creatorID))

	var org *db.Organization
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := authz.Lookup(ctx, q.GetUser, "user", creatorID); err != nil {
			return err
		}

		t := now()
		org = &db.Organization{
			ID:          newID(),
			Name:        input.Name,
			Description: input.Description,
			Email:       input.Email,
			Phone:       input.Phone,
			Address:     input.Address,
			CreatedByID: creatorID,
			CreatedAt:   t,
			UpdatedAt:   t,
		}
		if err := q.InsertOrganization(ctx, org); err != nil {
			return fmt.Errorf("failed to insert organization: %w", err)
		}

		admin := &db.OrganizationMember{
			ID:             newID(),
			UserID:         creatorID,
			OrganizationID: org.ID,
			Role:           db.OrgRoleAdmin,
			JoinedAt:       t,
			CreatedAt:      t,
			UpdatedAt:      t,
		}
		if err := q.InsertMember(ctx, admin); err != nil {
			return fmt.Errorf("failed to insert creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Organization created",
		zap.String("organization_id", org.ID),
		zap.String("name", org.Name))

	return org, nil
}

// GetOrganization returns an organization to one of its members
func GetOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, actingUserID string) (*db.Organization, error) {
	var org *db.Organization
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), authz.AllOrgRoles...)
		if err != nil {
			return err
		}
		org = chain.Organization
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// UpdateOrganization rewrites the organization's details. Requires ADMIN or LEADER.
func UpdateOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID string, input OrganizationInput, actingUserID string) (*db.Organization, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var org *db.Organization
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.ElevatedOrgRoles...)
		if err != nil {
			return err
		}

		org = chain.Organization
		org.Name = input.Name
		org.Description = input.Description
		org.Email = input.Email
		org.Phone = input.Phone
		org.Address = input.Address
		org.UpdatedAt = now()
		if err := q.UpdateOrganization(ctx, org); err != nil {
			return fmt.Errorf("failed to update organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Organization updated",
		zap.String("organization_id", org.ID),
		zap.String("updated_by", actingUserID))

	return org, nil
}

// DeleteOrganization removes the organization and everything it owns. ADMIN only.
func DeleteOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, actingUserID string) error {
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.OrgRoleAdmin); err != nil {
			return err
		}
		if err := q.DeleteOrganization(ctx, orgID); err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Organization deleted",
		zap.String("organization_id", orgID),
		zap.String("deleted_by", actingUserID))

	return nil
}
