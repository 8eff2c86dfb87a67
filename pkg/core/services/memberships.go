package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/core/cascade"
	"github.com/jakechorley/volts/pkg/db"
)

// LeaveResult reports what a departure changed
type LeaveResult struct {
	WasMember bool
	Cascade   cascade.Outcome
	// Promoted holds the user ids promoted from LEADER to ADMIN
	Promoted []string
}

// LeaveOrganization removes the user's membership and keeps the organization
// governable: remaining LEADERs are promoted when no ADMIN is left, and the
// organization is deleted when nobody who could govern it remains.
// Leaving an organization the user does not belong to is a no-op.
func LeaveOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, userID string) (*LeaveResult, error) {
	logger.Debug("Leaving organization",
		zap.String("organization_id", orgID),
		zap.String("user_id", userID))

	var result *LeaveResult
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		// Concurrent departures queue on the organization row, so each cascade
		// sees the memberships the previous one left
		if _, err := authz.Lookup(ctx, q.LockOrganization, "organization", orgID); err != nil {
			return err
		}

		member, err := q.GetMembership(ctx, userID, orgID)
		if errors.Is(err, db.ErrNotFound) {
			result = &LeaveResult{Cascade: cascade.OutcomeNone}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load membership: %w", err)
		}

		result, err = removeAndCascade(ctx, q, member)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !result.WasMember {
		logger.Debug("User was not a member, nothing to do",
			zap.String("organization_id", orgID),
			zap.String("user_id", userID))
		return result, nil
	}

	logCascade(logger, orgID, result)
	logger.Info("Left organization",
		zap.String("organization_id", orgID),
		zap.String("user_id", userID))

	return result, nil
}

// removeAndCascade deletes the membership and runs the cascade over the remaining members
func removeAndCascade(ctx context.Context, q db.Queries, member *db.OrganizationMember) (*LeaveResult, error) {
	if err := q.DeleteMember(ctx, member.ID); err != nil {
		return nil, fmt.Errorf("failed to delete membership: %w", err)
	}

	res, err := cascade.Run(ctx, q, member.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &LeaveResult{WasMember: true, Cascade: res.Outcome, Promoted: res.Promoted}, nil
}

func logCascade(logger *zap.Logger, orgID string, result *LeaveResult) {
	switch result.Cascade {
	case cascade.OutcomePromoteLeaders:
		logger.Info("Promoted leaders to admin",
			zap.String("organization_id", orgID),
			zap.Strings("user_ids", result.Promoted))
	case cascade.OutcomeDeleteOrganization:
		logger.Info("Organization dissolved after last governor left",
			zap.String("organization_id", orgID))
	}
}

// RemoveMember removes another member from the organization.
// The acting user must be ADMIN or LEADER, and a LEADER cannot remove an ADMIN.
// An ADMIN cannot remove themself; other self-removals are run as a Leave.
func RemoveMember(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, memberID, actingUserID string) (*LeaveResult, error) {
	logger.Debug("Removing member",
		zap.String("organization_id", orgID),
		zap.String("member_id", memberID),
		zap.String("acting_user_id", actingUserID))

	var result *LeaveResult
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := authz.Lookup(ctx, q.LockOrganization, "organization", orgID); err != nil {
			return err
		}
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.ElevatedOrgRoles...); err != nil {
			return err
		}

		member, err := authz.Lookup(ctx, q.GetMember, "member", memberID)
		if err != nil {
			return err
		}
		if member.OrganizationID != orgID {
			return apperr.Validation("member %s does not belong to organization %s", memberID, orgID)
		}

		actingRole, _, err := authz.MembershipRole(ctx, q, actingUserID, orgID)
		if err != nil {
			return err
		}

		if member.UserID == actingUserID {
			if actingRole == db.OrgRoleAdmin {
				return apperr.PermissionDenied("an admin cannot remove themself, leave the organization instead")
			}
			result, err = removeAndCascade(ctx, q, member)
			return err
		}

		if member.Role == db.OrgRoleAdmin && actingRole != db.OrgRoleAdmin {
			return apperr.PermissionDenied("only an admin can remove another admin")
		}

		if err := q.DeleteMember(ctx, member.ID); err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}
		result = &LeaveResult{WasMember: true, Cascade: cascade.OutcomeNone}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCascade(logger, orgID, result)
	logger.Info("Member removed",
		zap.String("organization_id", orgID),
		zap.String("member_id", memberID),
		zap.String("removed_by", actingUserID))

	return result, nil
}

// InviteMember adds the user with the given email to the organization.
// LEADERs may invite MEMBERs and LEADERs; only an ADMIN may invite an ADMIN.
// Inviting an existing member returns the existing membership unchanged.
func InviteMember(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, email, roleStr, actingUserID string) (*db.OrganizationMember, error) {
	logger.Debug("Inviting member",
		zap.String("organization_id", orgID),
		zap.String("email", email),
		zap.String("role", roleStr),
		zap.String("acting_user_id", actingUserID))

	var member *db.OrganizationMember
	existing := false
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.ElevatedOrgRoles...); err != nil {
			return err
		}
		role, err := parseRole(roleStr)
		if err != nil {
			return err
		}
		if err := checkRoleCeiling(ctx, q, actingUserID, orgID, role); err != nil {
			return err
		}

		user, err := q.GetUserByEmail(ctx, strings.TrimSpace(email))
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("no user with email %s", email)
		}
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		m, err := q.GetMembership(ctx, user.ID, orgID)
		if err == nil {
			member, existing = m, true
			return nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to load membership: %w", err)
		}

		t := now()
		member = &db.OrganizationMember{
			ID:             newID(),
			UserID:         user.ID,
			OrganizationID: orgID,
			Role:           role,
			JoinedAt:       t,
			InvitedByID:    actingUserID,
			CreatedAt:      t,
			UpdatedAt:      t,
		}
		if err := q.InsertMember(ctx, member); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("user %s is already a member of organization %s", user.ID, orgID)
			}
			return fmt.Errorf("failed to insert membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if existing {
		logger.Info("User is already a member",
			zap.String("organization_id", orgID),
			zap.String("user_id", member.UserID))
		return member, nil
	}

	logger.Info("Member invited",
		zap.String("organization_id", orgID),
		zap.String("user_id", member.UserID),
		zap.String("role", string(member.Role)),
		zap.String("invited_by", actingUserID))

	return member, nil
}

// ChangeMemberRole sets a member's organization role.
// A LEADER can neither change an ADMIN's role nor grant ADMIN, and the last
// ADMIN of an organization cannot be demoted.
func ChangeMemberRole(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, memberID, roleStr, actingUserID string) (*db.OrganizationMember, error) {
	logger.Debug("Changing member role",
		zap.String("organization_id", orgID),
		zap.String("member_id", memberID),
		zap.String("role", roleStr),
		zap.String("acting_user_id", actingUserID))

	var member *db.OrganizationMember
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		// Held until commit so two demotions cannot both pass the last-admin count
		if _, err := authz.Lookup(ctx, q.LockOrganization, "organization", orgID); err != nil {
			return err
		}
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), db.ElevatedOrgRoles...); err != nil {
			return err
		}
		role, err := parseRole(roleStr)
		if err != nil {
			return err
		}

		member, err = authz.Lookup(ctx, q.GetMember, "member", memberID)
		if err != nil {
			return err
		}
		if member.OrganizationID != orgID {
			return apperr.Validation("member %s does not belong to organization %s", memberID, orgID)
		}

		if member.Role == db.OrgRoleAdmin {
			if err := checkRoleCeiling(ctx, q, actingUserID, orgID, db.OrgRoleAdmin); err != nil {
				return err
			}
		}
		if err := checkRoleCeiling(ctx, q, actingUserID, orgID, role); err != nil {
			return err
		}

		if member.Role == role {
			return nil
		}

		if member.Role == db.OrgRoleAdmin {
			members, err := q.ListMembers(ctx, orgID)
			if err != nil {
				return fmt.Errorf("failed to list members: %w", err)
			}
			admins := 0
			for _, m := range members {
				if m.Role == db.OrgRoleAdmin {
					admins++
				}
			}
			if admins <= 1 {
				return apperr.InvalidState("cannot demote the last admin of organization %s", orgID)
			}
		}

		if err := q.UpdateMemberRole(ctx, member.ID, role); err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		member.Role = role
		member.UpdatedAt = now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Member role changed",
		zap.String("organization_id", orgID),
		zap.String("member_id", memberID),
		zap.String("role", string(member.Role)),
		zap.String("changed_by", actingUserID))

	return member, nil
}

func parseRole(s string) (db.OrganizationRole, error) {
	role, err := db.ParseOrganizationRole(s)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, err, "invalid role")
	}
	return role, nil
}

// checkRoleCeiling fails when the acting user may not hand out or touch role.
// Only an ADMIN can create or alter another ADMIN.
func checkRoleCeiling(ctx context.Context, q db.Queries, actingUserID, orgID string, role db.OrganizationRole) error {
	if role != db.OrgRoleAdmin {
		return nil
	}
	actingRole, _, err := authz.MembershipRole(ctx, q, actingUserID, orgID)
	if err != nil {
		return err
	}
	if actingRole != db.OrgRoleAdmin {
		return apperr.PermissionDenied("only an admin can grant or change the admin role")
	}
	return nil
}

// JoinOrganization adds the user to the organization as a MEMBER.
// Joining twice returns the existing membership.
func JoinOrganization(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, userID string) (*db.OrganizationMember, error) {
	logger.Debug("Joining organization",
		zap.String("organization_id", orgID),
		zap.String("user_id", userID))

	var member *db.OrganizationMember
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := authz.Lookup(ctx, q.LockOrganization, "organization", orgID); err != nil {
			return err
		}
		if _, err := authz.Lookup(ctx, q.GetUser, "user", userID); err != nil {
			return err
		}

		m, err := q.GetMembership(ctx, userID, orgID)
		if err == nil {
			member = m
			return nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to load membership: %w", err)
		}

		t := now()
		member = &db.OrganizationMember{
			ID:             newID(),
			UserID:         userID,
			OrganizationID: orgID,
			Role:           db.OrgRoleMember,
			JoinedAt:       t,
			CreatedAt:      t,
			UpdatedAt:      t,
		}
		if err := q.InsertMember(ctx, member); err != nil {
			return fmt.Errorf("failed to insert membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Joined organization",
		zap.String("organization_id", orgID),
		zap.String("user_id", userID),
		zap.String("role", string(member.Role)))

	return member, nil
}

// ListMembers returns the organization's members. Any member may list them.
func ListMembers(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, orgID, actingUserID string) ([]db.OrganizationMember, error) {
	var members []db.OrganizationMember
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Organization(orgID), authz.AllOrgRoles...); err != nil {
			return err
		}

		var err error
		members, err = q.ListMembers(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// GetUserRole returns the user's role in the organization, failing with
// NotFound when the user is not a member
func GetUserRole(ctx context.Context, database db.Database, orgID, userID string) (db.OrganizationRole, error) {
	var role db.OrganizationRole
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		if _, err := authz.Lookup(ctx, q.GetOrganization, "organization", orgID); err != nil {
			return err
		}
		r, ok, err := authz.MembershipRole(ctx, q, userID, orgID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("user %s is not a member of organization %s", userID, orgID)
		}
		role = r
		return nil
	})
	if err != nil {
		return "", err
	}
	return role, nil
}

// ListOrganizationsForUser returns every organization the user belongs to
func ListOrganizationsForUser(ctx context.Context, database db.Database, userID string) ([]db.Organization, error) {
	var orgs []db.Organization
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		var err error
		orgs, err = q.ListOrganizationsForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list organizations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orgs, nil
}
