// Package authz resolves whether a user holds a role over an entity.
//
// Every scope is resolved up its ownership chain to the owning Organization
// (Assignment → ShiftPosition → Shift → Group → Organization), and the
// caller's organization membership role is compared against the allowed set.
// Group roles are only consulted when the legacy group-role path is enabled.
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

// ScopeType is the entity level a role check is anchored at
type ScopeType int

const (
	ScopeOrganization ScopeType = iota
	ScopeGroup
	ScopePosition
	ScopeShift
	ScopeShiftPosition
	ScopeAssignment
)

func (s ScopeType) String() string {
	switch s {
	case ScopeOrganization:
		return "organization"
	case ScopeGroup:
		return "group"
	case ScopePosition:
		return "position"
	case ScopeShift:
		return "shift"
	case ScopeShiftPosition:
		return "shift position"
	case ScopeAssignment:
		return "assignment"
	default:
		return "unknown scope"
	}
}

// Scope identifies the entity a check is made against
type Scope struct {
	Type ScopeType
	ID   string
}

func Organization(id string) Scope  { return Scope{Type: ScopeOrganization, ID: id} }
func Group(id string) Scope         { return Scope{Type: ScopeGroup, ID: id} }
func Position(id string) Scope      { return Scope{Type: ScopePosition, ID: id} }
func Shift(id string) Scope         { return Scope{Type: ScopeShift, ID: id} }
func ShiftPosition(id string) Scope { return Scope{Type: ScopeShiftPosition, ID: id} }
func Assignment(id string) Scope    { return Scope{Type: ScopeAssignment, ID: id} }

// Store is the read access the resolver needs
type Store interface {
	GetOrganization(ctx context.Context, id string) (*db.Organization, error)
	GetGroup(ctx context.Context, id string) (*db.Group, error)
	GetPosition(ctx context.Context, id string) (*db.Position, error)
	GetShift(ctx context.Context, id string) (*db.Shift, error)
	GetShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error)
	GetAssignment(ctx context.Context, id string) (*db.Assignment, error)
	GetMembership(ctx context.Context, userID, organizationID string) (*db.OrganizationMember, error)
	GetGroupMembership(ctx context.Context, userID, groupID string) (*db.GroupMember, error)
}

// Chain is a resolved ownership chain. Links below the requested scope are nil.
type Chain struct {
	Organization  *db.Organization
	Group         *db.Group
	Position      *db.Position
	Shift         *db.Shift
	ShiftPosition *db.ShiftPosition
	Assignment    *db.Assignment
}

// Resolver answers role questions against the ownership chain
type Resolver struct {
	logger           *zap.Logger
	legacyGroupRoles bool
}

// NewResolver creates a resolver. With legacyGroupRoles enabled, a group
// membership can stand in for the organization role (deprecated).
func NewResolver(logger *zap.Logger, legacyGroupRoles bool) *Resolver {
	return &Resolver{logger: logger, legacyGroupRoles: legacyGroupRoles}
}

// Resolve walks the scope up to its Organization, failing with NotFound at the
// first missing link
func (r *Resolver) Resolve(ctx context.Context, q Store, scope Scope) (*Chain, error) {
	chain := &Chain{}
	var err error

	groupID := ""
	switch scope.Type {
	case ScopeAssignment:
		if chain.Assignment, err = Lookup(ctx, q.GetAssignment, "assignment", scope.ID); err != nil {
			return nil, err
		}
		if chain.ShiftPosition, err = Lookup(ctx, q.GetShiftPosition, "shift position", chain.Assignment.ShiftPositionID); err != nil {
			return nil, err
		}
		if chain.Shift, err = Lookup(ctx, q.GetShift, "shift", chain.ShiftPosition.ShiftID); err != nil {
			return nil, err
		}
		groupID = chain.Shift.GroupID
	case ScopeShiftPosition:
		if chain.ShiftPosition, err = Lookup(ctx, q.GetShiftPosition, "shift position", scope.ID); err != nil {
			return nil, err
		}
		if chain.Shift, err = Lookup(ctx, q.GetShift, "shift", chain.ShiftPosition.ShiftID); err != nil {
			return nil, err
		}
		groupID = chain.Shift.GroupID
	case ScopeShift:
		if chain.Shift, err = Lookup(ctx, q.GetShift, "shift", scope.ID); err != nil {
			return nil, err
		}
		groupID = chain.Shift.GroupID
	case ScopePosition:
		if chain.Position, err = Lookup(ctx, q.GetPosition, "position", scope.ID); err != nil {
			return nil, err
		}
		groupID = chain.Position.GroupID
	case ScopeGroup:
		groupID = scope.ID
	case ScopeOrganization:
		if chain.Organization, err = Lookup(ctx, q.GetOrganization, "organization", scope.ID); err != nil {
			return nil, err
		}
		return chain, nil
	default:
		return nil, fmt.Errorf("unsupported scope type %d", scope.Type)
	}

	if chain.Group, err = Lookup(ctx, q.GetGroup, "group", groupID); err != nil {
		return nil, err
	}
	if chain.Organization, err = Lookup(ctx, q.GetOrganization, "organization", chain.Group.OrganizationID); err != nil {
		return nil, err
	}
	return chain, nil
}

// HasRole reports whether userID holds one of allowed over the scope.
// A missing membership is reported as false, never as an error.
func (r *Resolver) HasRole(ctx context.Context, q Store, userID string, scope Scope, allowed ...db.OrganizationRole) (bool, error) {
	chain, err := r.Resolve(ctx, q, scope)
	if err != nil {
		return false, err
	}
	return r.chainHasRole(ctx, q, userID, chain, allowed)
}

// RequireRole is HasRole failing with PermissionDenied. It returns the
// resolved chain so callers don't have to load it again.
func (r *Resolver) RequireRole(ctx context.Context, q Store, userID string, scope Scope, allowed ...db.OrganizationRole) (*Chain, error) {
	chain, err := r.Resolve(ctx, q, scope)
	if err != nil {
		return nil, err
	}
	ok, err := r.chainHasRole(ctx, q, userID, chain, allowed)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Warn("Permission denied",
			zap.String("user_id", userID),
			zap.Stringer("scope", scope.Type),
			zap.String("scope_id", scope.ID))
		return nil, apperr.PermissionDenied("user %s lacks the required role on %s %s", userID, scope.Type, scope.ID)
	}
	return chain, nil
}

// RequireApplicantOrRole permits the assignment's own applicant regardless of
// role, and otherwise requires one of allowed in the owning organization
func (r *Resolver) RequireApplicantOrRole(ctx context.Context, q Store, userID, assignmentID string, allowed ...db.OrganizationRole) (*Chain, error) {
	chain, err := r.Resolve(ctx, q, Assignment(assignmentID))
	if err != nil {
		return nil, err
	}
	if chain.Assignment.UserID == userID {
		return chain, nil
	}
	ok, err := r.chainHasRole(ctx, q, userID, chain, allowed)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Warn("Permission denied on assignment",
			zap.String("user_id", userID),
			zap.String("assignment_id", assignmentID))
		return nil, apperr.PermissionDenied("user %s is neither the applicant of assignment %s nor privileged", userID, assignmentID)
	}
	return chain, nil
}

// MembershipRole returns the user's role in the organization, or false if the
// user is not a member
func MembershipRole(ctx context.Context, q Store, userID, organizationID string) (db.OrganizationRole, bool, error) {
	m, err := q.GetMembership(ctx, userID, organizationID)
	if errors.Is(err, db.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load membership: %w", err)
	}
	return m.Role, true, nil
}

func (r *Resolver) chainHasRole(ctx context.Context, q Store, userID string, chain *Chain, allowed []db.OrganizationRole) (bool, error) {
	role, ok, err := MembershipRole(ctx, q, userID, chain.Organization.ID)
	if err != nil {
		return false, err
	}
	if ok && slices.Contains(allowed, role) {
		return true, nil
	}

	if !r.legacyGroupRoles || chain.Group == nil {
		return false, nil
	}
	gm, err := q.GetGroupMembership(ctx, userID, chain.Group.ID)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load group membership: %w", err)
	}
	if slices.Contains(allowed, LegacyEquivalent(gm.Role)) {
		r.logger.Warn("Access granted through deprecated group role",
			zap.String("user_id", userID),
			zap.String("group_id", chain.Group.ID),
			zap.String("group_role", string(gm.Role)))
		return true, nil
	}
	return false, nil
}

// LegacyEquivalent maps a group role onto the organization role it stands in for
func LegacyEquivalent(role db.GroupRole) db.OrganizationRole {
	switch role {
	case db.GroupRoleLeader, db.GroupRoleCoordinator:
		return db.OrgRoleLeader
	case db.GroupRoleVolunteer:
		return db.OrgRoleMember
	default:
		return ""
	}
}

// AllOrgRoles is the allowed set for plain membership checks
var AllOrgRoles = []db.OrganizationRole{db.OrgRoleMember, db.OrgRoleLeader, db.OrgRoleAdmin}

// Lookup fetches one record, converting a store miss into NotFound
func Lookup[T any](ctx context.Context, get func(context.Context, string) (*T, error), what, id string) (*T, error) {
	v, err := get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("%s %s not found", what, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", what, id, err)
	}
	return v, nil
}
