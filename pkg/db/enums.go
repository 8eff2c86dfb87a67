package db

import (
	"fmt"
	"strings"
)

// OrganizationRole is the authoritative role ladder for an organization
type OrganizationRole string

const (
	OrgRoleMember OrganizationRole = "MEMBER"
	OrgRoleLeader OrganizationRole = "LEADER"
	OrgRoleAdmin  OrganizationRole = "ADMIN"
)

// ElevatedOrgRoles are the organization roles allowed to manage groups, shifts and assignments
var ElevatedOrgRoles = []OrganizationRole{OrgRoleAdmin, OrgRoleLeader}

// ParseOrganizationRole parses a role name case-insensitively.
// Unknown names return an *InvalidEnumError.
func ParseOrganizationRole(s string) (OrganizationRole, error) {
	switch OrganizationRole(strings.ToUpper(strings.TrimSpace(s))) {
	case OrgRoleMember:
		return OrgRoleMember, nil
	case OrgRoleLeader:
		return OrgRoleLeader, nil
	case OrgRoleAdmin:
		return OrgRoleAdmin, nil
	}
	return "", &InvalidEnumError{Kind: "organization role", Value: s}
}

// GroupRole is the legacy group-level role ladder
type GroupRole string

const (
	GroupRoleVolunteer   GroupRole = "VOLUNTEER"
	GroupRoleCoordinator GroupRole = "COORDINATOR"
	GroupRoleLeader      GroupRole = "GROUP_LEADER"
)

// ParseGroupRole parses a group role name case-insensitively
func ParseGroupRole(s string) (GroupRole, error) {
	switch GroupRole(strings.ToUpper(strings.TrimSpace(s))) {
	case GroupRoleVolunteer:
		return GroupRoleVolunteer, nil
	case GroupRoleCoordinator:
		return GroupRoleCoordinator, nil
	case GroupRoleLeader:
		return GroupRoleLeader, nil
	}
	return "", &InvalidEnumError{Kind: "group role", Value: s}
}

// AssignmentStatus is the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
)

// ParseAssignmentStatus parses an assignment status case-insensitively
func ParseAssignmentStatus(s string) (AssignmentStatus, error) {
	switch AssignmentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case AssignmentPending:
		return AssignmentPending, nil
	case AssignmentConfirmed:
		return AssignmentConfirmed, nil
	case AssignmentCancelled:
		return AssignmentCancelled, nil
	}
	return "", &InvalidEnumError{Kind: "assignment status", Value: s}
}

// ShiftStatus is the lifecycle state of a shift
type ShiftStatus string

const (
	ShiftOpen      ShiftStatus = "OPEN"
	ShiftClosed    ShiftStatus = "CLOSED"
	ShiftCompleted ShiftStatus = "COMPLETED"
	ShiftCancelled ShiftStatus = "CANCELLED"
)

// ParseShiftStatus parses a shift status case-insensitively
func ParseShiftStatus(s string) (ShiftStatus, error) {
	switch ShiftStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ShiftOpen:
		return ShiftOpen, nil
	case ShiftClosed:
		return ShiftClosed, nil
	case ShiftCompleted:
		return ShiftCompleted, nil
	case ShiftCancelled:
		return ShiftCancelled, nil
	}
	return "", &InvalidEnumError{Kind: "shift status", Value: s}
}

// InvalidEnumError is returned when a string does not name a known enum value
type InvalidEnumError struct {
	Kind  string
	Value string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Kind, e.Value)
}
