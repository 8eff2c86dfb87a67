package db

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by single-record lookups that match nothing
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore defines the user operations
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	InsertUser(ctx context.Context, user *User) error
}

// OrganizationStore defines the organization and organization membership operations
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	// LockOrganization loads the organization and holds a write lock on it until
	// the surrounding transaction ends, serialising membership changes per organization.
	LockOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizationsForUser(ctx context.Context, userID string) ([]Organization, error)
	InsertOrganization(ctx context.Context, org *Organization) error
	UpdateOrganization(ctx context.Context, org *Organization) error
	// DeleteOrganization removes the organization and everything it owns
	DeleteOrganization(ctx context.Context, id string) error

	GetMembership(ctx context.Context, userID, organizationID string) (*OrganizationMember, error)
	GetMember(ctx context.Context, id string) (*OrganizationMember, error)
	ListMembers(ctx context.Context, organizationID string) ([]OrganizationMember, error)
	InsertMember(ctx context.Context, member *OrganizationMember) error
	UpdateMemberRole(ctx context.Context, id string, role OrganizationRole) error
	// PromoteMembers rewrites every member of the organization holding from to role to.
	// Returns the number of rewritten memberships.
	PromoteMembers(ctx context.Context, organizationID string, from, to OrganizationRole) (int, error)
	DeleteMember(ctx context.Context, id string) error
}

// GroupStore defines the group and legacy group membership operations
type GroupStore interface {
	GetGroup(ctx context.Context, id string) (*Group, error)
	ListGroups(ctx context.Context, organizationID string) ([]Group, error)
	InsertGroup(ctx context.Context, group *Group) error
	UpdateGroup(ctx context.Context, group *Group) error
	DeleteGroup(ctx context.Context, id string) error

	GetGroupMembership(ctx context.Context, userID, groupID string) (*GroupMember, error)
	InsertGroupMember(ctx context.Context, member *GroupMember) error
}

// PositionStore defines the position operations
type PositionStore interface {
	GetPosition(ctx context.Context, id string) (*Position, error)
	ListPositions(ctx context.Context, groupID string) ([]Position, error)
	InsertPosition(ctx context.Context, position *Position) error
	UpdatePosition(ctx context.Context, position *Position) error
	DeletePosition(ctx context.Context, id string) error
}

// ShiftStore defines the shift and shift position operations
type ShiftStore interface {
	GetShift(ctx context.Context, id string) (*Shift, error)
	ListShifts(ctx context.Context, groupID string) ([]Shift, error)
	InsertShift(ctx context.Context, shift *Shift) error
	UpdateShift(ctx context.Context, shift *Shift) error
	DeleteShift(ctx context.Context, id string) error

	GetShiftPosition(ctx context.Context, id string) (*ShiftPosition, error)
	// LockShiftPosition loads the slot and holds a write lock on it until the
	// surrounding transaction ends, serialising capacity decisions per slot.
	LockShiftPosition(ctx context.Context, id string) (*ShiftPosition, error)
	ListShiftPositions(ctx context.Context, shiftID string) ([]ShiftPosition, error)
	InsertShiftPosition(ctx context.Context, sp *ShiftPosition) error
	UpdateShiftPosition(ctx context.Context, sp *ShiftPosition) error
	DeleteShiftPosition(ctx context.Context, id string) error
}

// AssignmentStore defines the assignment operations
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	// LockAssignment loads the assignment and holds a write lock on it until the
	// surrounding transaction ends. Status transitions read through it.
	LockAssignment(ctx context.Context, id string) (*Assignment, error)
	GetAssignmentForUser(ctx context.Context, userID, shiftPositionID string) (*Assignment, error)
	ListAssignments(ctx context.Context, shiftPositionID string) ([]Assignment, error)
	// CountAssignments counts the slot's assignments whose status is one of statuses.
	// With no statuses every assignment is counted.
	CountAssignments(ctx context.Context, shiftPositionID string, statuses ...AssignmentStatus) (int, error)
	InsertAssignment(ctx context.Context, assignment *Assignment) error
	UpdateAssignment(ctx context.Context, assignment *Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// Queries is the full set of record operations available inside a transaction
type Queries interface {
	UserStore
	OrganizationStore
	GroupStore
	PositionStore
	ShiftStore
	AssignmentStore
}

// Database defines the transactional entry point.
// Both the PostgreSQL-backed postgres.DB and the in-memory memstore.Store implement it.
type Database interface {
	// InTx runs fn inside one transaction. If fn returns an error every write
	// made through q is rolled back and the error is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}
