package db

import "time"

// User represents a database user record
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Organization represents a database organization record
type Organization struct {
	ID          string
	Name        string
	Description string
	Email       string
	Phone       string
	Address     string
	CreatedByID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrganizationMember represents a user's membership in an organization.
// (UserID, OrganizationID) is unique.
type OrganizationMember struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           OrganizationRole
	JoinedAt       time.Time
	InvitedByID    string // empty when the member joined or created the organization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Group represents a database group record, owned by one organization
type Group struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	CreatedByID    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GroupMember represents a user's membership in a group.
// Group roles are a legacy concept; organization roles are authoritative.
type GroupMember struct {
	ID        string
	UserID    string
	GroupID   string
	Role      GroupRole
	JoinedAt  time.Time
	AddedByID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position represents a reusable role within a group (e.g. "Kitchen", "Driver")
type Position struct {
	ID          string
	GroupID     string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Shift represents a time-bounded work period owned by a group
type Shift struct {
	ID        string
	GroupID   string
	Title     string
	Notes     string
	StartTime time.Time
	EndTime   time.Time
	Status    ShiftStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShiftPosition is the slot joining a shift and a position.
// (ShiftID, PositionID) is unique.
type ShiftPosition struct {
	ID            string
	ShiftID       string
	PositionID    string
	RequiredCount int

	// VolunteersCount mirrors the number of CONFIRMED assignments.
	// It is a read model only and never consulted for capacity decisions.
	VolunteersCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment represents a volunteer's claim on a shift position.
// (UserID, ShiftPositionID) is unique.
type Assignment struct {
	ID              string
	UserID          string
	ShiftPositionID string
	Status          AssignmentStatus
	Notes           string
	AppliedAt       time.Time
	ConfirmedAt     *time.Time
	RejectedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
