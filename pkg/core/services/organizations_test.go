package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	u := f.user("alice")
	got, err := GetUser(f.ctx, f.db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = CreateUser(f.ctx, f.db, f.logger, UserInput{Name: "Alice again", Email: "ALICE@example.com"})
	assertKind(t, err, apperr.KindConflict)

	_, err = CreateUser(f.ctx, f.db, f.logger, UserInput{Email: "bob@example.com"})
	assertKind(t, err, apperr.KindValidation)

	_, err = GetUser(f.ctx, f.db, "missing")
	assertKind(t, err, apperr.KindNotFound)
}

func TestCreateOrganization(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")

	_, err := CreateOrganization(f.ctx, f.db, f.cfg, f.logger, OrganizationInput{Name: "Ghosts"}, "missing")
	assertKind(t, err, apperr.KindNotFound)

	_, err = CreateOrganization(f.ctx, f.db, f.cfg, f.logger, OrganizationInput{Name: "Bad", Email: "nope"}, a.ID)
	assertKind(t, err, apperr.KindValidation)

	o, err := CreateOrganization(f.ctx, f.db, f.cfg, f.logger, OrganizationInput{
		Name:  "Food Bank",
		Email: "hello@foodbank.example",
	}, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, o.CreatedByID)

	role, err := GetUserRole(f.ctx, f.db, o.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrgRoleAdmin, role)
}

func TestOrganizationPermissions(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")
	stranger := s.user("stranger")

	got, err := GetOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food Bank", got.Name)

	_, err = GetOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, stranger.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = UpdateOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, OrganizationInput{Name: "Renamed"}, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	updated, err := UpdateOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, OrganizationInput{Name: "Renamed", Phone: "01234"}, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "01234", updated.Phone)

	err = DeleteOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, s.leader.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	require.NoError(t, DeleteOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, s.admin.ID))

	_, err = GetOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, s.admin.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, err = GetShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, s.admin.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestGroups(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")

	_, err := CreateGroup(s.ctx, s.db, s.cfg, s.logger, s.org.ID, GroupInput{Name: "Drivers"}, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = CreateGroup(s.ctx, s.db, s.cfg, s.logger, s.org.ID, GroupInput{}, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	drivers, err := CreateGroup(s.ctx, s.db, s.cfg, s.logger, s.org.ID, GroupInput{Name: "Drivers"}, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, s.org.ID, drivers.OrganizationID)

	renamed, err := UpdateGroup(s.ctx, s.db, s.cfg, s.logger, drivers.ID, GroupInput{Name: "Van drivers"}, s.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Van drivers", renamed.Name)

	groups, err := ListGroups(s.ctx, s.db, s.cfg, s.logger, s.org.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	// Deleting a group takes its positions and shifts with it
	require.NoError(t, DeleteGroup(s.ctx, s.db, s.cfg, s.logger, s.group.ID, s.leader.ID))
	_, err = GetShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, s.leader.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, err = ListPositions(s.ctx, s.db, s.cfg, s.logger, s.group.ID, s.leader.ID)
	assertKind(t, err, apperr.KindNotFound)

	groups, err = ListGroups(s.ctx, s.db, s.cfg, s.logger, s.org.ID, m.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, drivers.ID, groups[0].ID)
}

func TestAddGroupMember(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")
	stranger := s.user("stranger")

	_, err := AddGroupMember(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID, "captain", s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = AddGroupMember(s.ctx, s.db, s.cfg, s.logger, s.group.ID, stranger.ID, "VOLUNTEER", s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	gm, err := AddGroupMember(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID, "GROUP_LEADER", s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, db.GroupRoleLeader, gm.Role)
	assert.Equal(t, s.leader.ID, gm.AddedByID)

	_, err = AddGroupMember(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID, "VOLUNTEER", s.leader.ID)
	assertKind(t, err, apperr.KindConflict)
}

func TestLegacyGroupRoles(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")
	_, err := AddGroupMember(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID, "COORDINATOR", s.leader.ID)
	require.NoError(t, err)

	input := ShiftInput{Title: "Extra", StartTime: sunday, EndTime: sunday.Add(time.Hour)}

	s.cfg.Authorization.LegacyGroupRoles = false
	_, err = CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, input, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	s.cfg.Authorization.LegacyGroupRoles = true
	shift, err := CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, input, m.ID)
	require.NoError(t, err)
	assert.Equal(t, s.group.ID, shift.GroupID)

	// Group roles never reach organization-level operations
	_, err = UpdateOrganization(s.ctx, s.db, s.cfg, s.logger, s.org.ID, OrganizationInput{Name: "Mine"}, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)
}

func TestPositions(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")
	spare := s.newPosition(s.group, s.leader, "Washing up")

	_, err := CreatePosition(s.ctx, s.db, s.cfg, s.logger, s.group.ID, PositionInput{Name: "Tills"}, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	updated, err := UpdatePosition(s.ctx, s.db, s.cfg, s.logger, spare.ID, PositionInput{Name: "Dishes", Description: "Sinks and dryers"}, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dishes", updated.Name)

	positions, err := ListPositions(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 2)

	err = DeletePosition(s.ctx, s.db, s.cfg, s.logger, s.position.ID, s.leader.ID)
	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), s.shift.ID)

	require.NoError(t, DeletePosition(s.ctx, s.db, s.cfg, s.logger, spare.ID, s.leader.ID))

	// Once the slot is gone the position can go too
	require.NoError(t, RemoveShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, s.leader.ID))
	require.NoError(t, DeletePosition(s.ctx, s.db, s.cfg, s.logger, s.position.ID, s.leader.ID))

	positions, err = ListPositions(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)
}
