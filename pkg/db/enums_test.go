package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrganizationRole(t *testing.T) {
	tests := []struct {
		input    string
		expected OrganizationRole
		wantErr  bool
	}{
		{"ADMIN", OrgRoleAdmin, false},
		{"admin", OrgRoleAdmin, false},
		{" Leader ", OrgRoleLeader, false},
		{"member", OrgRoleMember, false},
		{"owner", "", true},
		{"", "", true},
		{"GROUP_LEADER", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ParseOrganizationRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var enumErr *InvalidEnumError
				assert.True(t, errors.As(err, &enumErr))
				assert.Equal(t, "organization role", enumErr.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestParseGroupRole(t *testing.T) {
	role, err := ParseGroupRole("group_leader")
	require.NoError(t, err)
	assert.Equal(t, GroupRoleLeader, role)

	role, err = ParseGroupRole("Coordinator")
	require.NoError(t, err)
	assert.Equal(t, GroupRoleCoordinator, role)

	_, err = ParseGroupRole("LEADER")
	assert.Error(t, err)
}

func TestParseAssignmentStatus(t *testing.T) {
	status, err := ParseAssignmentStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, AssignmentCancelled, status)

	_, err = ParseAssignmentStatus("CANCELED")
	assert.EqualError(t, err, `invalid assignment status: "CANCELED"`)
}

func TestParseShiftStatus(t *testing.T) {
	for _, s := range []ShiftStatus{ShiftOpen, ShiftClosed, ShiftCompleted, ShiftCancelled} {
		parsed, err := ParseShiftStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseShiftStatus("archived")
	assert.Error(t, err)
}
