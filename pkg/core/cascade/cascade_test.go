package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volts/pkg/db"
)

func members(roles ...db.OrganizationRole) []db.OrganizationMember {
	out := make([]db.OrganizationMember, len(roles))
	for i, r := range roles {
		out[i] = db.OrganizationMember{UserID: string(rune('a' + i)), Role: r}
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		remaining []db.OrganizationMember
		expected  Outcome
	}{
		{"nobody left", nil, OutcomeDeleteOrganization},
		{"only members", members(db.OrgRoleMember, db.OrgRoleMember), OutcomeDeleteOrganization},
		{"leader without admin", members(db.OrgRoleLeader, db.OrgRoleMember), OutcomePromoteLeaders},
		{"several leaders", members(db.OrgRoleLeader, db.OrgRoleLeader), OutcomePromoteLeaders},
		{"admin remains", members(db.OrgRoleAdmin, db.OrgRoleLeader, db.OrgRoleMember), OutcomeNone},
		{"lone admin", members(db.OrgRoleAdmin), OutcomeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.remaining))
		})
	}
}

type mockStore struct {
	members       []db.OrganizationMember
	promoted      int
	deleted       bool
	promoteResult int
	promoteErr    error
}

func (m *mockStore) ListMembers(ctx context.Context, organizationID string) ([]db.OrganizationMember, error) {
	return m.members, nil
}

func (m *mockStore) PromoteMembers(ctx context.Context, organizationID string, from, to db.OrganizationRole) (int, error) {
	m.promoted++
	if m.promoteErr != nil {
		return 0, m.promoteErr
	}
	return m.promoteResult, nil
}

func (m *mockStore) DeleteOrganization(ctx context.Context, id string) error {
	m.deleted = true
	return nil
}

func TestRun_PromotesLeaders(t *testing.T) {
	store := &mockStore{members: members(db.OrgRoleLeader, db.OrgRoleMember, db.OrgRoleLeader), promoteResult: 2}

	result, err := Run(context.Background(), store, "org-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePromoteLeaders, result.Outcome)
	assert.Equal(t, []string{"a", "c"}, result.Promoted)
	assert.Equal(t, 1, store.promoted)
	assert.False(t, store.deleted)
}

func TestRun_DeletesOrganization(t *testing.T) {
	store := &mockStore{members: members(db.OrgRoleMember)}

	result, err := Run(context.Background(), store, "org-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleteOrganization, result.Outcome)
	assert.True(t, store.deleted)
	assert.Zero(t, store.promoted)
}

func TestRun_NoChange(t *testing.T) {
	store := &mockStore{members: members(db.OrgRoleAdmin, db.OrgRoleLeader)}

	result, err := Run(context.Background(), store, "org-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, result.Outcome)
	assert.Empty(t, result.Promoted)
	assert.False(t, store.deleted)
	assert.Zero(t, store.promoted)
}

func TestRun_PromoteFailure(t *testing.T) {
	boom := errors.New("boom")
	store := &mockStore{members: members(db.OrgRoleLeader), promoteErr: boom}

	_, err := Run(context.Background(), store, "org-1")
	assert.ErrorIs(t, err, boom)
}

func TestRun_PromoteCountMismatch(t *testing.T) {
	store := &mockStore{members: members(db.OrgRoleLeader, db.OrgRoleLeader), promoteResult: 1}

	_, err := Run(context.Background(), store, "org-1")
	assert.EqualError(t, err, "promoted 1 leaders, expected 2")
}
