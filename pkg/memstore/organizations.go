package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/volts/pkg/db"
)

// GetUser retrieves a user by id
func (q *queries) GetUser(ctx context.Context, id string) (*db.User, error) {
	u, ok := q.st.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email, ignoring case
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	for _, u := range q.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, db.ErrNotFound)
}

// InsertUser inserts a new user record
func (q *queries) InsertUser(ctx context.Context, user *db.User) error {
	if _, ok := q.st.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, db.ErrDuplicate)
	}
	for _, u := range q.st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user with email %s: %w", user.Email, db.ErrDuplicate)
		}
	}
	q.st.users[user.ID] = *user
	return nil
}

// GetOrganization retrieves an organization by id
func (q *queries) GetOrganization(ctx context.Context, id string) (*db.Organization, error) {
	o, ok := q.st.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, db.ErrNotFound)
	}
	return &o, nil
}

// LockOrganization retrieves an organization; transactions already hold the store mutex
func (q *queries) LockOrganization(ctx context.Context, id string) (*db.Organization, error) {
	return q.GetOrganization(ctx, id)
}

// ListOrganizationsForUser returns every organization the user is a member of
func (q *queries) ListOrganizationsForUser(ctx context.Context, userID string) ([]db.Organization, error) {
	orgIDs := make(map[string]bool)
	for _, m := range q.st.members {
		if m.UserID == userID {
			orgIDs[m.OrganizationID] = true
		}
	}
	return sortedValues(q.st.organizations,
		func(o db.Organization) bool { return orgIDs[o.ID] },
		func(o db.Organization) (int64, string) { return o.CreatedAt.UnixNano(), o.ID },
	), nil
}

// InsertOrganization inserts a new organization record
func (q *queries) InsertOrganization(ctx context.Context, org *db.Organization) error {
	if _, ok := q.st.organizations[org.ID]; ok {
		return fmt.Errorf("organization %s: %w", org.ID, db.ErrDuplicate)
	}
	q.st.organizations[org.ID] = *org
	return nil
}

// UpdateOrganization overwrites an existing organization record
func (q *queries) UpdateOrganization(ctx context.Context, org *db.Organization) error {
	if _, ok := q.st.organizations[org.ID]; !ok {
		return fmt.Errorf("organization %s: %w", org.ID, db.ErrNotFound)
	}
	q.st.organizations[org.ID] = *org
	return nil
}

// DeleteOrganization removes the organization, its memberships and its groups
func (q *queries) DeleteOrganization(ctx context.Context, id string) error {
	if _, ok := q.st.organizations[id]; !ok {
		return fmt.Errorf("organization %s: %w", id, db.ErrNotFound)
	}
	for mid, m := range q.st.members {
		if m.OrganizationID == id {
			delete(q.st.members, mid)
		}
	}
	for gid, g := range q.st.groups {
		if g.OrganizationID == id {
			q.deleteGroup(gid)
		}
	}
	delete(q.st.organizations, id)
	return nil
}

// GetMembership retrieves the (user, organization) membership
func (q *queries) GetMembership(ctx context.Context, userID, organizationID string) (*db.OrganizationMember, error) {
	for _, m := range q.st.members {
		if m.UserID == userID && m.OrganizationID == organizationID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("membership of %s in %s: %w", userID, organizationID, db.ErrNotFound)
}

// GetMember retrieves a membership by its own id
func (q *queries) GetMember(ctx context.Context, id string) (*db.OrganizationMember, error) {
	m, ok := q.st.members[id]
	if !ok {
		return nil, fmt.Errorf("organization member %s: %w", id, db.ErrNotFound)
	}
	return &m, nil
}

// ListMembers returns the organization's memberships in join order
func (q *queries) ListMembers(ctx context.Context, organizationID string) ([]db.OrganizationMember, error) {
	return sortedValues(q.st.members,
		func(m db.OrganizationMember) bool { return m.OrganizationID == organizationID },
		func(m db.OrganizationMember) (int64, string) { return m.JoinedAt.UnixNano(), m.ID },
	), nil
}

// InsertMember inserts a membership, enforcing (user, organization) uniqueness
func (q *queries) InsertMember(ctx context.Context, member *db.OrganizationMember) error {
	for _, m := range q.st.members {
		if m.ID == member.ID || (m.UserID == member.UserID && m.OrganizationID == member.OrganizationID) {
			return fmt.Errorf("membership of %s in %s: %w", member.UserID, member.OrganizationID, db.ErrDuplicate)
		}
	}
	q.st.members[member.ID] = *member
	return nil
}

// UpdateMemberRole rewrites a single membership's role
func (q *queries) UpdateMemberRole(ctx context.Context, id string, role db.OrganizationRole) error {
	m, ok := q.st.members[id]
	if !ok {
		return fmt.Errorf("organization member %s: %w", id, db.ErrNotFound)
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	q.st.members[id] = m
	return nil
}

// PromoteMembers rewrites every from-role membership of the organization to role to
func (q *queries) PromoteMembers(ctx context.Context, organizationID string, from, to db.OrganizationRole) (int, error) {
	now := time.Now().UTC()
	promoted := 0
	for id, m := range q.st.members {
		if m.OrganizationID == organizationID && m.Role == from {
			m.Role = to
			m.UpdatedAt = now
			q.st.members[id] = m
			promoted++
		}
	}
	return promoted, nil
}

// DeleteMember removes a membership
func (q *queries) DeleteMember(ctx context.Context, id string) error {
	if _, ok := q.st.members[id]; !ok {
		return fmt.Errorf("organization member %s: %w", id, db.ErrNotFound)
	}
	delete(q.st.members, id)
	return nil
}
