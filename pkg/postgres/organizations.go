package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volts/pkg/db"
)

// GetUser retrieves a user by id
func (q *queries) GetUser(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	err := q.conn.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, "get user %s", id)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email, ignoring case
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	err := q.conn.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, "get user with email %s", email)
	}
	return &u, nil
}

// InsertUser inserts a new user record
func (q *queries) InsertUser(ctx context.Context, user *db.User) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt)
	return mapErr(err, "insert user %s", user.ID)
}

const organizationColumns = `id, name, description, email, phone, address, created_by_id, created_at, updated_at`

func scanOrganization(row pgx.Row) (db.Organization, error) {
	var o db.Organization
	var createdBy *string
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.Email, &o.Phone, &o.Address, &createdBy, &o.CreatedAt, &o.UpdatedAt)
	o.CreatedByID = deref(createdBy)
	return o, err
}

// GetOrganization retrieves an organization by id
func (q *queries) GetOrganization(ctx context.Context, id string) (*db.Organization, error) {
	o, err := scanOrganization(q.conn.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, mapErr(err, "get organization %s", id)
	}
	return &o, nil
}

// LockOrganization retrieves an organization and row-locks it for the rest of the transaction
func (q *queries) LockOrganization(ctx context.Context, id string) (*db.Organization, error) {
	o, err := scanOrganization(q.conn.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, mapErr(err, "lock organization %s", id)
	}
	return &o, nil
}

// ListOrganizationsForUser returns every organization the user is a member of
func (q *queries) ListOrganizationsForUser(ctx context.Context, userID string) ([]db.Organization, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT o.id, o.name, o.description, o.email, o.phone, o.address, o.created_by_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at, o.id
	`, userID)
	if err != nil {
		return nil, mapErr(err, "query organizations for user %s", userID)
	}
	orgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Organization, error) {
		return scanOrganization(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan organizations: %w", err)
	}
	return orgs, nil
}

// InsertOrganization inserts a new organization record
func (q *queries) InsertOrganization(ctx context.Context, org *db.Organization) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO organizations (`+organizationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, org.ID, org.Name, org.Description, org.Email, org.Phone, org.Address, nullable(org.CreatedByID), org.CreatedAt, org.UpdatedAt)
	return mapErr(err, "insert organization %s", org.ID)
}

// UpdateOrganization overwrites the mutable organization fields
func (q *queries) UpdateOrganization(ctx context.Context, org *db.Organization) error {
	return q.execOne(ctx, "update organization "+org.ID, `
		UPDATE organizations
		SET name = $2, description = $3, email = $4, phone = $5, address = $6, updated_at = $7
		WHERE id = $1
	`, org.ID, org.Name, org.Description, org.Email, org.Phone, org.Address, org.UpdatedAt)
}

// DeleteOrganization removes the organization; owned rows go with it via ON DELETE CASCADE
func (q *queries) DeleteOrganization(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete organization "+id, `DELETE FROM organizations WHERE id = $1`, id)
}

const memberColumns = `id, user_id, organization_id, role, joined_at, invited_by_id, created_at, updated_at`

func scanMember(row pgx.Row) (db.OrganizationMember, error) {
	var m db.OrganizationMember
	var invitedBy *string
	err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt, &invitedBy, &m.CreatedAt, &m.UpdatedAt)
	m.InvitedByID = deref(invitedBy)
	return m, err
}

// GetMembership retrieves the (user, organization) membership
func (q *queries) GetMembership(ctx context.Context, userID, organizationID string) (*db.OrganizationMember, error) {
	m, err := scanMember(q.conn.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2
	`, userID, organizationID))
	if err != nil {
		return nil, mapErr(err, "get membership of %s in %s", userID, organizationID)
	}
	return &m, nil
}

// GetMember retrieves a membership by its own id
func (q *queries) GetMember(ctx context.Context, id string) (*db.OrganizationMember, error) {
	m, err := scanMember(q.conn.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM organization_members
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, mapErr(err, "get organization member %s", id)
	}
	return &m, nil
}

// ListMembers returns the organization's memberships in join order
func (q *queries) ListMembers(ctx context.Context, organizationID string) ([]db.OrganizationMember, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+memberColumns+`
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY joined_at, id
	`, organizationID)
	if err != nil {
		return nil, mapErr(err, "query members of %s", organizationID)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.OrganizationMember, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan organization members: %w", err)
	}
	return members, nil
}

// InsertMember inserts a membership
func (q *queries) InsertMember(ctx context.Context, member *db.OrganizationMember) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO organization_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, member.ID, member.UserID, member.OrganizationID, string(member.Role), member.JoinedAt,
		nullable(member.InvitedByID), member.CreatedAt, member.UpdatedAt)
	return mapErr(err, "insert membership of %s in %s", member.UserID, member.OrganizationID)
}

// UpdateMemberRole rewrites a single membership's role
func (q *queries) UpdateMemberRole(ctx context.Context, id string, role db.OrganizationRole) error {
	return q.execOne(ctx, "update role of member "+id, `
		UPDATE organization_members
		SET role = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(role))
}

// PromoteMembers rewrites every from-role membership of the organization in one statement
func (q *queries) PromoteMembers(ctx context.Context, organizationID string, from, to db.OrganizationRole) (int, error) {
	tag, err := q.conn.Exec(ctx, `
		UPDATE organization_members
		SET role = $3, updated_at = NOW()
		WHERE organization_id = $1 AND role = $2
	`, organizationID, string(from), string(to))
	if err != nil {
		return 0, mapErr(err, "promote members of %s", organizationID)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteMember removes a membership
func (q *queries) DeleteMember(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete organization member "+id, `DELETE FROM organization_members WHERE id = $1`, id)
}
