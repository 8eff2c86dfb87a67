package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/volts/pkg/db"
)

const groupColumns = `id, organization_id, name, description, created_by_id, created_at, updated_at`

func scanGroup(row pgx.Row) (db.Group, error) {
	var g db.Group
	var createdBy *string
	err := row.Scan(&g.ID, &g.OrganizationID, &g.Name, &g.Description, &createdBy, &g.CreatedAt, &g.UpdatedAt)
	g.CreatedByID = deref(createdBy)
	return g, err
}

// GetGroup retrieves a group by id
func (q *queries) GetGroup(ctx context.Context, id string) (*db.Group, error) {
	g, err := scanGroup(q.conn.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get group %s", id)
	}
	return &g, nil
}

// ListGroups returns the organization's groups
func (q *queries) ListGroups(ctx context.Context, organizationID string) ([]db.Group, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+groupColumns+`
		FROM groups
		WHERE organization_id = $1
		ORDER BY created_at, id
	`, organizationID)
	if err != nil {
		return nil, mapErr(err, "query groups of %s", organizationID)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Group, error) {
		return scanGroup(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan groups: %w", err)
	}
	return groups, nil
}

// InsertGroup inserts a new group record
func (q *queries) InsertGroup(ctx context.Context, group *db.Group) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO groups (`+groupColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, group.ID, group.OrganizationID, group.Name, group.Description, nullable(group.CreatedByID), group.CreatedAt, group.UpdatedAt)
	return mapErr(err, "insert group %s", group.ID)
}

// UpdateGroup overwrites the mutable group fields
func (q *queries) UpdateGroup(ctx context.Context, group *db.Group) error {
	return q.execOne(ctx, "update group "+group.ID, `
		UPDATE groups
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, group.ID, group.Name, group.Description, group.UpdatedAt)
}

// DeleteGroup removes the group; shifts, positions and group members cascade
func (q *queries) DeleteGroup(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete group "+id, `DELETE FROM groups WHERE id = $1`, id)
}

// GetGroupMembership retrieves the (user, group) legacy membership
func (q *queries) GetGroupMembership(ctx context.Context, userID, groupID string) (*db.GroupMember, error) {
	var gm db.GroupMember
	var addedBy *string
	err := q.conn.QueryRow(ctx, `
		SELECT id, user_id, group_id, role, joined_at, added_by_id, created_at, updated_at
		FROM group_members
		WHERE user_id = $1 AND group_id = $2
	`, userID, groupID).Scan(&gm.ID, &gm.UserID, &gm.GroupID, &gm.Role, &gm.JoinedAt, &addedBy, &gm.CreatedAt, &gm.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, "get group membership of %s in %s", userID, groupID)
	}
	gm.AddedByID = deref(addedBy)
	return &gm, nil
}

// InsertGroupMember inserts a legacy group membership
func (q *queries) InsertGroupMember(ctx context.Context, member *db.GroupMember) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO group_members (id, user_id, group_id, role, joined_at, added_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, member.ID, member.UserID, member.GroupID, string(member.Role), member.JoinedAt,
		nullable(member.AddedByID), member.CreatedAt, member.UpdatedAt)
	return mapErr(err, "insert group membership of %s in %s", member.UserID, member.GroupID)
}

const positionColumns = `id, group_id, name, description, created_at, updated_at`

func scanPosition(row pgx.Row) (db.Position, error) {
	var p db.Position
	err := row.Scan(&p.ID, &p.GroupID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPosition retrieves a position by id
func (q *queries) GetPosition(ctx context.Context, id string) (*db.Position, error) {
	p, err := scanPosition(q.conn.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get position %s", id)
	}
	return &p, nil
}

// ListPositions returns the group's positions
func (q *queries) ListPositions(ctx context.Context, groupID string) ([]db.Position, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE group_id = $1
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, mapErr(err, "query positions of %s", groupID)
	}
	positions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Position, error) {
		return scanPosition(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan positions: %w", err)
	}
	return positions, nil
}

// InsertPosition inserts a new position record
func (q *queries) InsertPosition(ctx context.Context, position *db.Position) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, position.ID, position.GroupID, position.Name, position.Description, position.CreatedAt, position.UpdatedAt)
	return mapErr(err, "insert position %s", position.ID)
}

// UpdatePosition overwrites the mutable position fields
func (q *queries) UpdatePosition(ctx context.Context, position *db.Position) error {
	return q.execOne(ctx, "update position "+position.ID, `
		UPDATE positions
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, position.ID, position.Name, position.Description, position.UpdatedAt)
}

// DeletePosition removes a position that no shift references
func (q *queries) DeletePosition(ctx context.Context, id string) error {
	err := q.execOne(ctx, "delete position "+id, `DELETE FROM positions WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("position %s is still used by a shift: %w", id, err)
	}
	return err
}
