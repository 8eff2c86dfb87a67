package memstore

import (
	"context"
	"fmt"

	"github.com/jakechorley/volts/pkg/db"
)

// GetGroup retrieves a group by id
func (q *queries) GetGroup(ctx context.Context, id string) (*db.Group, error) {
	g, ok := q.st.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, db.ErrNotFound)
	}
	return &g, nil
}

// ListGroups returns the organization's groups
func (q *queries) ListGroups(ctx context.Context, organizationID string) ([]db.Group, error) {
	return sortedValues(q.st.groups,
		func(g db.Group) bool { return g.OrganizationID == organizationID },
		func(g db.Group) (int64, string) { return g.CreatedAt.UnixNano(), g.ID },
	), nil
}

// InsertGroup inserts a new group record
func (q *queries) InsertGroup(ctx context.Context, group *db.Group) error {
	if _, ok := q.st.groups[group.ID]; ok {
		return fmt.Errorf("group %s: %w", group.ID, db.ErrDuplicate)
	}
	if _, ok := q.st.organizations[group.OrganizationID]; !ok {
		return fmt.Errorf("organization %s: %w", group.OrganizationID, db.ErrNotFound)
	}
	q.st.groups[group.ID] = *group
	return nil
}

// UpdateGroup overwrites an existing group record
func (q *queries) UpdateGroup(ctx context.Context, group *db.Group) error {
	if _, ok := q.st.groups[group.ID]; !ok {
		return fmt.Errorf("group %s: %w", group.ID, db.ErrNotFound)
	}
	q.st.groups[group.ID] = *group
	return nil
}

// DeleteGroup removes the group with its shifts, positions and group memberships
func (q *queries) DeleteGroup(ctx context.Context, id string) error {
	if _, ok := q.st.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, db.ErrNotFound)
	}
	q.deleteGroup(id)
	return nil
}

func (q *queries) deleteGroup(id string) {
	for sid, s := range q.st.shifts {
		if s.GroupID == id {
			q.deleteShift(sid)
		}
	}
	for pid, p := range q.st.positions {
		if p.GroupID == id {
			delete(q.st.positions, pid)
		}
	}
	for gmid, gm := range q.st.groupMembers {
		if gm.GroupID == id {
			delete(q.st.groupMembers, gmid)
		}
	}
	delete(q.st.groups, id)
}

// GetGroupMembership retrieves the (user, group) legacy membership
func (q *queries) GetGroupMembership(ctx context.Context, userID, groupID string) (*db.GroupMember, error) {
	for _, gm := range q.st.groupMembers {
		if gm.UserID == userID && gm.GroupID == groupID {
			return &gm, nil
		}
	}
	return nil, fmt.Errorf("group membership of %s in %s: %w", userID, groupID, db.ErrNotFound)
}

// InsertGroupMember inserts a group membership, enforcing (user, group) uniqueness
func (q *queries) InsertGroupMember(ctx context.Context, member *db.GroupMember) error {
	for _, gm := range q.st.groupMembers {
		if gm.ID == member.ID || (gm.UserID == member.UserID && gm.GroupID == member.GroupID) {
			return fmt.Errorf("group membership of %s in %s: %w", member.UserID, member.GroupID, db.ErrDuplicate)
		}
	}
	q.st.groupMembers[member.ID] = *member
	return nil
}

// GetPosition retrieves a position by id
func (q *queries) GetPosition(ctx context.Context, id string) (*db.Position, error) {
	p, ok := q.st.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %s: %w", id, db.ErrNotFound)
	}
	return &p, nil
}

// ListPositions returns the group's positions
func (q *queries) ListPositions(ctx context.Context, groupID string) ([]db.Position, error) {
	return sortedValues(q.st.positions,
		func(p db.Position) bool { return p.GroupID == groupID },
		func(p db.Position) (int64, string) { return p.CreatedAt.UnixNano(), p.ID },
	), nil
}

// InsertPosition inserts a new position record
func (q *queries) InsertPosition(ctx context.Context, position *db.Position) error {
	if _, ok := q.st.positions[position.ID]; ok {
		return fmt.Errorf("position %s: %w", position.ID, db.ErrDuplicate)
	}
	if _, ok := q.st.groups[position.GroupID]; !ok {
		return fmt.Errorf("group %s: %w", position.GroupID, db.ErrNotFound)
	}
	q.st.positions[position.ID] = *position
	return nil
}

// UpdatePosition overwrites an existing position record
func (q *queries) UpdatePosition(ctx context.Context, position *db.Position) error {
	if _, ok := q.st.positions[position.ID]; !ok {
		return fmt.Errorf("position %s: %w", position.ID, db.ErrNotFound)
	}
	q.st.positions[position.ID] = *position
	return nil
}

// DeletePosition removes a position that no shift references
func (q *queries) DeletePosition(ctx context.Context, id string) error {
	if _, ok := q.st.positions[id]; !ok {
		return fmt.Errorf("position %s: %w", id, db.ErrNotFound)
	}
	for _, sp := range q.st.shiftPositions {
		if sp.PositionID == id {
			return fmt.Errorf("position %s is still used by shift %s", id, sp.ShiftID)
		}
	}
	delete(q.st.positions, id)
	return nil
}
