package memstore

import (
	"context"
	"fmt"

	"github.com/jakechorley/volts/pkg/db"
)

// GetShift retrieves a shift by id
func (q *queries) GetShift(ctx context.Context, id string) (*db.Shift, error) {
	s, ok := q.st.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift %s: %w", id, db.ErrNotFound)
	}
	return &s, nil
}

// ListShifts returns the group's shifts ordered by start time
func (q *queries) ListShifts(ctx context.Context, groupID string) ([]db.Shift, error) {
	return sortedValues(q.st.shifts,
		func(s db.Shift) bool { return s.GroupID == groupID },
		func(s db.Shift) (int64, string) { return s.StartTime.UnixNano(), s.ID },
	), nil
}

// InsertShift inserts a new shift record
func (q *queries) InsertShift(ctx context.Context, shift *db.Shift) error {
	if _, ok := q.st.shifts[shift.ID]; ok {
		return fmt.Errorf("shift %s: %w", shift.ID, db.ErrDuplicate)
	}
	if _, ok := q.st.groups[shift.GroupID]; !ok {
		return fmt.Errorf("group %s: %w", shift.GroupID, db.ErrNotFound)
	}
	q.st.shifts[shift.ID] = *shift
	return nil
}

// UpdateShift overwrites an existing shift record
func (q *queries) UpdateShift(ctx context.Context, shift *db.Shift) error {
	if _, ok := q.st.shifts[shift.ID]; !ok {
		return fmt.Errorf("shift %s: %w", shift.ID, db.ErrNotFound)
	}
	q.st.shifts[shift.ID] = *shift
	return nil
}

// DeleteShift removes the shift with its shift positions and their assignments
func (q *queries) DeleteShift(ctx context.Context, id string) error {
	if _, ok := q.st.shifts[id]; !ok {
		return fmt.Errorf("shift %s: %w", id, db.ErrNotFound)
	}
	q.deleteShift(id)
	return nil
}

func (q *queries) deleteShift(id string) {
	for spid, sp := range q.st.shiftPositions {
		if sp.ShiftID == id {
			q.deleteShiftPosition(spid)
		}
	}
	delete(q.st.shifts, id)
}

// GetShiftPosition retrieves a shift position by id
func (q *queries) GetShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error) {
	sp, ok := q.st.shiftPositions[id]
	if !ok {
		return nil, fmt.Errorf("shift position %s: %w", id, db.ErrNotFound)
	}
	return &sp, nil
}

// LockShiftPosition retrieves a shift position. Transactions already hold the
// store mutex, so no further locking is needed.
func (q *queries) LockShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error) {
	return q.GetShiftPosition(ctx, id)
}

// ListShiftPositions returns the shift's slots
func (q *queries) ListShiftPositions(ctx context.Context, shiftID string) ([]db.ShiftPosition, error) {
	return sortedValues(q.st.shiftPositions,
		func(sp db.ShiftPosition) bool { return sp.ShiftID == shiftID },
		func(sp db.ShiftPosition) (int64, string) { return sp.CreatedAt.UnixNano(), sp.ID },
	), nil
}

// InsertShiftPosition inserts a slot, enforcing (shift, position) uniqueness
func (q *queries) InsertShiftPosition(ctx context.Context, sp *db.ShiftPosition) error {
	if _, ok := q.st.shifts[sp.ShiftID]; !ok {
		return fmt.Errorf("shift %s: %w", sp.ShiftID, db.ErrNotFound)
	}
	if _, ok := q.st.positions[sp.PositionID]; !ok {
		return fmt.Errorf("position %s: %w", sp.PositionID, db.ErrNotFound)
	}
	for _, existing := range q.st.shiftPositions {
		if existing.ID == sp.ID || (existing.ShiftID == sp.ShiftID && existing.PositionID == sp.PositionID) {
			return fmt.Errorf("position %s on shift %s: %w", sp.PositionID, sp.ShiftID, db.ErrDuplicate)
		}
	}
	q.st.shiftPositions[sp.ID] = *sp
	return nil
}

// UpdateShiftPosition overwrites an existing slot
func (q *queries) UpdateShiftPosition(ctx context.Context, sp *db.ShiftPosition) error {
	if _, ok := q.st.shiftPositions[sp.ID]; !ok {
		return fmt.Errorf("shift position %s: %w", sp.ID, db.ErrNotFound)
	}
	q.st.shiftPositions[sp.ID] = *sp
	return nil
}

// DeleteShiftPosition removes the slot and its assignments
func (q *queries) DeleteShiftPosition(ctx context.Context, id string) error {
	if _, ok := q.st.shiftPositions[id]; !ok {
		return fmt.Errorf("shift position %s: %w", id, db.ErrNotFound)
	}
	q.deleteShiftPosition(id)
	return nil
}

func (q *queries) deleteShiftPosition(id string) {
	for aid, a := range q.st.assignments {
		if a.ShiftPositionID == id {
			delete(q.st.assignments, aid)
		}
	}
	delete(q.st.shiftPositions, id)
}
