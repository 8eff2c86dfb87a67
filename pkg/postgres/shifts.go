package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volts/pkg/db"
)

const shiftColumns = `id, group_id, title, notes, start_time, end_time, status, created_at, updated_at`

func scanShift(row pgx.Row) (db.Shift, error) {
	var s db.Shift
	err := row.Scan(&s.ID, &s.GroupID, &s.Title, &s.Notes, &s.StartTime, &s.EndTime, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetShift retrieves a shift by id
func (q *queries) GetShift(ctx context.Context, id string) (*db.Shift, error) {
	s, err := scanShift(q.conn.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get shift %s", id)
	}
	return &s, nil
}

// ListShifts returns the group's shifts ordered by start time
func (q *queries) ListShifts(ctx context.Context, groupID string) ([]db.Shift, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE group_id = $1
		ORDER BY start_time, id
	`, groupID)
	if err != nil {
		return nil, mapErr(err, "query shifts of %s", groupID)
	}
	shifts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Shift, error) {
		return scanShift(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shifts: %w", err)
	}
	return shifts, nil
}

// InsertShift inserts a new shift record
func (q *queries) InsertShift(ctx context.Context, shift *db.Shift) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, shift.ID, shift.GroupID, shift.Title, shift.Notes, shift.StartTime, shift.EndTime,
		string(shift.Status), shift.CreatedAt, shift.UpdatedAt)
	return mapErr(err, "insert shift %s", shift.ID)
}

// UpdateShift overwrites the mutable shift fields
func (q *queries) UpdateShift(ctx context.Context, shift *db.Shift) error {
	return q.execOne(ctx, "update shift "+shift.ID, `
		UPDATE shifts
		SET title = $2, notes = $3, start_time = $4, end_time = $5, status = $6, updated_at = $7
		WHERE id = $1
	`, shift.ID, shift.Title, shift.Notes, shift.StartTime, shift.EndTime, string(shift.Status), shift.UpdatedAt)
}

// DeleteShift removes the shift; slots and their assignments cascade
func (q *queries) DeleteShift(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete shift "+id, `DELETE FROM shifts WHERE id = $1`, id)
}

const shiftPositionColumns = `id, shift_id, position_id, required_count, volunteers_count, created_at, updated_at`

func scanShiftPosition(row pgx.Row) (db.ShiftPosition, error) {
	var sp db.ShiftPosition
	err := row.Scan(&sp.ID, &sp.ShiftID, &sp.PositionID, &sp.RequiredCount, &sp.VolunteersCount, &sp.CreatedAt, &sp.UpdatedAt)
	return sp, err
}

// GetShiftPosition retrieves a shift position by id
func (q *queries) GetShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error) {
	sp, err := scanShiftPosition(q.conn.QueryRow(ctx, `SELECT `+shiftPositionColumns+` FROM shift_positions WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get shift position %s", id)
	}
	return &sp, nil
}

// LockShiftPosition retrieves a shift position and row-locks it for the rest of the transaction
func (q *queries) LockShiftPosition(ctx context.Context, id string) (*db.ShiftPosition, error) {
	sp, err := scanShiftPosition(q.conn.QueryRow(ctx, `
		SELECT `+shiftPositionColumns+`
		FROM shift_positions
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, mapErr(err, "lock shift position %s", id)
	}
	return &sp, nil
}

// ListShiftPositions returns the shift's slots
func (q *queries) ListShiftPositions(ctx context.Context, shiftID string) ([]db.ShiftPosition, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+shiftPositionColumns+`
		FROM shift_positions
		WHERE shift_id = $1
		ORDER BY created_at, id
	`, shiftID)
	if err != nil {
		return nil, mapErr(err, "query shift positions of %s", shiftID)
	}
	sps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.ShiftPosition, error) {
		return scanShiftPosition(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift positions: %w", err)
	}
	return sps, nil
}

// InsertShiftPosition inserts a slot
func (q *queries) InsertShiftPosition(ctx context.Context, sp *db.ShiftPosition) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO shift_positions (`+shiftPositionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sp.ID, sp.ShiftID, sp.PositionID, sp.RequiredCount, sp.VolunteersCount, sp.CreatedAt, sp.UpdatedAt)
	return mapErr(err, "insert position %s on shift %s", sp.PositionID, sp.ShiftID)
}

// UpdateShiftPosition overwrites the slot's counts
func (q *queries) UpdateShiftPosition(ctx context.Context, sp *db.ShiftPosition) error {
	return q.execOne(ctx, "update shift position "+sp.ID, `
		UPDATE shift_positions
		SET required_count = $2, volunteers_count = $3, updated_at = $4
		WHERE id = $1
	`, sp.ID, sp.RequiredCount, sp.VolunteersCount, sp.UpdatedAt)
}

// DeleteShiftPosition removes the slot; its assignments cascade
func (q *queries) DeleteShiftPosition(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete shift position "+id, `DELETE FROM shift_positions WHERE id = $1`, id)
}
